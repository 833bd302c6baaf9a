package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/stellarlinkco/formula-trainer/internal/report"
	"github.com/stellarlinkco/formula-trainer/internal/trainer"
	"golang.org/x/text/cases"
)

var defaultAllWords = []string{"all", "все"}

// Options for creating a Shell. Nil/empty fields use defaults.
type Options struct {
	In        io.Reader
	Out       io.Writer
	Rand      trainer.Rand
	ExitWords []string
	AllWords  []string
	Format    report.Format
	Echo      bool // echo input lines; set when stdin is not a terminal
}

// Shell is the text menu around a Trainer.
type Shell struct {
	tr        *trainer.Trainer
	in        *lineInput
	out       io.Writer
	rng       trainer.Rand
	exitWords []string
	allWords  map[string]struct{}
	format    report.Format
	fold      cases.Caser

	last     trainer.SessionSummary
	haveLast bool
}

func New(tr *trainer.Trainer, opts Options) *Shell {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	in := opts.In
	if in == nil {
		in = strings.NewReader("")
	}
	var echo io.Writer
	if opts.Echo {
		echo = out
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	format := opts.Format
	if format == "" {
		format = report.FormatText
	}
	allWords := opts.AllWords
	if len(allWords) == 0 {
		allWords = defaultAllWords
	}

	s := &Shell{
		tr:        tr,
		in:        newLineInput(in, echo),
		out:       out,
		rng:       rng,
		exitWords: opts.ExitWords,
		allWords:  make(map[string]struct{}, len(allWords)),
		format:    format,
		fold:      cases.Fold(),
	}
	for _, w := range allWords {
		s.allWords[s.fold.String(strings.TrimSpace(w))] = struct{}{}
	}
	return s
}

// LastSession returns the summary of the most recent training session.
func (s *Shell) LastSession() (trainer.SessionSummary, bool) {
	return s.last, s.haveLast
}

// endOfInput reports errors that end the shell quietly: closed input or an
// interrupt.
func endOfInput(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, context.Canceled)
}

// Run shows the menu until the user exits, input ends, or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	for {
		fmt.Fprintln(s.out, "\nFormula trainer")
		fmt.Fprintln(s.out, "1. Start training")
		fmt.Fprintln(s.out, "2. Show topics and formulas")
		fmt.Fprintln(s.out, "3. Show statistics")
		fmt.Fprintln(s.out, "4. Exit")
		fmt.Fprint(s.out, "Choose an action: ")

		choice, err := s.in.ReadToken(ctx)
		if err != nil {
			if endOfInput(err) {
				fmt.Fprintln(s.out)
				return nil
			}
			return fmt.Errorf("read menu choice: %w", err)
		}

		switch choice {
		case "1":
			if err := s.StartTraining(ctx); err != nil {
				return err
			}
		case "2":
			s.ShowTopics()
		case "3":
			if err := s.ShowStatistics(ctx); err != nil {
				return err
			}
		case "4":
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid choice. Try again.")
		}
	}
}

// StartTraining asks for topics and runs one session over them.
func (s *Shell) StartTraining(ctx context.Context) error {
	topics := s.tr.Topics()
	if len(topics) == 0 {
		fmt.Fprintln(s.out, "No topics available for training.")
		return nil
	}

	fmt.Fprintln(s.out, "\nAvailable topics:")
	for i, topic := range topics {
		fmt.Fprintf(s.out, "%d. %s\n", i+1, topic)
	}
	fmt.Fprintln(s.out, "\nEnter topic numbers separated by spaces (e.g. 1 2)")
	fmt.Fprint(s.out, "Or type 'all' to select every topic: ")

	input, err := s.in.ReadToken(ctx)
	if err != nil && !endOfInput(err) {
		return fmt.Errorf("read topic selection: %w", err)
	}

	selected := s.selectTopics(input, topics)
	if len(selected) == 0 {
		fmt.Fprintln(s.out, "No topics selected. Training cancelled.")
		return nil
	}
	_, err = s.Train(ctx, selected)
	return err
}

// Train runs one session over topics. An empty pool is reported to the
// user and is not an error.
func (s *Shell) Train(ctx context.Context, topics []string) (trainer.SessionSummary, error) {
	pool := s.tr.SelectTrainingPool(topics)
	sess, err := s.tr.NewSession(pool, s.rng, trainer.SessionOptions{ExitWords: s.exitWords})
	if errors.Is(err, trainer.ErrEmptyPool) {
		fmt.Fprintln(s.out, "No formulas found for the selected topics.")
		return trainer.SessionSummary{}, nil
	}
	if err != nil {
		return trainer.SessionSummary{}, err
	}

	exitWord := "exit"
	if len(s.exitWords) > 0 {
		exitWord = s.exitWords[0]
	}
	fmt.Fprintln(s.out, "\nTraining started! Press Enter to see the correct answer.")
	fmt.Fprintln(s.out, "After seeing the answer type '+' if you remembered it correctly or '-' if you made a mistake.")
	fmt.Fprintf(s.out, "Type '%s' to stop training.\n\n", exitWord)

	sum, err := sess.Run(ctx, s.in, consoleOutput{w: s.out})
	s.last, s.haveLast = sum, true
	if err != nil {
		return sum, fmt.Errorf("training session: %w", err)
	}
	log.Printf("[shell] session %s finished", sum.ID)
	return sum, nil
}

// selectTopics maps the user's answer to topic names. Unknown indices and
// non-numbers are dropped; repeated indices collapse.
func (s *Shell) selectTopics(input string, topics []string) []string {
	if _, all := s.allWords[s.fold.String(strings.TrimSpace(input))]; all {
		return topics
	}
	return ParseTopicSelection(input, topics)
}

// ParseTopicSelection turns space-separated 1-based indices into topics.
func ParseTopicSelection(input string, topics []string) []string {
	seen := make(map[int]struct{})
	var out []string
	for _, field := range strings.Fields(input) {
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > len(topics) {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, topics[n-1])
	}
	return out
}

// ShowTopics lists every topic with its formulas.
func (s *Shell) ShowTopics() {
	topics := s.tr.Topics()
	if len(topics) == 0 {
		fmt.Fprintln(s.out, "No topics available.")
		return
	}

	fmt.Fprintln(s.out, "\nTopics and formulas:")
	for _, topic := range topics {
		fmt.Fprintf(s.out, "\nTopic: %s\n", topic)
		for _, f := range s.tr.FormulasByTopic(topic) {
			fmt.Fprintf(s.out, "- %s: %s\n", f.Name(), f.Expression())
		}
	}
}

// ShowStatistics asks for the "last N trainings" window and prints the report.
func (s *Shell) ShowStatistics(ctx context.Context) error {
	fmt.Fprint(s.out, "\nEnter the number of recent trainings to analyze (leave empty for all statistics): ")
	input, err := s.in.ReadToken(ctx)
	if err != nil && !endOfInput(err) {
		return fmt.Errorf("read statistics window: %w", err)
	}

	var lastN *int
	if input != "" {
		if n, err := strconv.Atoi(input); err == nil && n > 0 {
			lastN = &n
		} else {
			fmt.Fprintln(s.out, "Invalid input. Showing all statistics.")
		}
	}
	return s.PrintStatistics(lastN)
}

// PrintStatistics renders the current report in the configured format.
func (s *Shell) PrintStatistics(lastN *int) error {
	if err := report.Render(s.out, s.tr.Report(lastN), s.format); err != nil {
		return fmt.Errorf("render statistics: %w", err)
	}
	return nil
}
