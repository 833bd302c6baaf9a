package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/stellarlinkco/formula-trainer/internal/trainer"
)

// maxInputBytes caps one input line; the rest of a longer line is dropped.
const maxInputBytes = 64 * 1024

// lineInput reads trimmed lines; it serves both the menu and sessions.
type lineInput struct {
	reader *bufio.Reader
	echo   io.Writer // non-nil when input is scripted, so transcripts stay readable
}

func newLineInput(r io.Reader, echo io.Writer) *lineInput {
	return &lineInput{reader: bufio.NewReader(r), echo: echo}
}

func (l *lineInput) ReadToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := l.readLine()
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(raw)
	if l.echo != nil {
		fmt.Fprintln(l.echo, line)
	}
	return line, nil
}

// readLine returns the next line without its terminator, or io.EOF once
// input is exhausted.
func (l *lineInput) readLine() (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := l.reader.ReadLine()
		if err != nil {
			return "", err
		}
		if room := maxInputBytes - len(buf); len(chunk) > room {
			chunk = chunk[:room]
		}
		buf = append(buf, chunk...)
		if !isPrefix {
			return string(buf), nil
		}
	}
}

// consoleOutput prints the session transcript.
type consoleOutput struct {
	w io.Writer
}

var _ trainer.OutputPort = consoleOutput{}

func (o consoleOutput) PresentFormula(f trainer.Formula) {
	fmt.Fprintf(o.w, "Formula: %s\n", f.Name())
	fmt.Fprint(o.w, "Press Enter to see the answer... ")
}

func (o consoleOutput) RevealExpression(f trainer.Formula) {
	fmt.Fprintf(o.w, "Correct answer: %s\n", f.Expression())
	fmt.Fprint(o.w, judgmentPrompt)
}

func (o consoleOutput) InvalidJudgment(string) {
	fmt.Fprintln(o.w, "Please enter '+' or '-'.")
	fmt.Fprint(o.w, judgmentPrompt)
}

func (o consoleOutput) Judged(_ trainer.Formula, j trainer.Judgment) {
	switch j {
	case trainer.JudgedCorrect:
		fmt.Fprint(o.w, "Correct! Well done.\n\n")
	case trainer.JudgedIncorrect:
		fmt.Fprint(o.w, "Mistake. Try to remember this formula.\n\n")
	}
}

const judgmentPrompt = "Did you remember correctly (+/-)? "
