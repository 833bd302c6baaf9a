package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// DefaultExitWords end a session at either prompt.
var DefaultExitWords = []string{"exit", "quit", "выход"}

const (
	tokenCorrect   = "+"
	tokenIncorrect = "-"
)

// State is the position of a session in its prompt cycle.
type State int

const (
	AwaitingReveal State = iota
	AwaitingJudgment
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingReveal:
		return "awaiting-reveal"
	case AwaitingJudgment:
		return "awaiting-judgment"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Judgment is the outcome of the second prompt.
type Judgment int

const (
	JudgedCorrect Judgment = iota + 1
	JudgedIncorrect
	JudgedExit
)

// InputPort delivers one trimmed line of user input per call, blocking
// until it is available. io.EOF ends the session like an exit word.
type InputPort interface {
	ReadToken(ctx context.Context) (string, error)
}

// OutputPort receives the transcript events of a session.
type OutputPort interface {
	PresentFormula(f Formula)
	RevealExpression(f Formula)
	InvalidJudgment(token string)
	Judged(f Formula, j Judgment)
}

// SessionOptions configures a session. Zero values use defaults.
type SessionOptions struct {
	ExitWords []string
}

// SessionSummary counts what happened during one session.
type SessionSummary struct {
	ID        string
	Shown     int
	Correct   int
	Incorrect int
}

// Session is the reveal/judge state machine over a fixed pool.
type Session struct {
	trainer   *Trainer
	pool      *Pool
	rng       Rand
	fold      cases.Caser
	exitWords map[string]struct{}

	state   State
	current FormulaID
	formula Formula
	summary SessionSummary
}

// NewSession starts a session over pool and presents the first formula.
// An empty pool is refused with ErrEmptyPool.
func (t *Trainer) NewSession(pool *Pool, rng Rand, opts SessionOptions) (*Session, error) {
	if pool == nil || pool.Empty() {
		return nil, ErrEmptyPool
	}
	if rng == nil {
		return nil, fmt.Errorf("new session: nil random source")
	}

	words := opts.ExitWords
	if len(words) == 0 {
		words = DefaultExitWords
	}
	s := &Session{
		trainer:   t,
		pool:      pool,
		rng:       rng,
		fold:      cases.Fold(),
		exitWords: make(map[string]struct{}, len(words)),
		summary:   SessionSummary{ID: uuid.NewString()},
	}
	for _, w := range words {
		if w = s.normalize(w); w != "" {
			s.exitWords[w] = struct{}{}
		}
	}
	s.draw()
	log.Printf("[trainer] session %s started: candidates=%d weight=%d", s.summary.ID, pool.Len(), pool.Size())
	return s, nil
}

func (s *Session) ID() string { return s.summary.ID }

func (s *Session) State() State { return s.state }

// Current is the formula being asked.
func (s *Session) Current() Formula { return s.formula }

func (s *Session) Summary() SessionSummary { return s.summary }

func (s *Session) draw() {
	s.current, s.formula = s.pool.Draw(s.rng)
	s.state = AwaitingReveal
	s.summary.Shown++
}

func (s *Session) normalize(token string) string {
	return s.fold.String(strings.TrimSpace(token))
}

func (s *Session) isExit(token string) bool {
	_, ok := s.exitWords[token]
	return ok
}

// Reveal handles the first prompt. Any token other than an exit word moves
// to AwaitingJudgment and returns true; an exit word terminates the
// session without recording anything and returns false.
func (s *Session) Reveal(token string) (bool, error) {
	if s.state != AwaitingReveal {
		return false, s.stateError()
	}
	if s.isExit(s.normalize(token)) {
		s.terminate()
		return false, nil
	}
	s.state = AwaitingJudgment
	return true, nil
}

// Judge handles the second prompt. "+" and "-" update the live statistic
// and draw the next formula. An exit word terminates without recording.
// Any other token returns ErrInvalidJudgment and leaves the state as is.
func (s *Session) Judge(token string) (Judgment, error) {
	if s.state != AwaitingJudgment {
		return 0, s.stateError()
	}

	switch tok := s.normalize(token); {
	case tok == tokenCorrect:
		s.trainer.recordCorrect(s.current)
		s.summary.Correct++
		s.draw()
		return JudgedCorrect, nil
	case tok == tokenIncorrect:
		s.trainer.recordIncorrect(s.current)
		s.summary.Incorrect++
		s.draw()
		return JudgedIncorrect, nil
	case s.isExit(tok):
		s.terminate()
		return JudgedExit, nil
	default:
		return 0, fmt.Errorf("%w: got %q", ErrInvalidJudgment, token)
	}
}

// Stop terminates the session from outside the prompt cycle.
func (s *Session) Stop() {
	if s.state != Terminated {
		s.terminate()
	}
}

func (s *Session) terminate() {
	s.state = Terminated
	log.Printf("[trainer] session %s ended: shown=%d correct=%d incorrect=%d",
		s.summary.ID, s.summary.Shown, s.summary.Correct, s.summary.Incorrect)
}

func (s *Session) stateError() error {
	if s.state == Terminated {
		return ErrSessionTerminated
	}
	return fmt.Errorf("%w: %s", ErrUnexpectedState, s.state)
}

// Run drives the session until the user exits, input ends, or ctx is
// cancelled. Only read errors other than io.EOF are returned.
func (s *Session) Run(ctx context.Context, in InputPort, out OutputPort) (SessionSummary, error) {
	for s.state != Terminated {
		f := s.formula
		out.PresentFormula(f)

		tok, ok, err := s.read(ctx, in)
		if err != nil || !ok {
			return s.summary, err
		}
		revealed, err := s.Reveal(tok)
		if err != nil {
			return s.summary, err
		}
		if !revealed {
			break
		}
		out.RevealExpression(f)

		for s.state == AwaitingJudgment {
			tok, ok, err := s.read(ctx, in)
			if err != nil || !ok {
				return s.summary, err
			}
			j, err := s.Judge(tok)
			if errors.Is(err, ErrInvalidJudgment) {
				out.InvalidJudgment(tok)
				continue
			}
			if err != nil {
				return s.summary, err
			}
			out.Judged(f, j)
		}
	}
	return s.summary, nil
}

// read returns ok=false when the session should end quietly.
func (s *Session) read(ctx context.Context, in InputPort) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		s.Stop()
		return "", false, nil
	}
	tok, err := in.ReadToken(ctx)
	if err != nil {
		s.Stop()
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read input: %w", err)
	}
	return tok, true, nil
}
