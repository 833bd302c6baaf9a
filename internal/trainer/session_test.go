package trainer

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"testing"
)

type scriptInput struct {
	tokens []string
	pos    int
	err    error
}

func (s *scriptInput) ReadToken(context.Context) (string, error) {
	if s.pos >= len(s.tokens) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, nil
}

type recordingOutput struct {
	presented []string
	revealed  []string
	invalid   []string
	judged    []Judgment
}

func (o *recordingOutput) PresentFormula(f Formula)   { o.presented = append(o.presented, f.Name()) }
func (o *recordingOutput) RevealExpression(f Formula) { o.revealed = append(o.revealed, f.Expression()) }
func (o *recordingOutput) InvalidJudgment(tok string) { o.invalid = append(o.invalid, tok) }
func (o *recordingOutput) Judged(_ Formula, j Judgment) {
	o.judged = append(o.judged, j)
}

func singleFormulaSession(t *testing.T) (*Trainer, FormulaID, *Session) {
	t.Helper()
	tr := New()
	id, _ := tr.AddFormula("Geometry", "Circle", "A=πr²")
	s, err := tr.NewSession(tr.SelectTrainingPool([]string{"Geometry"}), rand.New(rand.NewPCG(1, 2)), SessionOptions{})
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	return tr, id, s
}

func TestNewSession_EmptyPool(t *testing.T) {
	tr := New()
	tr.AddFormula("Algebra", "x", "y")

	_, err := tr.NewSession(tr.SelectTrainingPool([]string{"Geometry"}), rand.New(rand.NewPCG(1, 2)), SessionOptions{})
	if !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("err = %v, want ErrEmptyPool", err)
	}
	_, err = tr.NewSession(nil, rand.New(rand.NewPCG(1, 2)), SessionOptions{})
	if !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("nil pool err = %v, want ErrEmptyPool", err)
	}
}

func TestSession_RunLoopsUntilExit(t *testing.T) {
	tr, id, s := singleFormulaSession(t)
	in := &scriptInput{tokens: []string{"", "+", "go", "-", "", "exit"}}
	out := &recordingOutput{}

	sum, err := s.Run(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Shown != 3 || sum.Correct != 1 || sum.Incorrect != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.ID == "" {
		t.Error("session ID should be set")
	}
	if len(out.presented) != 3 || len(out.revealed) != 3 {
		t.Errorf("presented=%d revealed=%d, want 3/3", len(out.presented), len(out.revealed))
	}
	want := []Judgment{JudgedCorrect, JudgedIncorrect, JudgedExit}
	for i, j := range want {
		if out.judged[i] != j {
			t.Errorf("judged[%d] = %v, want %v", i, out.judged[i], j)
		}
	}

	st, _ := tr.Statistic(id)
	if st.Correct() != 1 || st.Incorrect() != 1 {
		t.Errorf("counts = %d/%d, want 1/1", st.Correct(), st.Incorrect())
	}
	if s.State() != Terminated {
		t.Errorf("state = %v, want terminated", s.State())
	}
}

func TestSession_ExitAtReveal(t *testing.T) {
	tr, id, s := singleFormulaSession(t)
	out := &recordingOutput{}

	if _, err := s.Run(context.Background(), &scriptInput{tokens: []string{"  EXIT "}}, out); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(out.revealed) != 0 {
		t.Error("expression must not be revealed after exit")
	}
	st, _ := tr.Statistic(id)
	if st.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0", st.Attempts())
	}
}

func TestSession_ExitAtJudgment(t *testing.T) {
	tr, id, s := singleFormulaSession(t)

	if _, err := s.Run(context.Background(), &scriptInput{tokens: []string{"", "ВЫХОД"}}, &recordingOutput{}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	st, _ := tr.Statistic(id)
	if st.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0", st.Attempts())
	}
}

func TestSession_InvalidJudgmentReprompts(t *testing.T) {
	tr, id, s := singleFormulaSession(t)
	out := &recordingOutput{}
	in := &scriptInput{tokens: []string{"", "yes", "++", "+", "quit"}}

	if _, err := s.Run(context.Background(), in, out); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(out.invalid) != 2 {
		t.Fatalf("invalid prompts = %d, want 2", len(out.invalid))
	}
	st, _ := tr.Statistic(id)
	if st.Correct() != 1 || st.Incorrect() != 0 {
		t.Errorf("counts = %d/%d, want 1/0", st.Correct(), st.Incorrect())
	}
}

func TestSession_EOFEndsQuietly(t *testing.T) {
	tr, id, s := singleFormulaSession(t)

	sum, err := s.Run(context.Background(), &scriptInput{tokens: []string{""}}, &recordingOutput{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Shown != 1 {
		t.Errorf("shown = %d, want 1", sum.Shown)
	}
	st, _ := tr.Statistic(id)
	if st.Attempts() != 0 {
		t.Error("EOF at judgment must not record an answer")
	}
}

func TestSession_ReadError(t *testing.T) {
	_, _, s := singleFormulaSession(t)
	boom := errors.New("boom")

	_, err := s.Run(context.Background(), &scriptInput{err: boom}, &recordingOutput{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if s.State() != Terminated {
		t.Error("session should be terminated after read error")
	}
}

func TestSession_CancelledContext(t *testing.T) {
	_, _, s := singleFormulaSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := s.Run(ctx, &scriptInput{tokens: []string{"", "+"}}, &recordingOutput{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Correct != 0 {
		t.Error("cancelled session must not record answers")
	}
}

func TestSession_StepAPI(t *testing.T) {
	_, _, s := singleFormulaSession(t)

	if _, err := s.Judge("+"); !errors.Is(err, ErrUnexpectedState) {
		t.Fatalf("Judge before Reveal err = %v, want ErrUnexpectedState", err)
	}
	if ok, err := s.Reveal("anything"); err != nil || !ok {
		t.Fatalf("Reveal = %v, %v", ok, err)
	}
	if s.State() != AwaitingJudgment {
		t.Fatalf("state = %v", s.State())
	}
	if _, err := s.Reveal(""); !errors.Is(err, ErrUnexpectedState) {
		t.Errorf("second Reveal err = %v, want ErrUnexpectedState", err)
	}
	if _, err := s.Judge("?"); !errors.Is(err, ErrInvalidJudgment) {
		t.Errorf("Judge(?) err = %v, want ErrInvalidJudgment", err)
	}
	if s.State() != AwaitingJudgment {
		t.Error("invalid judgment must not change state")
	}
	if j, err := s.Judge(" - "); err != nil || j != JudgedIncorrect {
		t.Fatalf("Judge(-) = %v, %v", j, err)
	}
	if s.State() != AwaitingReveal {
		t.Errorf("state after judgment = %v, want awaiting-reveal", s.State())
	}

	s.Stop()
	if _, err := s.Reveal(""); !errors.Is(err, ErrSessionTerminated) {
		t.Errorf("Reveal after Stop err = %v, want ErrSessionTerminated", err)
	}
}

func TestSession_CustomExitWords(t *testing.T) {
	tr := New()
	tr.AddFormula("T", "f", "e")
	s, err := tr.NewSession(tr.SelectTrainingPool([]string{"T"}), fixedRand{}, SessionOptions{ExitWords: []string{"Stop"}})
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	if ok, _ := s.Reveal("exit"); !ok {
		t.Error("default exit word should not apply when custom words are set")
	}
	if j, _ := s.Judge("STOP"); j != JudgedExit {
		t.Errorf("judgment = %v, want exit", j)
	}
}

func TestSession_WeightsFromPoolSnapshot(t *testing.T) {
	tr := New()
	tr.AddFormula("T", "easy", "1")
	hardID, _ := tr.AddFormula("T", "hard", "2")
	for i := 0; i < 4; i++ {
		tr.recordIncorrect(hardID)
	}
	pool := tr.SelectTrainingPool([]string{"T"})

	// r=0 hits "easy" (weight 1); r=1..5 hit "hard" (weight 5).
	s, err := tr.NewSession(pool, fixedRand{v: 3}, SessionOptions{})
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	if s.Current().Name() != "hard" {
		t.Errorf("current = %q, want hard", s.Current().Name())
	}
}

func TestStateString(t *testing.T) {
	if AwaitingReveal.String() != "awaiting-reveal" || Terminated.String() != "terminated" {
		t.Error("unexpected state names")
	}
	if State(42).String() != "unknown" {
		t.Error("unknown state name")
	}
}
