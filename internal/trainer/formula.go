package trainer

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Formula is a single flashcard: a named expression filed under a topic.
// The zero value is an empty formula; use NewFormula to build one.
type Formula struct {
	topic      string
	name       string
	expression string
}

// NewFormula trims all fields and NFC-normalizes topic and name, which
// together identify the formula within the catalog.
func NewFormula(topic, name, expression string) Formula {
	return Formula{
		topic:      normalizeKey(topic),
		name:       normalizeKey(name),
		expression: strings.TrimSpace(expression),
	}
}

func (f Formula) Topic() string      { return f.topic }
func (f Formula) Name() string       { return f.name }
func (f Formula) Expression() string { return f.expression }

func (f Formula) String() string {
	return fmt.Sprintf("%s: %s = %s", f.topic, f.name, f.expression)
}

func (f Formula) key() formulaKey {
	return formulaKey{topic: f.topic, name: f.name}
}

type formulaKey struct {
	topic string
	name  string
}

func normalizeKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// FormulaID is the arena index assigned to a formula when it is admitted.
type FormulaID int

// AnswerStatistic holds the answer counters of one formula.
type AnswerStatistic struct {
	id        FormulaID
	formula   Formula
	correct   int
	incorrect int
}

// NewAnswerStatistic returns a zeroed statistic bound to f.
func NewAnswerStatistic(id FormulaID, f Formula) AnswerStatistic {
	return AnswerStatistic{id: id, formula: f}
}

func (s *AnswerStatistic) ID() FormulaID    { return s.id }
func (s *AnswerStatistic) Formula() Formula { return s.formula }
func (s *AnswerStatistic) Correct() int     { return s.correct }
func (s *AnswerStatistic) Incorrect() int   { return s.incorrect }

func (s *AnswerStatistic) AddCorrectAnswer()   { s.correct++ }
func (s *AnswerStatistic) AddIncorrectAnswer() { s.incorrect++ }

// Attempts is the number of judged answers recorded so far.
func (s *AnswerStatistic) Attempts() int {
	return s.correct + s.incorrect
}

// SuccessRate is the share of correct answers in percent, or 0 when
// nothing has been recorded yet.
func (s *AnswerStatistic) SuccessRate() float64 {
	return successRate(s.correct, s.incorrect)
}

func successRate(correct, incorrect int) float64 {
	total := correct + incorrect
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}
