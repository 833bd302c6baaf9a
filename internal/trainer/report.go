package trainer

import (
	"math"
	"sort"
)

// ReportEntry is one formula the user has missed at least once.
type ReportEntry struct {
	Name        string  `json:"name" yaml:"name"`
	Incorrect   int     `json:"incorrect" yaml:"incorrect"`
	SuccessRate float64 `json:"successRate" yaml:"successRate"`
}

// TopicReport aggregates the mistakes of one topic.
type TopicReport struct {
	Topic          string        `json:"topic" yaml:"topic"`
	TotalIncorrect int           `json:"totalIncorrect" yaml:"totalIncorrect"`
	Mistakes       []ReportEntry `json:"mistakes" yaml:"mistakes"`
}

// Report is the computed statistics summary; rendering is left to callers.
type Report struct {
	Empty          bool          `json:"empty" yaml:"empty"`
	RequestedLast  *int          `json:"requestedLast,omitempty" yaml:"requestedLast,omitempty"`
	Topics         []TopicReport `json:"topics" yaml:"topics"`
	TotalCorrect   int           `json:"totalCorrect" yaml:"totalCorrect"`
	TotalIncorrect int           `json:"totalIncorrect" yaml:"totalIncorrect"`
	SuccessRate    float64       `json:"successRate" yaml:"successRate"`
}

// Report summarizes the live statistics. lastN is accepted for the
// "last N trainings" view but no per-session history is kept, so it is
// only echoed back in the result.
func (t *Trainer) Report(lastN *int) Report {
	return BuildReport(t.stats, lastN)
}

// BuildReport groups stats by topic, orders topics by total mistakes
// (stable on first-seen order) and lists each topic's missed formulas by
// mistakes descending, then name.
func BuildReport(stats []AnswerStatistic, lastN *int) Report {
	rep := Report{
		Empty:  len(stats) == 0,
		Topics: []TopicReport{},
	}
	if lastN != nil {
		n := *lastN
		rep.RequestedLast = &n
	}

	pos := make(map[string]int)
	for i := range stats {
		st := &stats[i]
		rep.TotalCorrect += st.correct
		rep.TotalIncorrect += st.incorrect

		topic := st.formula.topic
		idx, ok := pos[topic]
		if !ok {
			idx = len(rep.Topics)
			pos[topic] = idx
			rep.Topics = append(rep.Topics, TopicReport{Topic: topic, Mistakes: []ReportEntry{}})
		}
		tr := &rep.Topics[idx]
		tr.TotalIncorrect += st.incorrect
		if st.incorrect > 0 {
			tr.Mistakes = append(tr.Mistakes, ReportEntry{
				Name:        st.formula.name,
				Incorrect:   st.incorrect,
				SuccessRate: roundTenth(st.SuccessRate()),
			})
		}
	}

	sort.SliceStable(rep.Topics, func(i, j int) bool {
		return rep.Topics[i].TotalIncorrect > rep.Topics[j].TotalIncorrect
	})
	for i := range rep.Topics {
		m := rep.Topics[i].Mistakes
		sort.SliceStable(m, func(a, b int) bool {
			if m[a].Incorrect != m[b].Incorrect {
				return m[a].Incorrect > m[b].Incorrect
			}
			return m[a].Name < m[b].Name
		})
	}

	rep.SuccessRate = roundTenth(successRate(rep.TotalCorrect, rep.TotalIncorrect))
	return rep
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
