package store

import (
	"time"

	"github.com/stellarlinkco/formula-trainer/internal/trainer"
)

// Snapshot is the statistics of one run at the moment it was exported.
type Snapshot struct {
	ID        string
	Source    string
	SessionID string
	TakenAt   time.Time
	Entries   []Entry
}

// Entry is one formula row of a snapshot.
type Entry struct {
	Topic      string
	Name       string
	Expression string
	Correct    int
	Incorrect  int
}

// SnapshotHeader is a stored snapshot without its entries.
type SnapshotHeader struct {
	ID             string
	Source         string
	SessionID      string
	TakenAt        string
	Formulas       int
	TotalCorrect   int
	TotalIncorrect int
}

// NewSnapshot copies the counters out of stats.
func NewSnapshot(source string, stats []trainer.AnswerStatistic) Snapshot {
	snap := Snapshot{
		Source:  source,
		TakenAt: time.Now().UTC(),
		Entries: make([]Entry, 0, len(stats)),
	}
	for i := range stats {
		st := &stats[i]
		f := st.Formula()
		snap.Entries = append(snap.Entries, Entry{
			Topic:      f.Topic(),
			Name:       f.Name(),
			Expression: f.Expression(),
			Correct:    st.Correct(),
			Incorrect:  st.Incorrect(),
		})
	}
	return snap
}
