package trainer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"
)

const (
	fieldSeparator = "|"
	commentPrefix  = "#"
	maxLineBytes   = 1 << 20
	previewBytes   = 60
)

// Trainer owns the formula catalog and one statistic per formula.
// It is not safe for concurrent use; a single interactive session owns it.
type Trainer struct {
	topics  []string
	byTopic map[string][]FormulaID
	index   map[formulaKey]FormulaID
	stats   []AnswerStatistic
}

// RejectedLine is an input line that did not have exactly three fields.
type RejectedLine struct {
	Number int
	Text   string
}

// LoadResult summarizes one load pass.
type LoadResult struct {
	Admitted   int
	Duplicates int
	Rejected   []RejectedLine
}

func New() *Trainer {
	return &Trainer{
		byTopic: make(map[string][]FormulaID),
		index:   make(map[formulaKey]FormulaID),
	}
}

// AddFormula admits a formula and creates its statistic. It is a no-op
// returning false when the topic already holds a formula with that name.
func (t *Trainer) AddFormula(topic, name, expression string) (FormulaID, bool) {
	f := NewFormula(topic, name, expression)
	if id, exists := t.index[f.key()]; exists {
		return id, false
	}

	id := FormulaID(len(t.stats))
	if _, known := t.byTopic[f.topic]; !known {
		t.topics = append(t.topics, f.topic)
	}
	t.byTopic[f.topic] = append(t.byTopic[f.topic], id)
	t.index[f.key()] = id
	t.stats = append(t.stats, NewAnswerStatistic(id, f))
	return id, true
}

// LoadLines parses topic|name|expression records. Blank and comment lines
// are skipped; lines with the wrong field count are rejected and reported.
func (t *Trainer) LoadLines(lines []string) LoadResult {
	var res LoadResult
	for i, line := range lines {
		t.loadLine(i+1, line, &res)
	}
	return res
}

// LoadReader reads records line by line from r. A line longer than
// maxLineBytes is rejected like a malformed one and loading continues.
func (t *Trainer) LoadReader(r io.Reader) (LoadResult, error) {
	var res LoadResult
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, tooLong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read formulas: %w", err)
		}
		if n == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if tooLong {
			log.Printf("[trainer] line %d exceeds %d bytes, rejected", n, maxLineBytes)
			res.Rejected = append(res.Rejected, RejectedLine{Number: n, Text: preview(line)})
			continue
		}
		t.loadLine(n, line, &res)
	}
}

// readLine returns the next line without its terminator. Bytes past
// maxLineBytes are consumed and dropped, and tooLong is set.
func readLine(br *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return "", false, err
		}
		if room := maxLineBytes - len(buf); len(chunk) > room {
			chunk = chunk[:room]
			tooLong = true
		}
		buf = append(buf, chunk...)
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

func preview(line string) string {
	if len(line) <= previewBytes {
		return line
	}
	return strings.ToValidUTF8(line[:previewBytes], "") + "..."
}

// LoadFile loads formulas from path. A missing file wraps ErrSourceNotFound.
func (t *Trainer) LoadFile(path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LoadResult{}, fmt.Errorf("%w: %s: %w", ErrSourceNotFound, path, err)
		}
		return LoadResult{}, fmt.Errorf("read formulas %q: %w", path, err)
	}

	res, err := t.LoadReader(bytes.NewReader(data))
	if err != nil {
		return res, err
	}
	log.Printf("[trainer] loaded %s: admitted=%d duplicates=%d rejected=%d", path, res.Admitted, res.Duplicates, len(res.Rejected))
	return res, nil
}

func (t *Trainer) loadLine(number int, line string, res *LoadResult) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
		return
	}

	parts := strings.Split(line, fieldSeparator)
	if len(parts) != 3 {
		res.Rejected = append(res.Rejected, RejectedLine{Number: number, Text: line})
		return
	}

	if _, added := t.AddFormula(parts[0], parts[1], parts[2]); added {
		res.Admitted++
	} else {
		res.Duplicates++
	}
}

// Topics returns topic names in first-seen order.
func (t *Trainer) Topics() []string {
	out := make([]string, len(t.topics))
	copy(out, t.topics)
	return out
}

// FormulasByTopic returns the topic's formulas in insertion order, or an
// empty slice for an unknown topic.
func (t *Trainer) FormulasByTopic(topic string) []Formula {
	ids := t.byTopic[normalizeKey(topic)]
	out := make([]Formula, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.stats[id].formula)
	}
	return out
}

// Len is the number of formulas in the catalog.
func (t *Trainer) Len() int {
	return len(t.stats)
}

// Statistic returns a copy of the statistic for id.
func (t *Trainer) Statistic(id FormulaID) (AnswerStatistic, bool) {
	if id < 0 || int(id) >= len(t.stats) {
		return AnswerStatistic{}, false
	}
	return t.stats[id], true
}

// Lookup finds a formula by topic and name.
func (t *Trainer) Lookup(topic, name string) (FormulaID, bool) {
	id, ok := t.index[formulaKey{topic: normalizeKey(topic), name: normalizeKey(name)}]
	return id, ok
}

// Statistics returns a snapshot of every statistic in admission order.
func (t *Trainer) Statistics() []AnswerStatistic {
	out := make([]AnswerStatistic, len(t.stats))
	copy(out, t.stats)
	return out
}

// recordCorrect and recordIncorrect are the only mutators of the live
// counters; sessions call them after a valid judgment.
func (t *Trainer) recordCorrect(id FormulaID) {
	t.stats[id].AddCorrectAnswer()
}

func (t *Trainer) recordIncorrect(id FormulaID) {
	t.stats[id].AddIncorrectAnswer()
}
