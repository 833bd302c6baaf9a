package trainer

import "sort"

// Rand is the random source used for draws. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	IntN(n int) int
}

type poolEntry struct {
	id      FormulaID
	formula Formula
	weight  int
}

// Pool is a weighted snapshot of training candidates. Each formula weighs
// incorrect+1 as read when the pool was built; later answers do not change it.
type Pool struct {
	entries    []poolEntry
	cumulative []int
}

// SelectTrainingPool gathers the formulas of the given topics, in topic
// order then insertion order. Unknown topics are ignored and a topic
// listed twice is counted once.
func (t *Trainer) SelectTrainingPool(topics []string) *Pool {
	p := &Pool{}
	seen := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		topic = normalizeKey(topic)
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}

		for _, id := range t.byTopic[topic] {
			st := &t.stats[id]
			p.add(id, st.formula, st.incorrect+1)
		}
	}
	return p
}

func (p *Pool) add(id FormulaID, f Formula, weight int) {
	total := weight
	if n := len(p.cumulative); n > 0 {
		total += p.cumulative[n-1]
	}
	p.entries = append(p.entries, poolEntry{id: id, formula: f, weight: weight})
	p.cumulative = append(p.cumulative, total)
}

// Size is the total weight, i.e. the length the pool would have if every
// formula were repeated weight times.
func (p *Pool) Size() int {
	if len(p.cumulative) == 0 {
		return 0
	}
	return p.cumulative[len(p.cumulative)-1]
}

// Len is the number of distinct formulas in the pool.
func (p *Pool) Len() int { return len(p.entries) }

func (p *Pool) Empty() bool { return len(p.entries) == 0 }

// Formulas lists the candidates in pool order.
func (p *Pool) Formulas() []Formula {
	out := make([]Formula, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.formula
	}
	return out
}

// Weight returns the snapshotted weight of the i-th candidate.
func (p *Pool) Weight(i int) int {
	return p.entries[i].weight
}

// Draw picks a candidate with probability weight/Size. It panics on an
// empty pool; callers check Empty first.
func (p *Pool) Draw(rng Rand) (FormulaID, Formula) {
	r := rng.IntN(p.Size())
	i := sort.SearchInts(p.cumulative, r+1)
	e := p.entries[i]
	return e.id, e.formula
}
