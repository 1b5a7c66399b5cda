package aggregate

import (
	"retailetl/internal/dataset"
	"retailetl/internal/schema"
)

// Partial accumulates one view's groups over a subset of the dataset.
// Partials are mergeable, which is what makes the cluster backend's
// map/combine/merge plan equivalent to the memory backend's single pass: a
// group's reduced value is independent of how rows were split across
// partials.
//
// A group exists only once at least one row was added to it, so empty
// groups never reach the output and avg never divides by zero.
type Partial struct {
	view   View
	groups map[string]*group
	order  []string // first-seen key order
}

type group struct {
	keyVals []any
	accs    []accum
}

// accum is a single reducer state. sum carries both integer and float
// sums; isInt stays true only while every summed input was an integer, so
// integer columns (quantity, counts) come back out as int64.
type accum struct {
	sum   float64
	count int64
	isInt bool
}

// NewPartial returns an empty accumulator for view.
func NewPartial(view View) *Partial {
	return &Partial{view: view, groups: make(map[string]*group)}
}

// View returns the view this partial accumulates.
func (p *Partial) View() View { return p.view }

// Add routes tx into its group.
func (p *Partial) Add(tx *schema.Transaction) {
	key, vals := p.view.GroupKey(tx)
	p.AddKeyed(key, vals, tx)
}

// AddKeyed is Add with a precomputed group key; the cluster backend uses it
// after hashing the key for shuffle placement.
func (p *Partial) AddKeyed(key string, keyVals []any, tx *schema.Transaction) {
	g, ok := p.groups[key]
	if !ok {
		g = &group{keyVals: keyVals, accs: make([]accum, len(p.view.Reducers))}
		for i := range g.accs {
			g.accs[i].isInt = true
		}
		p.groups[key] = g
		p.order = append(p.order, key)
	}
	for i, r := range p.view.Reducers {
		switch r.Op {
		case OpCount:
			g.accs[i].count++
		case OpSum, OpAvg:
			v, _ := tx.Field(r.Column)
			switch x := v.(type) {
			case int64:
				g.accs[i].sum += float64(x)
			case float64:
				g.accs[i].sum += x
				g.accs[i].isInt = false
			}
			if r.Op == OpAvg {
				g.accs[i].count++
			}
		}
	}
}

// Merge folds o into p. Groups unknown to p keep o's first-seen order,
// appended after p's own.
func (p *Partial) Merge(o *Partial) {
	for _, key := range o.order {
		og := o.groups[key]
		g, ok := p.groups[key]
		if !ok {
			p.groups[key] = og
			p.order = append(p.order, key)
			continue
		}
		for i := range g.accs {
			g.accs[i].sum += og.accs[i].sum
			g.accs[i].count += og.accs[i].count
			g.accs[i].isInt = g.accs[i].isInt && og.accs[i].isInt
		}
	}
}

// Len returns the number of groups accumulated so far.
func (p *Partial) Len() int { return len(p.groups) }

// Table finalizes the partial into the view's output rows, in first-seen
// group order. Sorting, when the view requires it, is the caller's concern.
func (p *Partial) Table() *dataset.Table {
	t := dataset.New(p.view.Columns()...)
	for _, key := range p.order {
		g := p.groups[key]
		row := make([]any, 0, len(g.keyVals)+len(g.accs))
		row = append(row, g.keyVals...)
		for i, r := range p.view.Reducers {
			a := g.accs[i]
			switch r.Op {
			case OpCount:
				row = append(row, a.count)
			case OpSum:
				if a.isInt {
					row = append(row, int64(a.sum))
				} else {
					row = append(row, a.sum)
				}
			case OpAvg:
				row = append(row, a.sum/float64(a.count))
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
