// Package numtab stores the numeric constants of a compilation.
package numtab

// Index is a handle into a Table.
type Index int

// None marks a value that is not a compile-time constant.
const None Index = -1

const defaultSize = 512

// Table is an append-only constant table. Equal values interned twice get
// distinct slots since folding results are installed next to literals.
type Table struct {
	values []float64
}

func New() *Table { return &Table{values: make([]float64, 0, defaultSize)} }

// Intern appends v and returns its slot.
func (t *Table) Intern(v float64) Index {
	t.values = append(t.values, v)
	return Index(len(t.values) - 1)
}

// Get returns the value at i, or false for None and unknown slots.
func (t *Table) Get(i Index) (float64, bool) {
	if i < 0 || int(i) >= len(t.values) {
		return 0, false
	}
	return t.values[i], true
}

func (t *Table) Len() int { return len(t.values) }

func (t *Table) Snapshot() []float64 {
	out := make([]float64, len(t.values))
	copy(out, t.values)
	return out
}
