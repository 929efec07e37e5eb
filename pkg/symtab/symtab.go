// Package symtab implements the multi-level symbol table.
//
// Level 0 holds globals; level 1 holds the routine currently being checked.
// A symbol is keyed by (identifier, class) within a level, so a function's
// Routine entry and its Scalar return alias coexist under one name.
package symtab

import (
	"errors"
	"fmt"

	"github.com/xplshn/mpc/pkg/strtab"
	"github.com/xplshn/mpc/pkg/token"
)

// DefaultLevels is global plus one routine body.
const DefaultLevels = 2

// Scope selects the levels a lookup searches.
type Scope int

// AllScopes searches the current level first, then every enclosing one.
const AllScopes Scope = -1

var (
	ErrScopeOverflow   = errors.New("scope overflow")
	ErrScopeUnderflow  = errors.New("scope underflow")
	ErrDuplicateSymbol = errors.New("duplicate symbol")
)

// VectorInfo describes a fixed-length vector whose first index is Lower.
type VectorInfo struct {
	Lower  int `json:"lower"`
	Length int `json:"length"`
}

// RoutineInfo is a routine's call signature. Args are owned copies so the
// signature outlives the routine's local scope.
type RoutineInfo struct {
	Args []Entry `json:"args"`
}

func (r *RoutineInfo) Argc() int {
	if r == nil {
		return 0
	}
	return len(r.Args)
}

type Entry struct {
	ID          strtab.ID    `json:"id"`
	Name        string       `json:"name"`
	Class       token.Class  `json:"class"`
	Type        token.Type   `json:"type"`
	Initialized bool         `json:"initialized"`
	Level       int          `json:"level"`
	Vector      *VectorInfo  `json:"vector,omitempty"`
	Routine     *RoutineInfo `json:"routine,omitempty"`
}

type key struct {
	id    strtab.ID
	class token.Class
}

// level owns its entries; dropping the level drops them.
type level struct {
	index map[key]*Entry
	order []*Entry
}

func (l *level) reset() {
	l.index = make(map[key]*Entry)
	l.order = nil
}

// Table is owned by a single compilation pass and is not safe for concurrent use.
type Table struct {
	names   *strtab.Table
	levels  []level
	current int
}

// New returns a table with n scope levels that resolves identifier text through names.
func New(names *strtab.Table, n int) *Table {
	if n < 1 {
		n = DefaultLevels
	}
	t := &Table{names: names, levels: make([]level, n)}
	for i := range t.levels {
		t.levels[i].reset()
	}
	return t
}

// Level returns the current scope level.
func (t *Table) Level() int { return t.current }

// Levels returns the number of levels the table supports.
func (t *Table) Levels() int { return len(t.levels) }

func (t *Table) EnterScope() error {
	if t.current+1 >= len(t.levels) {
		return fmt.Errorf("symtab: %w: already at level %d of %d", ErrScopeOverflow, t.current, len(t.levels))
	}
	t.current++
	return nil
}

// LeaveScope drops every entry of the current level.
func (t *Table) LeaveScope() error {
	if t.current == 0 {
		return fmt.Errorf("symtab: %w: already at global level", ErrScopeUnderflow)
	}
	t.levels[t.current].reset()
	t.current--
	return nil
}

// Lookup finds (id, class) at the given level, or at the nearest level when
// scope is AllScopes. It returns nil if no entry exists.
func (t *Table) Lookup(id strtab.ID, class token.Class, scope Scope) *Entry {
	k := key{id, class}
	if scope != AllScopes {
		if int(scope) < 0 || int(scope) > t.current {
			return nil
		}
		return t.levels[scope].index[k]
	}
	for lvl := t.current; lvl >= 0; lvl-- {
		if e, ok := t.levels[lvl].index[k]; ok {
			return e
		}
	}
	return nil
}

// Current is shorthand for a lookup restricted to the current level.
func (t *Table) Current(id strtab.ID, class token.Class) *Entry {
	return t.Lookup(id, class, Scope(t.current))
}

// Install adds an uninitialized entry at the current level.
func (t *Table) Install(id strtab.ID, class token.Class, typ token.Type) (*Entry, error) {
	name, err := t.names.Resolve(id)
	if err != nil {
		return nil, fmt.Errorf("symtab: install: %w", err)
	}
	lv := &t.levels[t.current]
	k := key{id, class}
	if _, ok := lv.index[k]; ok {
		return nil, fmt.Errorf("symtab: %w: %s %q at level %d", ErrDuplicateSymbol, class, name, t.current)
	}
	e := &Entry{ID: id, Name: name, Class: class, Type: typ, Level: t.current}
	lv.index[k] = e
	lv.order = append(lv.order, e)
	return e, nil
}

// CopyForSignature returns a deep copy of e without its routine info.
func CopyForSignature(e *Entry) Entry {
	c := *e
	c.Routine = nil
	if e.Vector != nil {
		v := *e.Vector
		c.Vector = &v
	}
	return c
}

// LevelSnapshot lists the entries of one level in installation order.
type LevelSnapshot struct {
	Level   int     `json:"level"`
	Entries []Entry `json:"entries"`
}

func (t *Table) Snapshot() []LevelSnapshot {
	out := make([]LevelSnapshot, 0, t.current+1)
	for lvl := 0; lvl <= t.current; lvl++ {
		ls := LevelSnapshot{Level: lvl, Entries: make([]Entry, 0, len(t.levels[lvl].order))}
		for _, e := range t.levels[lvl].order {
			ls.Entries = append(ls.Entries, *e)
		}
		out = append(out, ls)
	}
	return out
}
