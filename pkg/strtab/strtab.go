// Package strtab interns identifier text to stable integer handles.
package strtab

import (
	"errors"
	"fmt"
)

// ID is a handle into a Table. Two IDs from the same table are equal iff
// their text is equal.
type ID int

// NoID marks a value that is not backed by a named location.
const NoID ID = -1

var ErrOutOfRange = errors.New("identifier index out of range")

const defaultSize = 512

// Table is an append-only identifier table. IDs are never invalidated or reused.
type Table struct {
	text  []string
	index map[string]ID
}

func New() *Table {
	return &Table{
		text:  make([]string, 0, defaultSize),
		index: make(map[string]ID, defaultSize),
	}
}

// Intern returns the ID of s, installing it first if it was never seen.
func (t *Table) Intern(s string) ID {
	if id, ok := t.index[s]; ok {
		return id
	}
	id := ID(len(t.text))
	t.text = append(t.text, s)
	t.index[s] = id
	return id
}

// Lookup returns the ID of s without installing it.
func (t *Table) Lookup(s string) (ID, bool) {
	id, ok := t.index[s]
	return id, ok
}

// Resolve returns the text behind id.
func (t *Table) Resolve(id ID) (string, error) {
	if id < 0 || int(id) >= len(t.text) {
		return "", fmt.Errorf("strtab: %w: %d (have %d)", ErrOutOfRange, id, len(t.text))
	}
	return t.text[id], nil
}

// Name is Resolve for IDs the caller obtained from this table. An unknown
// ID is a compiler bug and panics.
func (t *Table) Name(id ID) string {
	s, err := t.Resolve(id)
	if err != nil {
		panic(err)
	}
	return s
}

func (t *Table) Len() int { return len(t.text) }

// Snapshot returns the interned text in ID order.
func (t *Table) Snapshot() []string {
	out := make([]string, len(t.text))
	copy(out, t.text)
	return out
}
