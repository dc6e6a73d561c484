// Package codeword implements the codeword table: an append-only mapping
// from (instrument name, group) to an ordered list of signal-value
// strings, where the codeword is simply the index into that list. Index 0
// is always the empty string, the "idle" codeword. The allocator is
// append-only and name-keyed, specialized to a two-level key and to
// growing a list per key rather than a single counter.
package codeword

import (
	"sort"

	"github.com/sarchlab/ccgen/ccerr"
)

type key struct {
	Instrument string
	Group      int
}

// Table is the codeword allocator for one compile.
type Table struct {
	entries      map[key][]string
	mapPreloaded bool
}

// New returns an empty codeword table with only the idle codeword defined
// wherever it's first touched.
func New() *Table {
	return &Table{entries: make(map[key][]string)}
}

// Preloaded reports whether the table was populated from a map file, in
// which case Assign never grows a list: an unknown signal is a user error.
func (t *Table) Preloaded() bool {
	return t.mapPreloaded
}

// list returns the entry list for (instrument, group), creating it (with
// the idle codeword at index 0) on first access.
func (t *Table) list(instrument string, group int) []string {
	k := key{instrument, group}
	l, ok := t.entries[k]
	if !ok {
		l = []string{""}
		t.entries[k] = l
	}
	return l
}

// Assign resolves signalValue to a codeword for (instrument, group): the
// index of signalValue in that (instrument, group)'s ordered list,
// appending a new entry if the table isn't preloaded and the value hasn't
// been seen before. Equality is byte-exact.
func (t *Table) Assign(instrument string, group int, signalValue string) (int, error) {
	l := t.list(instrument, group)
	for i, v := range l {
		if v == signalValue {
			return i, nil
		}
	}
	if t.mapPreloaded {
		return 0, ccerr.User(
			"signal %q not present in preloaded codeword map for instrument %q group %d",
			signalValue, instrument, group,
		)
	}
	k := key{instrument, group}
	t.entries[k] = append(l, signalValue)
	return len(l), nil
}

// List returns the current ordered signal-value list for (instrument,
// group), without allocating one if it doesn't exist yet.
func (t *Table) List(instrument string, group int) []string {
	return t.entries[key{instrument, group}]
}

// Row is one populated (instrument, group, codeword) entry, used for
// telemetry dumps and map-file serialization.
type Row struct {
	Instrument string
	Group      int
	Codeword   int
	Signal     string
}

// Rows returns every assigned entry, ordered by instrument name then
// group then codeword, for deterministic dumps and round-trips.
func (t *Table) Rows() []Row {
	rows := make([]Row, 0, len(t.entries))
	for k, l := range t.entries {
		for cw, sig := range l {
			rows = append(rows, Row{Instrument: k.Instrument, Group: k.Group, Codeword: cw, Signal: sig})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Instrument != rows[j].Instrument {
			return rows[i].Instrument < rows[j].Instrument
		}
		if rows[i].Group != rows[j].Group {
			return rows[i].Group < rows[j].Group
		}
		return rows[i].Codeword < rows[j].Codeword
	})
	return rows
}
