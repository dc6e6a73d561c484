package codeword

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// MapDocument is the on-disk shape of a codeword map file: a free-text
// note plus, per instrument, an ordered list of groups, each an ordered
// list of signal-value strings.
type MapDocument struct {
	Note         string                `json:"note"`
	CodewordTable map[string][][]string `json:"codeword_table"`
}

// LoadMapFile reads a map file from path and returns a Table preloaded
// from it. A preloaded table rejects any signal value not present in the
// file: once preloaded, an unknown signal is a user error rather than a
// new assignment.
func LoadMapFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codeword: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadMap(f)
}

// LoadMap parses a map document from r into a preloaded Table.
func LoadMap(r io.Reader) (*Table, error) {
	var doc MapDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("codeword: decode map: %w", err)
	}
	t := New()
	for instrument, groups := range doc.CodewordTable {
		for group, signals := range groups {
			k := key{instrument, group}
			if len(signals) == 0 || signals[0] != "" {
				// Guarantee the idle codeword at index 0 even if the file
				// omits it, so lookups stay consistent with a grown table.
				signals = append([]string{""}, signals...)
			}
			t.entries[k] = append([]string(nil), signals...)
		}
	}
	t.mapPreloaded = true
	return t, nil
}

// GetMap renders the table as a MapDocument ready for JSON encoding,
// matching the invoker contract's getMap() operation.
func (t *Table) GetMap(note string) MapDocument {
	doc := MapDocument{Note: note, CodewordTable: make(map[string][][]string)}
	maxGroup := make(map[string]int)
	for k := range t.entries {
		if g, ok := maxGroup[k.Instrument]; !ok || k.Group > g {
			maxGroup[k.Instrument] = k.Group
		}
	}
	instruments := make([]string, 0, len(maxGroup))
	for name := range maxGroup {
		instruments = append(instruments, name)
	}
	sort.Strings(instruments)
	for _, name := range instruments {
		groups := make([][]string, maxGroup[name]+1)
		for g := range groups {
			groups[g] = t.entries[key{name, g}]
		}
		doc.CodewordTable[name] = groups
	}
	return doc
}

// SaveMapFile writes the table's current codeword assignments to path as
// a map file.
func (t *Table) SaveMapFile(path, note string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("codeword: create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(t.GetMap(note))
}
