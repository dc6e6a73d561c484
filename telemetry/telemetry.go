// Package telemetry wraps log/slog with a custom level above Info, logged
// through the standard context-free slog.Log entry point, and adds
// go-pretty table dumps for the backend's
// two big pieces of per-compile state: the codeword table and the
// in-flight BundleInfo matrix. Both are gated behind Verbose the same way
// core.PrintState is gated behind core.PrintToggle.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
)

// LevelTrace sits one step above slog.LevelInfo, used for the backend's
// diagnostic log lines (signal-shape warnings and signal conflicts).
const LevelTrace slog.Level = slog.LevelInfo + 1

// Verbose gates table dumps; Trace itself always reaches slog, and it's the
// handler's level filter that decides whether anything is printed.
var Verbose = false

// Trace logs a structured diagnostic line at LevelTrace.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// CodewordRow is one row of a codeword-table dump.
type CodewordRow struct {
	Instrument string
	Group      int
	Codeword   int
	Signal     string
}

// DumpCodewordTable renders the current codeword assignments as a table,
// in the style of core.PrintState's register/buffer tables.
func DumpCodewordTable(rows []CodewordRow) string {
	if !Verbose {
		return ""
	}
	t := table.NewWriter()
	t.SetTitle("Codeword Table")
	t.AppendHeader(table.Row{"Instrument", "Group", "Codeword", "Signal"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Instrument, r.Group, r.Codeword, r.Signal})
	}
	return t.Render()
}

// BundleRow is one populated (instrument, group) cell of a BundleInfo
// matrix dump.
type BundleRow struct {
	Instrument string
	Group      int
	Signal     string
	Duration   int
	Condition  string
}

// DumpBundleMatrix renders the current BundleInfo matrix as a table.
func DumpBundleMatrix(comment string, rows []BundleRow) string {
	if !Verbose {
		return ""
	}
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Bundle: %s", comment))
	t.AppendHeader(table.Row{"Instrument", "Group", "Signal", "Duration", "Condition"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Instrument, r.Group, r.Signal, r.Duration, r.Condition})
	}
	return t.Render()
}
