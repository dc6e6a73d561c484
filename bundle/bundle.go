// Package bundle implements the per-cycle bundle lowering engine: it
// aggregates every custom instruction scheduled at one cycle into a ragged
// BundleInfo matrix indexed by (instrument, group), resolves codewords and
// trigger bits, detects signal conflicts, and flushes the matrix into
// seq_out/seq_out_sm/seq_in_sm/seq_inv_sm emissions with the necessary
// timing padding. This is the largest of the three core subsystems, and
// its shape is grounded piecewise: the ragged two-level matrix follows a
// per-cycle indexed program structure, and the allocate-then-emit
// sequencing follows a "resolve an index, emit once on first use" idiom
// already generalized once in the datapath package.
package bundle

import (
	"fmt"

	"github.com/sarchlab/ccgen/ccerr"
	"github.com/sarchlab/ccgen/codeword"
	"github.com/sarchlab/ccgen/datapath"
	"github.com/sarchlab/ccgen/emit"
	"github.com/sarchlab/ccgen/ir"
	"github.com/sarchlab/ccgen/settings"
)

// BundleInfo is one (instrument, group) cell of the transient per-bundle
// matrix.
type BundleInfo struct {
	SignalValue             string
	DurationInCycles        int
	StaticCodewordOverride  int // -1 = unused
	Condition               ir.ConditionType
	CondOperands            []int // classical-bit indices, up to two
	IsMeasFeedback          bool
	Operand                 int // qubit operand backing the feedback read, -1 if unused
	BregOperand             int // classical-bit operand backing the feedback read, -1 if unused
}

func newBundleInfo() BundleInfo {
	return BundleInfo{
		StaticCodewordOverride: -1,
		Condition:              ir.ConditionAlways,
		Operand:                -1,
		BregOperand:            -1,
	}
}

// Engine is the per-compile bundle lowering state: the transient matrix
// plus the collaborators it resolves against and the timing cursor it
// advances. Single-threaded, single-tenant.
type Engine struct {
	Settings  settings.Provider
	Datapath  *datapath.State
	Codewords *codeword.Table
	Code      *emit.Section

	// StaticCodewordsRequired rejects a commit whose instruction doesn't
	// carry a static codeword override for a multi-bit group, rather than
	// growing the codeword table on demand (the Non-goal against automatic
	// codeword assignment under this mode).
	StaticCodewordsRequired bool

	matrix       [][]BundleInfo
	lastEndCycle map[int]int
}

// New returns a bundle engine over the given collaborators.
func New(sp settings.Provider, dp *datapath.State, cw *codeword.Table, code *emit.Section) *Engine {
	return &Engine{
		Settings:     sp,
		Datapath:     dp,
		Codewords:    cw,
		Code:         code,
		lastEndCycle: make(map[int]int),
	}
}

func slotLabel(slot int) string {
	return fmt.Sprintf("[%d]", slot)
}

// BundleStart rebuilds the matrix as a ragged per-instrument, per-group
// grid sized from the Settings provider, and emits the bundle's leading
// comment.
func (e *Engine) BundleStart(comment string) error {
	n := e.Settings.InstrumentsSize()
	e.matrix = make([][]BundleInfo, n)
	for i := 0; i < n; i++ {
		ic, err := e.Settings.InstrumentControl(i)
		if err != nil {
			return ccerr.WithContext(err, "bundleStart: resolving instrument control")
		}
		row := make([]BundleInfo, ic.ControlModeGroupCnt)
		for g := range row {
			row[g] = newBundleInfo()
		}
		e.matrix[i] = row
	}
	if comment != "" {
		e.Code.Comment(comment)
	}
	return nil
}
