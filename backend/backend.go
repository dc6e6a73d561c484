// Package backend wires the bundle, expression, control-flow and datapath
// engines into the single invoker contract the outer driver calls against:
// programStart/programFinish, blockStart/blockFinish,
// bundleStart/bundleFinish, customInstruction, the structured control-flow
// operations, handleSetInstruction and handleExpression. Construction
// follows a chained-builder shape: a builder struct with chained With*
// methods collecting the collaborators, built into a concrete value by
// name.
package backend

import (
	"github.com/sarchlab/ccgen/bundle"
	"github.com/sarchlab/ccgen/codeword"
	"github.com/sarchlab/ccgen/control"
	"github.com/sarchlab/ccgen/datapath"
	"github.com/sarchlab/ccgen/emit"
	"github.com/sarchlab/ccgen/expr"
	"github.com/sarchlab/ccgen/ir"
	"github.com/sarchlab/ccgen/settings"
)

// Backend is one compile's worth of state: a program framer, a bundle
// engine, an expression/control-flow engine, and the datapath/codeword
// collaborators they share.
type Backend struct {
	Name string

	Settings  settings.Provider
	Datapath  *datapath.State
	Codewords *codeword.Table

	program *emit.Program
	bundle  *bundle.Engine
	expr    *expr.Engine
	control *control.Engine

	runOnce bool
}

// Builder collects the collaborators a Backend needs, in a
// WithX-chain-then-Build idiom.
type Builder struct {
	settings                settings.Provider
	codewords               *codeword.Table
	runOnce                 bool
	staticCodewordsRequired bool
}

// WithSettings sets the Settings provider the backend resolves
// instruments, signals and codeword overrides against.
func (b Builder) WithSettings(sp settings.Provider) Builder {
	b.settings = sp
	return b
}

// WithCodewords sets the codeword table, letting a caller preload one from
// a map file before compiling (config knob map_input_file).
func (b Builder) WithCodewords(cw *codeword.Table) Builder {
	b.codewords = cw
	return b
}

// WithRunOnce sets whether the emitted program stops after one pass
// (config knob run_once) rather than looping forever.
func (b Builder) WithRunOnce(runOnce bool) Builder {
	b.runOnce = runOnce
	return b
}

// WithStaticCodewordsRequired rejects instructions that don't carry a
// static codeword override for a multi-bit group, rather than growing the
// codeword table on demand (the Non-goal against automatic assignment
// under this mode).
func (b Builder) WithStaticCodewordsRequired(required bool) Builder {
	b.staticCodewordsRequired = required
	return b
}

// Build constructs a Backend named name from the collected collaborators.
func (b Builder) Build(name string) *Backend {
	dp := datapath.New()
	cw := b.codewords
	if cw == nil {
		cw = codeword.New()
	}
	program := emit.NewProgram()
	exprEngine := expr.New(program.Code, dp)
	controlEngine := control.New(program.Code, exprEngine)
	bundleEngine := bundle.New(b.settings, dp, cw, program.Code)
	bundleEngine.StaticCodewordsRequired = b.staticCodewordsRequired

	return &Backend{
		Name:      name,
		Settings:  b.settings,
		Datapath:  dp,
		Codewords: cw,
		program:   program,
		bundle:    bundleEngine,
		expr:      exprEngine,
		control:   controlEngine,
		runOnce:   b.runOnce,
	}
}

// ProgramStart emits the program header.
func (b *Backend) ProgramStart(name string) {
	b.program.Start(name, b.runOnce)
}

// ProgramFinish emits the program trailer.
func (b *Backend) ProgramFinish() {
	b.program.Finish(b.runOnce)
}

// BlockStart is a no-op exposed for parity with the invoker contract; label
// allocation happens per construct via NewLabelBase.
func (b *Backend) BlockStart(*ir.Block) {}

// BlockFinish is a no-op exposed for parity with the invoker contract.
func (b *Backend) BlockFinish(*ir.Block) {}

// BundleStart opens a new cycle's bundle.
func (b *Backend) BundleStart(comment string) error {
	return b.bundle.BundleStart(comment)
}

// CustomInstruction commits one scheduled gate into the open bundle.
func (b *Backend) CustomInstruction(instr *ir.CustomInstruction) error {
	return b.bundle.CustomInstruction(instr)
}

// BundleFinish flushes the open bundle into emitted assembly.
func (b *Backend) BundleFinish(startCycle, durationInCycles int, isLastBundle bool) error {
	return b.bundle.BundleFinish(startCycle, durationInCycles, isLastBundle)
}

// HandleSetInstruction lowers a classical-register assignment.
func (b *Backend) HandleSetInstruction(s *ir.SetInstruction) error {
	return b.expr.LowerAssign(s.Lhs, s.Rhs)
}

// HandleExpression lowers expr in predicate mode, jumping to labelIfFalse
// when it evaluates to false.
func (b *Backend) HandleExpression(expression ir.Expression, labelIfFalse string) error {
	return b.expr.LowerPredicate(expression, labelIfFalse)
}

// NewLabelBase mints a fresh label base for a structured construct the
// outer driver is about to lower, stamped with prefix for readability.
func (b *Backend) NewLabelBase(prefix string) string {
	return b.control.NewBase(prefix)
}

// IfElif lowers branch k of an if/elif/otherwise chain.
func (b *Backend) IfElif(base string, k int, cond ir.Expression) error {
	return b.control.IfElif(base, k, cond)
}

// IfOtherwise places the otherwise body's label.
func (b *Backend) IfOtherwise(base string, branchCount int) {
	b.control.IfOtherwise(base, branchCount)
}

// IfEnd closes an if/elif/otherwise chain.
func (b *Backend) IfEnd(base string) {
	b.control.IfEnd(base)
}

// ForStart lowers a for-loop header.
func (b *Backend) ForStart(base string, init *ir.SetInstruction, cond ir.Expression) error {
	return b.control.ForStart(base, init, cond)
}

// ForEnd lowers a for-loop's update and back-edge.
func (b *Backend) ForEnd(base string, update *ir.SetInstruction) error {
	return b.control.ForEnd(base, update)
}

// ForeachStart lowers a foreach loop's header.
func (b *Backend) ForeachStart(base string, lhs, from int) {
	b.control.ForeachStart(base, lhs, from)
}

// ForeachEnd lowers a foreach loop's increment/decrement and back-edge.
func (b *Backend) ForeachEnd(base string, lhs, from, to int) error {
	return b.control.ForeachEnd(base, lhs, from, to)
}

// Repeat places a repeat-until loop's start label.
func (b *Backend) Repeat(base string) {
	b.control.Repeat(base)
}

// Until lowers a repeat-until loop's condition and back-edge.
func (b *Backend) Until(base string, cond ir.Expression) error {
	return b.control.Until(base, cond)
}

// DoBreak lowers a break statement.
func (b *Backend) DoBreak() error {
	return b.control.Break()
}

// DoContinue lowers a continue statement.
func (b *Backend) DoContinue() error {
	return b.control.Continue()
}

// CodeSection returns the accumulated .CODE/.END text.
func (b *Backend) CodeSection() string {
	return b.program.String()
}

// DatapathSection returns the accumulated .DATAPATH text.
func (b *Backend) DatapathSection() string {
	return b.Datapath.Section()
}

// GetMap renders the codeword table for serialization (invoker contract's
// getMap()).
func (b *Backend) GetMap(note string) codeword.MapDocument {
	return b.Codewords.GetMap(note)
}
