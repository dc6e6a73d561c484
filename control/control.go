package control

import (
	"fmt"

	"github.com/sarchlab/ccgen/ccerr"
	"github.com/sarchlab/ccgen/emit"
	"github.com/sarchlab/ccgen/expr"
	"github.com/sarchlab/ccgen/ir"
)

// Engine lowers structured control-flow statements into Code, calling back
// into Expr for every condition, initializer and update it carries. It
// owns the label allocator and the enclosing-loop stack that break/continue
// consult.
type Engine struct {
	Code *emit.Section
	Expr *expr.Engine

	labels Labels
	loops  LoopStack
}

// New returns a control-flow engine emitting into code via expr.
func New(code *emit.Section, exprEngine *expr.Engine) *Engine {
	return &Engine{Code: code, Expr: exprEngine}
}

// NewBase mints a fresh label base for a structured construct about to be
// lowered, stamped with prefix for readability.
func (e *Engine) NewBase(prefix string) string {
	return e.labels.NewBase(prefix)
}

// IfElif lowers branch k of an if/elif/otherwise chain: k>0 closes the
// prior branch and places this branch's label, then the condition is
// lowered in predicate mode with label-if-false pointing at branch k+1.
// The caller emits the branch body itself after this returns.
func (e *Engine) IfElif(base string, k int, cond ir.Expression) error {
	if k > 0 {
		e.Code.Emit("", emit.Jmp, fmt.Sprintf("@%s", endLabel(base)), "")
		e.Code.EmitLabel(branchLabel(base, k) + ":")
	}
	return e.Expr.LowerPredicate(cond, branchLabel(base, k+1))
}

// IfOtherwise places the label the final otherwise body starts at, where
// branchCount is the number of if/elif branches already lowered.
func (e *Engine) IfOtherwise(base string, branchCount int) {
	e.Code.EmitLabel(branchLabel(base, branchCount) + ":")
}

// IfEnd closes an if/elif/otherwise chain.
func (e *Engine) IfEnd(base string) {
	e.Code.EmitLabel(endLabel(base) + ":")
}

// ForStart lowers a for-loop header: an optional initializer, an
// unconditional nop placed regardless of whether the initializer's
// register-write hazard actually applies, the loop-start label, and the
// loop condition in predicate mode.
func (e *Engine) ForStart(base string, init *ir.SetInstruction, cond ir.Expression) error {
	if init != nil {
		if err := e.Expr.LowerAssign(init.Lhs, init.Rhs); err != nil {
			return err
		}
	}
	e.Code.Emit("", emit.Nop, "", "")
	e.Code.EmitLabel(startLabel(base) + ":")
	e.loops.Push(base)
	return e.Expr.LowerPredicate(cond, endLabel(base))
}

// ForEnd lowers an optional update, jumps back to the loop start, and
// places the loop-end label.
func (e *Engine) ForEnd(base string, update *ir.SetInstruction) error {
	if update != nil {
		if err := e.Expr.LowerAssign(update.Lhs, update.Rhs); err != nil {
			return err
		}
	}
	e.Code.Emit("", emit.Jmp, fmt.Sprintf("@%s", startLabel(base)), "")
	e.Code.EmitLabel(endLabel(base) + ":")
	e.loops.Pop()
	return nil
}

// ForeachStart lowers foreach(lhs, from, to)'s header: the counter's
// initial move and the loop-start label. The caller emits the body.
func (e *Engine) ForeachStart(base string, lhs, from int) {
	e.Code.Emit("", emit.Move, fmt.Sprintf("%d,%s", from, expr.RegName(lhs)), "")
	e.Code.EmitLabel(startLabel(base) + ":")
	e.loops.Push(base)
}

// ForeachEnd lowers foreach's increment/decrement-and-branch-back sequence
// and the loop-end label. Which of the three shapes (ascending,
// single-step descending via loop, general descending) applies is driven
// by the relative order of from and to.
func (e *Engine) ForeachEnd(base string, lhs, from, to int) error {
	reg := expr.RegName(lhs)
	switch {
	case to >= from:
		e.Code.Emit("", emit.Add, fmt.Sprintf("%s,1,%s", reg, reg), "")
		e.Code.Emit("", emit.Nop, "", "")
		e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,%d,@%s", reg, to+1, startLabel(base)), "")
	case to == 0:
		e.Code.Emit("", emit.Loop, fmt.Sprintf("%s,@%s", reg, startLabel(base)), "")
	default:
		e.Code.Emit("", emit.Sub, fmt.Sprintf("%s,1,%s", reg, reg), "")
		e.Code.Emit("", emit.Nop, "", "")
		e.Code.Emit("", emit.Jge, fmt.Sprintf("%s,%d,@%s", reg, to, startLabel(base)), "")
	}
	e.Code.EmitLabel(endLabel(base) + ":")
	e.loops.Pop()
	return nil
}

// Repeat places a repeat-until loop's start label.
func (e *Engine) Repeat(base string) {
	e.Code.EmitLabel(startLabel(base) + ":")
	e.loops.Push(base)
}

// Until lowers a repeat-until loop's condition, jumping back to the start
// when true and falling through to the end label when false.
func (e *Engine) Until(base string, cond ir.Expression) error {
	if err := e.Expr.LowerPredicate(cond, endLabel(base)); err != nil {
		return err
	}
	e.Code.Emit("", emit.Jmp, fmt.Sprintf("@%s", startLabel(base)), "")
	e.Code.EmitLabel(endLabel(base) + ":")
	e.loops.Pop()
	return nil
}

// Break emits a jump to the innermost enclosing loop's end label.
func (e *Engine) Break() error {
	base, ok := e.loops.Current()
	if !ok {
		return ccerr.Internal("break outside any enclosing loop")
	}
	e.Code.Emit("", emit.Jmp, fmt.Sprintf("@%s", endLabel(base)), "")
	return nil
}

// Continue emits a jump to the innermost enclosing loop's start label.
func (e *Engine) Continue() error {
	base, ok := e.loops.Current()
	if !ok {
		return ccerr.Internal("continue outside any enclosing loop")
	}
	e.Code.Emit("", emit.Jmp, fmt.Sprintf("@%s", startLabel(base)), "")
	return nil
}
