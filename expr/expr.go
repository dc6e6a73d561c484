// Package expr lowers typed IR expressions into register-machine assembly.
// Dispatch is a single type switch per ir.Expression node kind (IntLiteral,
// Reference, FunctionCall): one match per node kind, no virtual calls,
// over a typed expression tree rather than a flat opcode string.
//
// Two entry points share one recursive core: LowerAssign materializes a
// result into a destination classical register, LowerPredicate emits a
// conditional jump to label-if-false and may only be used in condition
// position.
package expr

import (
	"fmt"

	"github.com/sarchlab/ccgen/ccerr"
	"github.com/sarchlab/ccgen/datapath"
	"github.com/sarchlab/ccgen/emit"
	"github.com/sarchlab/ccgen/ir"
)

// Reserved scratch register names, used only inside this package; the
// remaining registers back classical-register references.
const (
	RegTmp0 = "REG_TMP0"
	RegTmp1 = "REG_TMP1"
)

// RegName formats the textual name of classical register idx.
func RegName(idx int) string {
	return fmt.Sprintf("R%d", idx)
}

// Engine lowers expressions into a code section, consulting Datapath for
// the DSM bits backing bit-register operands.
type Engine struct {
	Code     *emit.Section
	Datapath *datapath.State
	labelSeq int
}

// nextLabel mints a unique internal label, used only by multi-branch bit
// logic (operator^^) that needs more control flow than a single jump.
func (e *Engine) nextLabel(prefix string) string {
	e.labelSeq++
	return fmt.Sprintf("_%s%d", prefix, e.labelSeq)
}

// New returns an expression engine emitting into sec.
func New(sec *emit.Section, dp *datapath.State) *Engine {
	return &Engine{Code: sec, Datapath: dp}
}

// CheckIntLiteral enforces the integer literal preconditions: 0 <= value
// < 2^32-1-headRoom, additionally requiring value >= bottomRoom when the
// caller needs to reserve room below zero for an arithmetic adjustment.
func CheckIntLiteral(value uint64, bottomRoom, headRoom uint64) error {
	if value < bottomRoom {
		return ccerr.User("integer literal %d is below the required bottom room %d", value, bottomRoom)
	}
	const maxRepresentable = (uint64(1) << 32) - 1
	if value >= maxRepresentable-headRoom {
		return ccerr.User("integer literal %d exceeds 32 bits (headRoom=%d)", value, headRoom)
	}
	return nil
}

// operand is a resolved leaf: either a literal value or a register name.
type operand struct {
	isLiteral bool
	literal   uint64
	reg       string
}

// resolveLeaf accepts only IntLiteral and classical-register Reference
// nodes: the Non-goal excludes arbitrary function-call nesting, so binary
// and relational operators only ever see leaves here.
func resolveLeaf(e ir.Expression) (operand, error) {
	switch n := e.(type) {
	case ir.IntLiteral:
		if err := CheckIntLiteral(n.Value, 0, 0); err != nil {
			return operand{}, err
		}
		return operand{isLiteral: true, literal: n.Value}, nil
	case ir.Reference:
		if n.Kind != ir.ClassicalRegister {
			return operand{}, ccerr.Internal("bit register used where an integer operand was expected")
		}
		return operand{reg: RegName(n.Index)}, nil
	default:
		return operand{}, ccerr.Internal("unsupported nested expression in operand position")
	}
}

func (o operand) text() string {
	if o.isLiteral {
		return fmt.Sprintf("%d", o.literal)
	}
	return o.reg
}

// LowerAssign lowers e in assignment mode, materializing its value into
// classical register dest.
func (e *Engine) LowerAssign(dest int, expr ir.Expression) error {
	return e.lower(expr, mode{assign: true, dest: dest})
}

// LowerPredicate lowers expr in predicate mode: execution falls through
// when expr is true, and jumps to labelIfFalse when it is false. Only
// relational/bit-valued expressions may appear here.
func (e *Engine) LowerPredicate(expr ir.Expression, labelIfFalse string) error {
	return e.lower(expr, mode{labelIfFalse: labelIfFalse})
}

type mode struct {
	assign       bool
	dest         int
	labelIfFalse string
}

func (m mode) destReg() string {
	if m.assign {
		return RegName(m.dest)
	}
	return RegTmp0
}

func (e *Engine) lower(expr ir.Expression, m mode) error {
	switch n := expr.(type) {
	case ir.IntLiteral:
		return e.lowerIntLiteral(n, m)
	case ir.Reference:
		return e.lowerReference(n, m)
	case ir.FunctionCall:
		return e.lowerFunctionCall(n, m)
	default:
		return ccerr.Internal("unreachable expression shape %T", expr)
	}
}

func (e *Engine) lowerIntLiteral(n ir.IntLiteral, m mode) error {
	if !m.assign {
		return ccerr.Internal("integer literal cannot appear directly in predicate position")
	}
	if err := CheckIntLiteral(n.Value, 0, 0); err != nil {
		return err
	}
	e.Code.Emit("", emit.Move, fmt.Sprintf("%d,%s", n.Value, m.destReg()), "")
	return nil
}

func (e *Engine) lowerReference(n ir.Reference, m mode) error {
	if n.Kind == ir.ClassicalRegister {
		if !m.assign {
			return ccerr.Internal("classical register cannot appear directly in predicate position")
		}
		e.Code.Emit("", emit.Move, fmt.Sprintf("%s,%s", RegName(n.Index), m.destReg()), "")
		return nil
	}
	// Bit register in predicate mode: bit-cast then test its DSM bit's mask.
	if m.assign {
		return ccerr.Internal("bit register cannot be assigned directly into a classical register")
	}
	mask, err := e.bitCast([]ir.Reference{n})
	if err != nil {
		return err
	}
	return e.emitBitTest(mask, m.labelIfFalse)
}

// emitBitTest emits the and/nop/jlt sequence that follows the bit-cast
// protocol, jumping to labelIfFalse when the masked bits are zero.
func (e *Engine) emitBitTest(mask uint32, labelIfFalse string) error {
	e.Code.Emit("", emit.And, fmt.Sprintf("%s,0x%08x,%s", RegTmp0, mask, RegTmp1), "")
	e.Code.Emit("", emit.Nop, "", "")
	e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,1,@%s", RegTmp1, labelIfFalse), "")
	return nil
}
