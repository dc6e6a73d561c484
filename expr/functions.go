package expr

import (
	"fmt"

	"github.com/sarchlab/ccgen/ccerr"
	"github.com/sarchlab/ccgen/emit"
	"github.com/sarchlab/ccgen/ir"
)

// lowerFunctionCall dispatches a FunctionCall node by name. The Non-goal
// against arbitrary nesting means every case here resolves its operands as
// leaves (resolveLeaf/bitRefs), never recursing back into lower(); the
// transparent int(...) cast descends into its function-call operand through
// lowerFunctionCall.
func (e *Engine) lowerFunctionCall(n ir.FunctionCall, m mode) error {
	switch n.Name {
	case "int":
		if len(n.Operands) != 1 {
			return ccerr.Internal("int(...) cast expects exactly one operand, got %d", len(n.Operands))
		}
		inner, ok := n.Operands[0].(ir.FunctionCall)
		if !ok {
			return ccerr.Internal("int(...) cast operand must itself be a function call")
		}
		return e.lowerFunctionCall(inner, m)
	case "operator~":
		return e.lowerUnaryInt(n, m)
	case "operator!":
		return e.lowerUnaryBit(n, m)
	case "operator+", "operator-", "operator&", "operator|", "operator^":
		return e.lowerBinaryInt(n, m)
	case "operator==", "operator!=", "operator>=", "operator<", "operator>", "operator<=":
		return e.lowerRelational(n, m)
	case "operator&&", "operator||", "operator^^":
		return e.lowerBinaryBit(n, m)
	default:
		return ccerr.Internal("unsupported function %q", n.Name)
	}
}

// lowerUnaryInt implements operator~ on a classical-register operand:
// not <src>,<dest>. Only valid in assignment mode.
func (e *Engine) lowerUnaryInt(n ir.FunctionCall, m mode) error {
	if !m.assign {
		return ccerr.Internal("operator~ cannot appear in predicate position")
	}
	if len(n.Operands) != 1 {
		return ccerr.Internal("operator~ expects exactly one operand, got %d", len(n.Operands))
	}
	leaf, err := resolveLeaf(n.Operands[0])
	if err != nil {
		return err
	}
	if leaf.isLiteral {
		return ccerr.Internal("operator~ requires a register operand, got a literal")
	}
	e.Code.Emit("", emit.Not, fmt.Sprintf("%s,%s", leaf.reg, m.destReg()), "")
	return nil
}

// lowerUnaryBit implements operator! on a bit-register operand. It is the
// mirror of the bare-Reference bit test in lowerReference: that one jumps
// to label-if-false when the bit is zero (jlt); negating the bit means
// jumping to label-if-false when the bit is one (jge) instead.
func (e *Engine) lowerUnaryBit(n ir.FunctionCall, m mode) error {
	if m.assign {
		return ccerr.Internal("operator! only valid in predicate position")
	}
	if len(n.Operands) != 1 {
		return ccerr.Internal("operator! expects exactly one operand, got %d", len(n.Operands))
	}
	refs, err := bitRefs(n.Operands)
	if err != nil {
		return err
	}
	mask, err := e.bitCast(refs)
	if err != nil {
		return err
	}
	e.Code.Emit("", emit.And, fmt.Sprintf("%s,0x%08x,%s", RegTmp0, mask, RegTmp1), "")
	e.Code.Emit("", emit.Nop, "", "")
	e.Code.Emit("", emit.Jge, fmt.Sprintf("%s,1,@%s", RegTmp1, m.labelIfFalse), "")
	return nil
}

// lowerBinaryBit implements operator&&, operator||, operator^^ over two
// bit-register operands. The bit-cast protocol already loads an entire DSM
// word into REG_TMP0; && and ^^ extend it to test the two operands'
// individual masks separately, while || tests their combined mask.
func (e *Engine) lowerBinaryBit(n ir.FunctionCall, m mode) error {
	if m.assign {
		return ccerr.Internal("bit-logic operators only valid in predicate position")
	}
	if len(n.Operands) != 2 {
		return ccerr.Internal("%s expects exactly two operands, got %d", n.Name, len(n.Operands))
	}
	refs, err := bitRefs(n.Operands)
	if err != nil {
		return err
	}
	word, masks, err := e.resolveBitMasks(refs)
	if err != nil {
		return err
	}
	e.emitBitCastLoad(word)
	maskA, maskB := masks[0], masks[1]

	switch n.Name {
	case "operator&&":
		// Conjunction as two sequential bit tests: falling through both
		// means both bits were set.
		e.Code.Emit("", emit.And, fmt.Sprintf("%s,0x%08x,%s", RegTmp0, maskA, RegTmp1), "")
		e.Code.Emit("", emit.Nop, "", "")
		e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,1,@%s", RegTmp1, m.labelIfFalse), "")
		e.Code.Emit("", emit.And, fmt.Sprintf("%s,0x%08x,%s", RegTmp0, maskB, RegTmp1), "")
		e.Code.Emit("", emit.Nop, "", "")
		e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,1,@%s", RegTmp1, m.labelIfFalse), "")
		return nil
	case "operator||":
		// Disjunction as a single test against the combined mask: the
		// masked word is nonzero iff at least one of the two bits is set.
		combined := maskA | maskB
		e.Code.Emit("", emit.And, fmt.Sprintf("%s,0x%08x,%s", RegTmp0, combined, RegTmp1), "")
		e.Code.Emit("", emit.Nop, "", "")
		e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,1,@%s", RegTmp1, m.labelIfFalse), "")
		return nil
	case "operator^^":
		return e.lowerBitXor(maskA, maskB, m.labelIfFalse)
	default:
		return ccerr.Internal("unsupported bit function %q", n.Name)
	}
}

// lowerBitXor implements exclusive-or over two bit masks of the word
// already sitting in REG_TMP0. There's no single and/jcc sequence that
// distinguishes "exactly one set" from "both set" against a combined mask,
// so this mints two internal labels and branches on the first bit before
// testing the second.
func (e *Engine) lowerBitXor(maskA, maskB uint32, labelIfFalse string) error {
	aZero := e.nextLabel("xor_azero")
	end := e.nextLabel("xor_end")

	e.Code.Emit("", emit.And, fmt.Sprintf("%s,0x%08x,%s", RegTmp0, maskA, RegTmp1), "")
	e.Code.Emit("", emit.Nop, "", "")
	e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,1,@%s", RegTmp1, aZero), "")

	// bit a set: xor is true iff bit b is clear.
	e.Code.Emit("", emit.And, fmt.Sprintf("%s,0x%08x,%s", RegTmp0, maskB, RegTmp1), "")
	e.Code.Emit("", emit.Nop, "", "")
	e.Code.Emit("", emit.Jge, fmt.Sprintf("%s,1,@%s", RegTmp1, labelIfFalse), "")
	e.Code.Emit("", emit.Jmp, fmt.Sprintf("@%s", end), "")

	e.Code.EmitLabel(aZero + ":")
	// bit a clear: xor is true iff bit b is set.
	e.Code.Emit("", emit.And, fmt.Sprintf("%s,0x%08x,%s", RegTmp0, maskB, RegTmp1), "")
	e.Code.Emit("", emit.Nop, "", "")
	e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,1,@%s", RegTmp1, labelIfFalse), "")

	e.Code.EmitLabel(end + ":")
	return nil
}
