package control

import (
	"github.com/sarchlab/ccgen/ccerr"
	"github.com/sarchlab/ccgen/ir"
)

// Decoded is the condition-gate shape an instruction's conditional guard
// decodes to, plus the bit operands that feed it.
type Decoded struct {
	Type     ir.ConditionType
	Operands []ir.Reference
}

var directBinaryBitType = map[string]ir.ConditionType{
	"operator&&": ir.ConditionAnd,
	"operator||": ir.ConditionOr,
	"operator^^": ir.ConditionXor,
	// Equality/inequality over bit operands aren't bit-logic operators in
	// the expression engine, but the condition decoder accepts them as
	// aliases: two bits are equal iff their XOR is zero (NXOR), unequal iff
	// their XOR is one (XOR). codegen_cc.cc's decode_condition recognizes
	// both spellings at the positive (non-negated) position; only the
	// negated forms were distilled into the earlier bullet list.
	"operator==": ir.ConditionNxor,
	"operator!=": ir.ConditionXor,
}

var negatedType = map[ir.ConditionType]ir.ConditionType{
	ir.ConditionAnd:  ir.ConditionNand,
	ir.ConditionNand: ir.ConditionAnd,
	ir.ConditionOr:   ir.ConditionNor,
	ir.ConditionNor:  ir.ConditionOr,
	ir.ConditionXor:  ir.ConditionNxor,
	ir.ConditionNxor: ir.ConditionXor,
}

// DecodeCondition translates an IR expression used as an instruction's
// conditional guard into a hardware condition-gate shape.
func DecodeCondition(expr ir.Expression) (Decoded, error) {
	switch n := expr.(type) {
	case ir.BitLiteral:
		if n.Value {
			return Decoded{Type: ir.ConditionAlways}, nil
		}
		return Decoded{Type: ir.ConditionNever}, nil
	case ir.Reference:
		if n.Kind != ir.BitRegister {
			return Decoded{}, ccerr.Internal("unsupported conditional expression shape: classical register used as a guard")
		}
		return Decoded{Type: ir.ConditionUnary, Operands: []ir.Reference{n}}, nil
	case ir.FunctionCall:
		return decodeFunctionCall(n)
	default:
		return Decoded{}, ccerr.Internal("unsupported conditional expression shape %T", expr)
	}
}

func decodeFunctionCall(n ir.FunctionCall) (Decoded, error) {
	if n.Name == "operator!" || n.Name == "operator~" {
		if len(n.Operands) != 1 {
			return Decoded{}, ccerr.Internal("%s expects exactly one operand in condition position", n.Name)
		}
		switch inner := n.Operands[0].(type) {
		case ir.Reference:
			if inner.Kind != ir.BitRegister {
				return Decoded{}, ccerr.Internal("unsupported conditional expression shape: negated classical register")
			}
			return Decoded{Type: ir.ConditionNot, Operands: []ir.Reference{inner}}, nil
		case ir.FunctionCall:
			base, err := decodeBinaryBit(inner)
			if err != nil {
				return Decoded{}, err
			}
			negated, ok := negatedType[base.Type]
			if !ok {
				return Decoded{}, ccerr.Internal("unsupported conditional expression shape: negation of %v", base.Type)
			}
			return Decoded{Type: negated, Operands: base.Operands}, nil
		default:
			return Decoded{}, ccerr.Internal("unsupported conditional expression shape: negation of %T", inner)
		}
	}
	return decodeBinaryBit(n)
}

// decodeBinaryBit decodes a direct (non-negated) two-operand binary bit
// function into AND/OR/XOR/NXOR.
func decodeBinaryBit(n ir.FunctionCall) (Decoded, error) {
	t, ok := directBinaryBitType[n.Name]
	if !ok {
		return Decoded{}, ccerr.Internal("unsupported conditional expression shape: function %q", n.Name)
	}
	if len(n.Operands) != 2 {
		return Decoded{}, ccerr.Internal("%s expects exactly two operands in condition position, got %d", n.Name, len(n.Operands))
	}
	refs := make([]ir.Reference, 2)
	for i, o := range n.Operands {
		r, ok := o.(ir.Reference)
		if !ok || r.Kind != ir.BitRegister {
			return Decoded{}, ccerr.Internal("unsupported conditional expression shape: non-bit operand to %s", n.Name)
		}
		refs[i] = r
	}
	return Decoded{Type: t, Operands: refs}, nil
}
