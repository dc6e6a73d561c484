package expr

import (
	"fmt"

	"github.com/sarchlab/ccgen/ccerr"
	"github.com/sarchlab/ccgen/emit"
	"github.com/sarchlab/ccgen/ir"
)

var binaryIntMnemonic = map[string]string{
	"operator+": emit.Add,
	"operator-": emit.Sub,
	"operator&": emit.And,
	"operator|": emit.Or,
	"operator^": emit.Xor,
}

// lowerBinaryInt implements the five integer arithmetic/bitwise operators.
// Operands arrive in one of three shapes: RR (reg,reg) and RL (reg,lit) are
// emitted as written, the dest taking the result; LR (lit,reg) has no
// direct instruction form since the register machine always wants its
// first operand in a register. For the four commutative operators that's
// just a reorder. Subtraction isn't commutative, so an LR subtraction is
// computed as reg-lit and then arithmetically negated (~x+1) into dest,
// rather than refusing the shape outright.
func (e *Engine) lowerBinaryInt(n ir.FunctionCall, m mode) error {
	if !m.assign {
		return ccerr.Internal("%s cannot appear in predicate position", n.Name)
	}
	if len(n.Operands) != 2 {
		return ccerr.Internal("%s expects exactly two operands, got %d", n.Name, len(n.Operands))
	}
	lhs, err := resolveLeaf(n.Operands[0])
	if err != nil {
		return err
	}
	rhs, err := resolveLeaf(n.Operands[1])
	if err != nil {
		return err
	}
	if lhs.isLiteral && rhs.isLiteral {
		return ccerr.Internal("%s has two literal operands; this should have been constant-folded", n.Name)
	}

	dest := m.destReg()

	if lhs.isLiteral && !rhs.isLiteral {
		if n.Name == "operator-" {
			e.Code.Emit("", emit.Sub, fmt.Sprintf("%s,%d,%s", rhs.reg, lhs.literal, dest), "")
			e.Code.Emit("", emit.Nop, "", "")
			e.Code.Emit("", emit.Not, fmt.Sprintf("%s,%s", dest, dest), "")
			e.Code.Emit("", emit.Nop, "", "")
			e.Code.Emit("", emit.Add, fmt.Sprintf("%s,1,%s", dest, dest), "")
			return nil
		}
		// Commutative: reorder so the register leads.
		lhs, rhs = rhs, lhs
	}

	mnem, ok := binaryIntMnemonic[n.Name]
	if !ok {
		return ccerr.Internal("unsupported binary integer function %q", n.Name)
	}
	e.Code.Emit("", mnem, fmt.Sprintf("%s,%s,%s", lhs.text(), rhs.text(), dest), "")
	return nil
}

// relKind names the six relational operators independent of operand order,
// so mirror() can flip an operator's sense when its operands get swapped.
type relKind int

const (
	relEQ relKind = iota
	relNE
	relGE
	relLT
	relGT
	relLE
)

var relationByName = map[string]relKind{
	"operator==": relEQ,
	"operator!=": relNE,
	"operator>=": relGE,
	"operator<":  relLT,
	"operator>":  relGT,
	"operator<=": relLE,
}

// mirror returns the relation that holds when its two operands are swapped:
// a R b iff b mirror(R) a. == and != are already symmetric.
func mirror(r relKind) relKind {
	switch r {
	case relGE:
		return relLE
	case relLT:
		return relGT
	case relGT:
		return relLT
	case relLE:
		return relGE
	default:
		return r
	}
}

// lowerRelational implements the six relational operators in predicate
// mode. The register machine's only native comparison jumps are jlt
// (a<b) and jge (a>=b); there is no jeq/jne/jgt/jle. == and != go through
// an xor against REG_TMP1 tested for zero. > is synthesized as >= against
// b+1. <= has no such reduction available without a spare comparison
// direction and is explicitly unimplemented (matching the worked
// if/elif/else lowering example, which takes the jump-to-false branch as
// the negation of the written operator: a written "<" compiles to a
// "jge", not a "jlt").
func (e *Engine) lowerRelational(n ir.FunctionCall, m mode) error {
	if m.assign {
		return ccerr.Internal("%s only valid in predicate position", n.Name)
	}
	if len(n.Operands) != 2 {
		return ccerr.Internal("%s expects exactly two operands, got %d", n.Name, len(n.Operands))
	}
	rel, ok := relationByName[n.Name]
	if !ok {
		return ccerr.Internal("unsupported relational function %q", n.Name)
	}
	lhs, err := resolveLeaf(n.Operands[0])
	if err != nil {
		return err
	}
	rhs, err := resolveLeaf(n.Operands[1])
	if err != nil {
		return err
	}
	if lhs.isLiteral && rhs.isLiteral {
		return ccerr.Internal("%s has two literal operands; this should have been constant-folded", n.Name)
	}
	if lhs.isLiteral && !rhs.isLiteral {
		lhs, rhs = rhs, lhs
		rel = mirror(rel)
	}

	label := m.labelIfFalse

	switch rel {
	case relEQ:
		e.Code.Emit("", emit.Xor, fmt.Sprintf("%s,%s,%s", lhs.text(), rhs.text(), RegTmp1), "")
		e.Code.Emit("", emit.Nop, "", "")
		e.Code.Emit("", emit.Jge, fmt.Sprintf("%s,1,@%s", RegTmp1, label), "")
		return nil
	case relNE:
		e.Code.Emit("", emit.Xor, fmt.Sprintf("%s,%s,%s", lhs.text(), rhs.text(), RegTmp1), "")
		e.Code.Emit("", emit.Nop, "", "")
		e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,1,@%s", RegTmp1, label), "")
		return nil
	case relGE:
		// Negation of a>=b is a<b.
		e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,%s,@%s", lhs.text(), rhs.text(), label), "")
		return nil
	case relLT:
		// Negation of a<b is a>=b.
		e.Code.Emit("", emit.Jge, fmt.Sprintf("%s,%s,@%s", lhs.text(), rhs.text(), label), "")
		return nil
	case relGT:
		// a>b reduces to a>=b+1; negation is a<b+1.
		if rhs.isLiteral {
			bound := rhs.literal + 1
			if err := CheckIntLiteral(bound, 0, 0); err != nil {
				return err
			}
			e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,%d,@%s", lhs.text(), bound, label), "")
			return nil
		}
		e.Code.Emit("", emit.Add, fmt.Sprintf("1,%s,%s", rhs.text(), RegTmp0), "")
		e.Code.Emit("", emit.Nop, "", "")
		e.Code.Emit("", emit.Jlt, fmt.Sprintf("%s,%s,@%s", lhs.text(), RegTmp0, label), "")
		return nil
	case relLE:
		return ccerr.User("operator<= is not implemented")
	default:
		return ccerr.Internal("unreachable relation kind %d", rel)
	}
}
