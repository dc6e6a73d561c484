package control_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ccgen/control"
	"github.com/sarchlab/ccgen/datapath"
	"github.com/sarchlab/ccgen/emit"
	"github.com/sarchlab/ccgen/expr"
	"github.com/sarchlab/ccgen/ir"
)

func newControlEngine() (*control.Engine, *emit.Section) {
	sec := emit.NewSection()
	ex := expr.New(sec, datapath.New())
	return control.New(sec, ex), sec
}

var _ = Describe("Labels", func() {
	It("mints unique, prefix-stamped bases", func() {
		base1 := control.New(emit.NewSection(), expr.New(emit.NewSection(), datapath.New())).NewBase("if")
		base2 := control.New(emit.NewSection(), expr.New(emit.NewSection(), datapath.New())).NewBase("if")
		// Each Engine owns its own Labels counter, so two fresh engines both
		// start at 1; uniqueness within one engine is what matters.
		Expect(base1).To(Equal("_if1"))
		Expect(base2).To(Equal("_if1"))
	})

	It("increments within one engine across constructs", func() {
		e, _ := newControlEngine()
		b1 := e.NewBase("for")
		b2 := e.NewBase("foreach")
		Expect(b1).To(Equal("_for1"))
		Expect(b2).To(Equal("_foreach2"))
	})
})

var _ = Describe("If/elif/otherwise (S5)", func() {
	It("lowers the three-branch if/elif/else chain exactly as the worked example", func() {
		e, sec := newControlEngine()
		base := e.NewBase("if")

		condR0lt5 := ir.FunctionCall{Name: "operator<", Operands: []ir.Expression{
			ir.Reference{Kind: ir.ClassicalRegister, Index: 0},
			ir.IntLiteral{Value: 5},
		}}
		Expect(e.IfElif(base, 0, condR0lt5)).To(Succeed())
		sec.Comment("body A")

		condR0eq7 := ir.FunctionCall{Name: "operator==", Operands: []ir.Expression{
			ir.Reference{Kind: ir.ClassicalRegister, Index: 0},
			ir.IntLiteral{Value: 7},
		}}
		Expect(e.IfElif(base, 1, condR0eq7)).To(Succeed())
		sec.Comment("body B")

		e.IfOtherwise(base, 2)
		sec.Comment("body C")
		e.IfEnd(base)

		out := sec.String()
		Expect(out).To(ContainSubstring(emit.Jge)) // condition1: negated '<' is jge
		Expect(out).To(ContainSubstring("R0,5,@" + base + "_1"))
		Expect(out).To(ContainSubstring(emit.Jmp))
		Expect(out).To(ContainSubstring(base + "_1:"))
		Expect(out).To(ContainSubstring(base + "_2:"))
		Expect(out).To(ContainSubstring(base + "_end:"))
	})
})

var _ = Describe("Foreach (S6)", func() {
	It("lowers an ascending 0..3 inclusive range with add/nop/jlt", func() {
		e, sec := newControlEngine()
		base := e.NewBase("foreach")
		e.ForeachStart(base, 0, 0)
		Expect(e.ForeachEnd(base, 0, 0, 3)).To(Succeed())

		out := sec.String()
		Expect(out).To(ContainSubstring("0,R0"))
		Expect(out).To(ContainSubstring(base + "_start:"))
		Expect(out).To(ContainSubstring(emit.Add))
		Expect(out).To(ContainSubstring("R0,1,R0"))
		Expect(out).To(ContainSubstring(emit.Jlt))
		Expect(out).To(ContainSubstring("R0,4,@" + base + "_start"))
		Expect(out).To(ContainSubstring(base + "_end:"))
	})

	It("lowers a single-step descending range via loop", func() {
		e, sec := newControlEngine()
		base := e.NewBase("foreach")
		e.ForeachStart(base, 0, 3)
		Expect(e.ForeachEnd(base, 0, 3, 0)).To(Succeed())
		Expect(sec.String()).To(ContainSubstring(emit.Loop))
	})

	It("lowers a general descending range with sub/nop/jge", func() {
		e, sec := newControlEngine()
		base := e.NewBase("foreach")
		e.ForeachStart(base, 0, 5)
		Expect(e.ForeachEnd(base, 0, 5, 2)).To(Succeed())
		out := sec.String()
		Expect(out).To(ContainSubstring(emit.Sub))
		Expect(out).To(ContainSubstring(emit.Jge))
	})
})

var _ = Describe("For loop", func() {
	It("lowers init, an unconditional nop, the condition, update and back-edge", func() {
		e, sec := newControlEngine()
		base := e.NewBase("for")
		init := &ir.SetInstruction{Lhs: 0, Rhs: ir.IntLiteral{Value: 0}}
		cond := ir.FunctionCall{Name: "operator<", Operands: []ir.Expression{
			ir.Reference{Kind: ir.ClassicalRegister, Index: 0},
			ir.IntLiteral{Value: 10},
		}}
		Expect(e.ForStart(base, init, cond)).To(Succeed())
		update := &ir.SetInstruction{Lhs: 0, Rhs: ir.FunctionCall{Name: "operator+", Operands: []ir.Expression{
			ir.Reference{Kind: ir.ClassicalRegister, Index: 0},
			ir.IntLiteral{Value: 1},
		}}}
		Expect(e.ForEnd(base, update)).To(Succeed())

		out := sec.String()
		Expect(out).To(ContainSubstring(emit.Nop))
		Expect(out).To(ContainSubstring(base + "_start:"))
		Expect(out).To(ContainSubstring(base + "_end:"))
		Expect(out).To(ContainSubstring(emit.Jmp))
	})
})

var _ = Describe("Repeat/until", func() {
	It("lowers repeat's body once unconditionally then loops while the condition holds", func() {
		e, sec := newControlEngine()
		base := e.NewBase("repeat")
		e.Repeat(base)
		cond := ir.FunctionCall{Name: "operator>=", Operands: []ir.Expression{
			ir.Reference{Kind: ir.ClassicalRegister, Index: 0},
			ir.IntLiteral{Value: 10},
		}}
		Expect(e.Until(base, cond)).To(Succeed())
		out := sec.String()
		Expect(out).To(ContainSubstring(base + "_start:"))
		Expect(out).To(ContainSubstring(base + "_end:"))
	})
})

var _ = Describe("Break/Continue", func() {
	It("jumps to the innermost enclosing loop's end/start labels", func() {
		e, sec := newControlEngine()
		base := e.NewBase("for")
		e.ForeachStart(base, 0, 0)

		Expect(e.Break()).To(Succeed())
		Expect(e.Continue()).To(Succeed())

		out := sec.String()
		Expect(out).To(ContainSubstring("@" + base + "_end"))
		Expect(out).To(ContainSubstring("@" + base + "_start"))
	})

	It("errors when used outside any enclosing loop", func() {
		e, _ := newControlEngine()
		Expect(e.Break()).To(HaveOccurred())
		Expect(e.Continue()).To(HaveOccurred())
	})

	It("resolves to the innermost of nested loops", func() {
		e, _ := newControlEngine()
		outer := e.NewBase("for")
		e.ForeachStart(outer, 0, 0)
		inner := e.NewBase("for")
		e.ForeachStart(inner, 1, 0)

		Expect(e.Break()).To(Succeed())
		Expect(e.ForeachEnd(inner, 1, 0, 0)).To(Succeed())
		Expect(e.Break()).To(Succeed())
		Expect(e.ForeachEnd(outer, 0, 0, 0)).To(Succeed())
	})
})

var _ = Describe("DecodeCondition", func() {
	It("decodes a bit literal to ALWAYS/NEVER", func() {
		d, err := control.DecodeCondition(ir.BitLiteral{Value: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Type).To(Equal(ir.ConditionAlways))

		d, err = control.DecodeCondition(ir.BitLiteral{Value: false})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Type).To(Equal(ir.ConditionNever))
	})

	It("decodes a bare bit reference to UNARY", func() {
		d, err := control.DecodeCondition(ir.Reference{Kind: ir.BitRegister, Index: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Type).To(Equal(ir.ConditionUnary))
		Expect(d.Operands).To(Equal([]ir.Reference{{Kind: ir.BitRegister, Index: 3}}))
	})

	It("rejects a classical register as a guard", func() {
		_, err := control.DecodeCondition(ir.Reference{Kind: ir.ClassicalRegister, Index: 0})
		Expect(err).To(HaveOccurred())
	})

	It("decodes operator! over a bare bit to NOT", func() {
		d, err := control.DecodeCondition(ir.FunctionCall{Name: "operator!", Operands: []ir.Expression{
			ir.Reference{Kind: ir.BitRegister, Index: 1},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Type).To(Equal(ir.ConditionNot))
	})

	It("decodes operator&&/||/^^ to their direct gate types", func() {
		for name, want := range map[string]ir.ConditionType{
			"operator&&": ir.ConditionAnd,
			"operator||": ir.ConditionOr,
			"operator^^": ir.ConditionXor,
		} {
			d, err := control.DecodeCondition(ir.FunctionCall{Name: name, Operands: []ir.Expression{
				ir.Reference{Kind: ir.BitRegister, Index: 0},
				ir.Reference{Kind: ir.BitRegister, Index: 1},
			}})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Type).To(Equal(want))
		}
	})

	It("decodes operator==/!= between bit operands as NXOR/XOR aliases", func() {
		d, err := control.DecodeCondition(ir.FunctionCall{Name: "operator==", Operands: []ir.Expression{
			ir.Reference{Kind: ir.BitRegister, Index: 0},
			ir.Reference{Kind: ir.BitRegister, Index: 1},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Type).To(Equal(ir.ConditionNxor))

		d, err = control.DecodeCondition(ir.FunctionCall{Name: "operator!=", Operands: []ir.Expression{
			ir.Reference{Kind: ir.BitRegister, Index: 0},
			ir.Reference{Kind: ir.BitRegister, Index: 1},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Type).To(Equal(ir.ConditionXor))
	})

	It("decodes a negated AND to NAND", func() {
		d, err := control.DecodeCondition(ir.FunctionCall{Name: "operator!", Operands: []ir.Expression{
			ir.FunctionCall{Name: "operator&&", Operands: []ir.Expression{
				ir.Reference{Kind: ir.BitRegister, Index: 0},
				ir.Reference{Kind: ir.BitRegister, Index: 1},
			}},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Type).To(Equal(ir.ConditionNand))
	})
})
