package bundle_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ccgen/bundle"
	"github.com/sarchlab/ccgen/codeword"
	"github.com/sarchlab/ccgen/datapath"
	"github.com/sarchlab/ccgen/emit"
	"github.com/sarchlab/ccgen/ir"
	"github.com/sarchlab/ccgen/settings"
)

func newEngine(sp settings.Provider) (*bundle.Engine, *emit.Section) {
	sec := emit.NewSection()
	return bundle.New(sp, datapath.New(), codeword.New(), sec), sec
}

var _ = Describe("S1 - trivial cycle", func() {
	It("emits a single seq_out with trigger and control bits combined", func() {
		sp := newFakeProvider()
		sp.addInstrument(settings.InstrumentControl{
			InstrumentName: "X",
			Slot:           0,
			ControlMode: settings.ControlMode{
				ControlBits: [][]int{{5}},
				TriggerBits: []int{6},
			},
			ControlModeGroupCnt: 1,
		})
		sp.route("flux", 0, 0, 0)
		sp.defineInstruction("x90", settings.SignalEntry{OperandIdx: 0, Type: "flux", Value: rawString("on")})

		e, sec := newEngine(sp)
		Expect(e.BundleStart("")).To(Succeed())
		Expect(e.CustomInstruction(&ir.CustomInstruction{
			Name: "x90", StartCycle: 0, DurationInCycles: 2, Operands: []int{0},
		})).To(Succeed())
		Expect(e.BundleFinish(0, 2, true)).To(Succeed())

		Expect(sec.String()).To(ContainSubstring("0x00000060,2"))
	})
})

var _ = Describe("S2 - codeword packing", func() {
	It("packs a static codeword MSB-first into the control bits", func() {
		sp := newFakeProvider()
		sp.addInstrument(settings.InstrumentControl{
			InstrumentName: "X",
			Slot:           0,
			ControlMode: settings.ControlMode{
				ControlBits: [][]int{{7, 6, 5, 4}},
				TriggerBits: []int{},
			},
			ControlModeGroupCnt: 1,
		})
		sp.route("flux", 0, 0, 0)
		sp.defineInstruction("pulse", settings.SignalEntry{OperandIdx: 0, Type: "flux", Value: rawString("shaped")})
		sp.overrides["pulse"] = map[int]int{0: 0x5}

		e, sec := newEngine(sp)
		Expect(e.BundleStart("")).To(Succeed())
		Expect(e.CustomInstruction(&ir.CustomInstruction{
			Name: "pulse", StartCycle: 0, DurationInCycles: 1, Operands: []int{0},
		})).To(Succeed())
		Expect(e.BundleFinish(0, 1, true)).To(Succeed())

		Expect(sec.String()).To(ContainSubstring("0x00000050,1"))
	})
})

var _ = Describe("S3 - conflict", func() {
	It("rejects two instructions in the same bundle resolving to different signals", func() {
		sp := newFakeProvider()
		sp.addInstrument(settings.InstrumentControl{
			InstrumentName:      "X",
			Slot:                0,
			ControlMode:         settings.ControlMode{ControlBits: [][]int{{5}}},
			ControlModeGroupCnt: 1,
		})
		sp.route("flux", 0, 0, 0)
		sp.route("flux", 1, 0, 0)
		sp.defineInstruction("waveA", settings.SignalEntry{OperandIdx: 0, Type: "flux", Value: rawString("wave_A")})
		sp.defineInstruction("waveB", settings.SignalEntry{OperandIdx: 0, Type: "flux", Value: rawString("wave_B")})

		e, _ := newEngine(sp)
		Expect(e.BundleStart("")).To(Succeed())
		Expect(e.CustomInstruction(&ir.CustomInstruction{
			Name: "waveA", StartCycle: 0, DurationInCycles: 1, Operands: []int{0},
		})).To(Succeed())
		err := e.CustomInstruction(&ir.CustomInstruction{
			Name: "waveB", StartCycle: 0, DurationInCycles: 1, Operands: []int{1},
		})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("S4 - padding", func() {
	It("waits out the gap then emits the new output, advancing lastEndCycle to 13", func() {
		sp := newFakeProvider()
		sp.addInstrument(settings.InstrumentControl{
			InstrumentName: "X",
			Slot:           0,
			ControlMode: settings.ControlMode{
				ControlBits: [][]int{{7, 6, 5, 4, 3, 2, 1, 0}},
				TriggerBits: []int{},
			},
			ControlModeGroupCnt: 1,
		})
		sp.route("flux", 0, 0, 0)
		sp.defineInstruction("warm", settings.SignalEntry{OperandIdx: 0, Type: "flux", Value: rawString("warm")})
		sp.overrides["warm"] = map[int]int{0: 0x00}
		sp.defineInstruction("pulse", settings.SignalEntry{OperandIdx: 0, Type: "flux", Value: rawString("pulse")})
		sp.overrides["pulse"] = map[int]int{0: 0xAA}

		e, sec := newEngine(sp)

		// First bundle establishes lastEndCycle=4 at cycle 0 (duration 4).
		Expect(e.BundleStart("")).To(Succeed())
		Expect(e.CustomInstruction(&ir.CustomInstruction{
			Name: "warm", StartCycle: 0, DurationInCycles: 4, Operands: []int{0},
		})).To(Succeed())
		Expect(e.BundleFinish(0, 4, true)).To(Succeed())

		// Second bundle starts at cycle 10, duration 3.
		Expect(e.BundleStart("")).To(Succeed())
		Expect(e.CustomInstruction(&ir.CustomInstruction{
			Name: "pulse", StartCycle: 10, DurationInCycles: 3, Operands: []int{0},
		})).To(Succeed())
		Expect(e.BundleFinish(10, 3, true)).To(Succeed())

		out := sec.String()
		Expect(out).To(ContainSubstring(emit.SeqWait))
		Expect(out).To(ContainSubstring("6"))
		Expect(out).To(ContainSubstring("0x000000AA,3"))
	})
})

var _ = Describe("conditional gating", func() {
	It("routes a conditionally-guarded instruction through a PL table instead of direct digOut", func() {
		sp := newFakeProvider()
		sp.addInstrument(settings.InstrumentControl{
			InstrumentName:      "X",
			Slot:                0,
			ControlMode:         settings.ControlMode{ControlBits: [][]int{{5}}},
			ControlModeGroupCnt: 1,
		})
		sp.route("flux", 0, 0, 0)
		sp.defineInstruction("guarded", settings.SignalEntry{OperandIdx: 0, Type: "flux", Value: rawString("on")})

		e, sec := newEngine(sp)
		Expect(e.BundleStart("")).To(Succeed())
		Expect(e.CustomInstruction(&ir.CustomInstruction{
			Name: "guarded", StartCycle: 0, DurationInCycles: 1, Operands: []int{0},
			Condition: ir.Reference{Kind: ir.BitRegister, Index: 0},
		})).To(Succeed())
		Expect(e.BundleFinish(0, 1, true)).To(Succeed())

		Expect(sec.String()).To(ContainSubstring(emit.SeqOutSm))
	})
})
