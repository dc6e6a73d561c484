package bundle

import (
	"fmt"
	"sort"

	"github.com/sarchlab/ccgen/ccerr"
	"github.com/sarchlab/ccgen/datapath"
	"github.com/sarchlab/ccgen/emit"
	"github.com/sarchlab/ccgen/ir"
	"github.com/sarchlab/ccgen/settings"
)

// condGateEntry is one group's conditional contribution, collected in
// Phase A and consumed by the PL table built in Phase B.
type condGateEntry struct {
	Condition    ir.ConditionType
	CondOperands []int
	GroupDigOut  uint32
}

// feedbackEntry is one group's feedback contribution.
type feedbackEntry struct {
	SmBit     int
	ResultBit int
}

type instrumentAccum struct {
	digOut      uint32
	maxDuration int
	hasOutput   bool
	condGateMap map[int]condGateEntry
	feedbackMap map[int]feedbackEntry
}

// BundleFinish flushes the matrix built up by BundleStart/CustomInstruction
// into emitted assembly, in two phases: accumulate, then emit.
func (e *Engine) BundleFinish(startCycle, durationInCycles int, isLastBundle bool) error {
	accums, bundleHasFeedback, err := e.collectPhaseA()
	if err != nil {
		return err
	}
	return e.emitPhaseB(accums, startCycle, durationInCycles, isLastBundle, bundleHasFeedback)
}

func (e *Engine) collectPhaseA() ([]instrumentAccum, bool, error) {
	accums := make([]instrumentAccum, len(e.matrix))
	bundleHasFeedback := false

	for instrIdx, row := range e.matrix {
		ic, err := e.Settings.InstrumentControl(instrIdx)
		if err != nil {
			return nil, false, ccerr.WithContext(err, "bundleFinish: collecting")
		}
		acc := &accums[instrIdx]
		acc.condGateMap = make(map[int]condGateEntry)
		acc.feedbackMap = make(map[int]feedbackEntry)
		nrGroups := len(row)

		for group := range row {
			info := &row[group]
			if info.SignalValue == "" && !info.IsMeasFeedback {
				continue
			}

			if info.SignalValue != "" {
				groupDigOut, err := e.computeGroupDigOut(ic, group, info)
				if err != nil {
					return nil, false, ccerr.WithContext(err, fmt.Sprintf("instrument %q group %d", ic.InstrumentName, group))
				}
				groupDigOut |= triggerMask(ic.ControlMode.TriggerBits, group, nrGroups)

				acc.hasOutput = true
				if info.DurationInCycles > acc.maxDuration {
					acc.maxDuration = info.DurationInCycles
				}
				if info.Condition != ir.ConditionAlways && !ic.ForceCondGatesOn {
					acc.condGateMap[group] = condGateEntry{
						Condition:    info.Condition,
						CondOperands: info.CondOperands,
						GroupDigOut:  groupDigOut,
					}
				} else {
					acc.digOut |= groupDigOut
				}
			}

			if info.IsMeasFeedback {
				bundleHasFeedback = true
				if info.BregOperand < 0 {
					return nil, false, ccerr.Internal("instrument %q group %d: feedback signal has no classical-bit operand", ic.InstrumentName, group)
				}
				smBit := e.Datapath.AllocateSmBit(info.BregOperand)
				resultBit, ok := e.Settings.GetResultBit(ic, group)
				if !ok {
					return nil, false, ccerr.Internal("control mode %q has no result bit for group %d", ic.ControlMode.Name, group)
				}
				acc.feedbackMap[group] = feedbackEntry{SmBit: smBit, ResultBit: resultBit}
			}
		}
	}
	return accums, bundleHasFeedback, nil
}

// computeGroupDigOut implements one group's contribution to its
// instrument's digital output word: a single mask bit, or a packed
// codeword.
func (e *Engine) computeGroupDigOut(ic settings.InstrumentControl, group int, info *BundleInfo) (uint32, error) {
	controlModeGroup := group
	if len(ic.ControlMode.ControlBits) == 1 {
		controlModeGroup = 0
	}
	if controlModeGroup >= len(ic.ControlMode.ControlBits) {
		return 0, ccerr.User("group %d out of range for instrument %q's control mode (%d groups)", group, ic.InstrumentName, len(ic.ControlMode.ControlBits))
	}
	bits := ic.ControlMode.ControlBits[controlModeGroup]

	var digOut uint32
	switch {
	case len(bits) == 1:
		digOut |= 1 << uint(bits[0])
	case len(bits) > 1:
		cw, err := e.resolveCodeword(ic.InstrumentName, group, info)
		if err != nil {
			return 0, err
		}
		nrBits := len(bits)
		for idx, pos := range bits {
			if cw&(1<<uint(nrBits-1-idx)) != 0 {
				digOut |= 1 << uint(pos)
			}
		}
	}
	return digOut, nil
}

func (e *Engine) resolveCodeword(instrumentName string, group int, info *BundleInfo) (int, error) {
	if info.StaticCodewordOverride >= 0 {
		return info.StaticCodewordOverride, nil
	}
	return e.Codewords.Assign(instrumentName, group, info.SignalValue)
}

// triggerMask implements the trigger-bit composition: none, a single
// always-on bit, the 2-trigger hotfix (OR both), or a per-group trigger
// bit.
func triggerMask(triggerBits []int, group, nrGroups int) uint32 {
	switch len(triggerBits) {
	case 0:
		return 0
	case 1:
		return 1 << uint(triggerBits[0])
	case 2:
		return 1<<uint(triggerBits[0]) | 1<<uint(triggerBits[1])
	default:
		if group < len(triggerBits) {
			return 1 << uint(triggerBits[group])
		}
		return 0
	}
}

func (e *Engine) emitPhaseB(accums []instrumentAccum, startCycle, durationInCycles int, isLastBundle, bundleHasFeedback bool) error {
	for instrIdx := range accums {
		acc := &accums[instrIdx]
		if !acc.hasOutput && len(acc.condGateMap) == 0 {
			continue
		}
		ic, err := e.Settings.InstrumentControl(instrIdx)
		if err != nil {
			return ccerr.WithContext(err, "bundleFinish: emitting output")
		}
		if err := e.emitOutput(instrIdx, ic, acc, startCycle); err != nil {
			return err
		}
	}

	if bundleHasFeedback {
		for instrIdx := range accums {
			acc := &accums[instrIdx]
			ic, err := e.Settings.InstrumentControl(instrIdx)
			if err != nil {
				return ccerr.WithContext(err, "bundleFinish: emitting feedback")
			}
			if err := e.emitFeedback(instrIdx, ic, acc, startCycle); err != nil {
				return err
			}
		}
	}

	if isLastBundle {
		for instrIdx := range e.matrix {
			ic, err := e.Settings.InstrumentControl(instrIdx)
			if err != nil {
				return ccerr.WithContext(err, "bundleFinish: flushing tails")
			}
			if err := e.EmitPadToCycle(instrIdx, ic, startCycle+durationInCycles); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) emitOutput(instrIdx int, ic settings.InstrumentControl, acc *instrumentAccum, startCycle int) error {
	if err := e.EmitPadToCycle(instrIdx, ic, startCycle); err != nil {
		return err
	}
	if len(acc.condGateMap) == 0 {
		e.Code.Emit(slotLabel(ic.Slot), emit.SeqOut, fmt.Sprintf("0x%08X,%d", acc.digOut, acc.maxDuration), "")
	} else {
		smBits, entries, groupConditions := buildPLEntries(e.Datapath, acc.digOut, acc.condGateMap)
		muxIdx, _ := e.Datapath.GetOrAssignMux(instrIdx, smBits)
		smAddr := e.Datapath.GetMuxSmAddr(muxIdx)
		plIdx, _ := e.Datapath.GetOrAssignPL(instrIdx, groupConditions, entries)
		e.Code.Emit(slotLabel(ic.Slot), emit.SeqOutSm, fmt.Sprintf("%d,%d,%d", smAddr, plIdx, acc.maxDuration), "")
	}
	e.lastEndCycle[instrIdx] = startCycle + acc.maxDuration
	return nil
}

// buildPLEntries expands a condition-gate map into the full truth table a
// PL entry needs: one row per combination of the union of condition bits
// feeding this instrument, each row's mask being the instrument's
// unconditional digOut plus every conditional group whose condition
// evaluates true for that combination.
func buildPLEntries(dp *datapath.State, baseDigOut uint32, condGateMap map[int]condGateEntry) (smBits []int, entries []datapath.PLEntry, groupConditions map[int]string) {
	seen := make(map[int]bool)
	groups := make([]int, 0, len(condGateMap))
	for g := range condGateMap {
		groups = append(groups, g)
	}
	sort.Ints(groups)

	for _, g := range groups {
		for _, breg := range condGateMap[g].CondOperands {
			bit := dp.AllocateSmBit(breg)
			if !seen[bit] {
				seen[bit] = true
				smBits = append(smBits, bit)
			}
		}
	}
	sort.Ints(smBits)
	position := make(map[int]int, len(smBits))
	for i, b := range smBits {
		position[b] = i
	}

	groupPositions := make(map[int][]int, len(groups))
	groupConditions = make(map[int]string, len(groups))
	for _, g := range groups {
		ent := condGateMap[g]
		positions := make([]int, len(ent.CondOperands))
		for i, breg := range ent.CondOperands {
			positions[i] = position[dp.AllocateSmBit(breg)]
		}
		groupPositions[g] = positions
		groupConditions[g] = fmt.Sprintf("%v:%v", ent.Condition, ent.CondOperands)
	}

	n := len(smBits)
	entries = make([]datapath.PLEntry, 1<<uint(n))
	for combo := 0; combo < len(entries); combo++ {
		inputs := make([]bool, n)
		for i := 0; i < n; i++ {
			inputs[i] = combo&(1<<uint(i)) != 0
		}
		mask := baseDigOut
		for _, g := range groups {
			ent := condGateMap[g]
			positions := groupPositions[g]
			vals := make([]bool, len(positions))
			for i, p := range positions {
				vals[i] = inputs[p]
			}
			if evalCondition(ent.Condition, vals) {
				mask |= ent.GroupDigOut
			}
		}
		entries[combo] = datapath.PLEntry{Inputs: inputs, Mask: mask}
	}
	return smBits, entries, groupConditions
}

// evalCondition evaluates a decoded condition-gate shape against its
// operand bit values, used to expand the PL truth table.
func evalCondition(t ir.ConditionType, vals []bool) bool {
	switch t {
	case ir.ConditionAlways:
		return true
	case ir.ConditionNever:
		return false
	case ir.ConditionUnary:
		return vals[0]
	case ir.ConditionNot:
		return !vals[0]
	case ir.ConditionAnd:
		return vals[0] && vals[1]
	case ir.ConditionNand:
		return !(vals[0] && vals[1])
	case ir.ConditionOr:
		return vals[0] || vals[1]
	case ir.ConditionNor:
		return !(vals[0] || vals[1])
	case ir.ConditionXor:
		return vals[0] != vals[1]
	case ir.ConditionNxor:
		return vals[0] == vals[1]
	default:
		return false
	}
}

func (e *Engine) emitFeedback(instrIdx int, ic settings.InstrumentControl, acc *instrumentAccum, startCycle int) error {
	if !acc.hasOutput {
		if err := e.EmitPadToCycle(instrIdx, ic, startCycle); err != nil {
			return err
		}
	}
	if len(acc.feedbackMap) > 0 {
		e.Code.Emit(slotLabel(ic.Slot), emit.SeqInSm, "", "")
	} else {
		e.Code.Emit(slotLabel(ic.Slot), emit.SeqInvSm, "", "")
	}
	e.lastEndCycle[instrIdx]++
	return nil
}

// EmitPadToCycle pads instrIdx's emission stream up to targetCycle,
// erroring on a negative computed padding ("time travel").
func (e *Engine) EmitPadToCycle(instrIdx int, ic settings.InstrumentControl, targetCycle int) error {
	prePadding := targetCycle - e.lastEndCycle[instrIdx]
	if prePadding < 0 {
		return ccerr.TimeTravel("instrument %q: computed negative padding %d at cycle %d (lastEndCycle=%d)", ic.InstrumentName, prePadding, targetCycle, e.lastEndCycle[instrIdx])
	}
	if prePadding > 0 {
		e.Code.Emit(slotLabel(ic.Slot), emit.SeqWait, fmt.Sprintf("%d", prePadding), "")
	}
	e.lastEndCycle[instrIdx] = targetCycle
	return nil
}
