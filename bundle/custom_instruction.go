package bundle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/ccgen/ccerr"
	"github.com/sarchlab/ccgen/control"
	"github.com/sarchlab/ccgen/ir"
	"github.com/sarchlab/ccgen/settings"
	"github.com/sarchlab/ccgen/telemetry"
)

// CustomInstruction commits one scheduled gate's signal vector into the
// bundle matrix.
func (e *Engine) CustomInstruction(instr *ir.CustomInstruction) error {
	def, err := e.Settings.FindSignalDefinition(instr.Name)
	if err != nil {
		return ccerr.WithContext(err, fmt.Sprintf("instruction %q", instr.Name))
	}
	condType, condOperands, err := decodeConditionFor(instr.Condition)
	if err != nil {
		return ccerr.WithContext(err, fmt.Sprintf("instruction %q: condition", instr.Name))
	}

	for _, sig := range def.Signals {
		if err := e.commitSignal(instr, sig, condType, condOperands); err != nil {
			return ccerr.WithContext(err, fmt.Sprintf("instruction %q: signal for operand %d", instr.Name, sig.OperandIdx))
		}
	}
	return nil
}

func (e *Engine) commitSignal(instr *ir.CustomInstruction, sig settings.SignalEntry, condType ir.ConditionType, condOperands []int) error {
	if sig.OperandIdx >= len(instr.Operands) {
		return ccerr.User("signal operand index %d out of range (instruction has %d operands)", sig.OperandIdx, len(instr.Operands))
	}
	qubit := instr.Operands[sig.OperandIdx]

	info, err := e.Settings.FindSignalInfoForQubit(sig.Type, qubit)
	if err != nil {
		return ccerr.WithContext(err, fmt.Sprintf("signal type %q, qubit %d", sig.Type, qubit))
	}

	if warnErr := verifyShape(sig.Value, info.IC.ControlModeGroupSize); warnErr != nil {
		telemetry.Trace("warning: signal shape", "instruction", instr.Name, "err", warnErr)
	}
	value, err := expandMacros(sig.Value, instr.Name, info.IC.InstrumentName, info.Group, qubit)
	if err != nil {
		return err
	}

	if info.InstrIdx >= len(e.matrix) || info.Group >= len(e.matrix[info.InstrIdx]) {
		return ccerr.Internal("signal resolved to (instrument %d, group %d) outside the bundle matrix", info.InstrIdx, info.Group)
	}
	row := &e.matrix[info.InstrIdx][info.Group]

	switch {
	case row.SignalValue == "":
		row.SignalValue = value
		if override, ok := e.Settings.FindStaticCodewordOverride(instr.Name, sig.OperandIdx); ok {
			row.StaticCodewordOverride = override
		} else if e.StaticCodewordsRequired && len(info.IC.ControlMode.ControlBits) > 0 && groupBits(info.IC, info.Group) > 1 {
			return ccerr.User("instruction %q requires a static codeword override for instrument %q group %d but none was provided", instr.Name, info.IC.InstrumentName, info.Group)
		}
	case row.SignalValue == value:
		// Already committed by an earlier instruction in this bundle; no-op.
	default:
		telemetry.Trace("signal conflict: accumulated code so far", "code", e.Code.String())
		return ccerr.SignalConflict("instrument %q group %d: %q conflicts with already-committed %q", info.IC.InstrumentName, info.Group, value, row.SignalValue)
	}

	row.DurationInCycles = instr.DurationInCycles
	row.Condition = condType
	row.CondOperands = condOperands

	if e.Settings.IsReadout(instr.Name) && e.Settings.GetReadoutMode(instr.Name) == "feedback" {
		row.IsMeasFeedback = true
		row.Operand = qubit
		if len(instr.BregOperands) > 0 {
			row.BregOperand = instr.BregOperands[0]
		}
	}
	return nil
}

func groupBits(ic settings.InstrumentControl, group int) int {
	controlModeGroup := group
	if len(ic.ControlMode.ControlBits) == 1 {
		controlModeGroup = 0
	}
	if controlModeGroup >= len(ic.ControlMode.ControlBits) {
		return 0
	}
	return len(ic.ControlMode.ControlBits[controlModeGroup])
}

func decodeConditionFor(condExpr ir.Expression) (ir.ConditionType, []int, error) {
	if condExpr == nil {
		return ir.ConditionAlways, nil, nil
	}
	d, err := control.DecodeCondition(condExpr)
	if err != nil {
		return 0, nil, err
	}
	idx := make([]int, len(d.Operands))
	for i, r := range d.Operands {
		idx[i] = r.Index
	}
	return d.Type, idx, nil
}

// verifyShape checks a signal's declared JSON value against the control
// mode's group size, when that value is itself an array or object. Scalar
// values aren't shape-checked. A mismatch is a warning, not an error: the
// caller logs it and continues.
func verifyShape(raw json.RawMessage, groupSize int) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) != groupSize {
			return fmt.Errorf("signal value array length %d does not match control-mode group size %d", len(arr), groupSize)
		}
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if len(obj) != groupSize {
			return fmt.Errorf("signal value object key count %d does not match control-mode group size %d", len(obj), groupSize)
		}
		return nil
	}
	return nil
}

// expandMacros serializes a signal's JSON value, substitutes
// {gateName}/{instrumentName}/{instrumentGroup}/{qubit}, and strips a
// wrapping pair of quotes.
func expandMacros(raw json.RawMessage, gateName, instrumentName string, group, qubit int) (string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return substituteMacros(asString, gateName, instrumentName, group, qubit), nil
	}
	text := substituteMacros(string(raw), gateName, instrumentName, group, qubit)
	return strings.Trim(text, `"`), nil
}

func substituteMacros(s, gateName, instrumentName string, group, qubit int) string {
	s = strings.ReplaceAll(s, "{gateName}", gateName)
	s = strings.ReplaceAll(s, "{instrumentName}", instrumentName)
	s = strings.ReplaceAll(s, "{instrumentGroup}", strconv.Itoa(group))
	s = strings.ReplaceAll(s, "{qubit}", strconv.Itoa(qubit))
	return s
}
