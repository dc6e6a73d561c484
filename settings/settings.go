// Package settings defines the contract the backend consumes to resolve
// instruments, control modes, signals and codeword overrides, and ships a
// JSON-file-backed implementation of it: the hardware-description loader
// is the one external collaborator, kept here as an interface so the rest
// of the backend never knows whether it's talking to a real platform
// description or a test double.
package settings

import (
	"encoding/json"
	"fmt"
)

// InstrumentControl describes one instrument as resolved from the platform
// description: its slot, control mode and per-group geometry. Immutable for
// the duration of one compile.
type InstrumentControl struct {
	InstrumentName        string
	Slot                  int
	ControlMode           ControlMode
	ControlModeGroupCnt   int
	ControlModeGroupSize  int
	ForceCondGatesOn      bool
	IsMeasurementDevice   bool
}

// ControlMode is the JSON view of a control mode: which wire bits carry
// codewords/masks per group, which carry triggers, and (optionally) which
// carry feedback result bits.
type ControlMode struct {
	Name        string
	ControlBits [][]int // per group, MSB -> LSB bit positions
	TriggerBits []int   // len 0, 1, 2, or len(ControlBits)
	ResultBits  []int   // optional, per group
}

// SignalEntry is one entry of an instruction's signal vector: which operand
// it applies to, the signal type used to resolve the target instrument, and
// the (still macro-templated) JSON value to emit.
type SignalEntry struct {
	OperandIdx int
	Type       string
	Value      json.RawMessage
}

// SignalDef is the full signal vector declared for one instruction.
type SignalDef struct {
	InstructionName string
	Path            string
	Signals         []SignalEntry
}

// SignalInfo is the result of mapping a (signal type, qubit) pair to a
// physical instrument channel.
type SignalInfo struct {
	InstrIdx int
	Group    int
	IC       InstrumentControl
}

// Provider is the contract the bundle and expression engines depend on.
// FileProvider is the default JSON-backed implementation; tests use a
// hand-written mock (see mock_settings_test.go).
type Provider interface {
	InstrumentsSize() int
	InstrumentControl(instrIdx int) (InstrumentControl, error)
	FindSignalDefinition(instructionName string) (SignalDef, error)
	FindSignalInfoForQubit(signalType string, qubit int) (SignalInfo, error)
	IsReadout(instructionName string) bool
	GetReadoutMode(instructionName string) string
	// FindStaticCodewordOverride returns the static codeword the
	// instruction forces for the given operand, and whether an override
	// was present at all.
	FindStaticCodewordOverride(instructionName string, operandIdx int) (int, bool)
	// GetResultBit returns the control mode's result bit for group, and
	// whether the control mode defines result bits at all.
	GetResultBit(ic InstrumentControl, group int) (int, bool)
}

// NotFoundError reports that the Settings document has no entry for a
// requested key. It is a settings.Provider book-keeping error, not one of
// the ccerr taxonomy kinds, because it's raised by this leaf, not decorated
// on its way up through the lowering layers.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("settings: no %s for %q", e.Kind, e.Key)
}
