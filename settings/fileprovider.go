package settings

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// document is the on-disk shape of a platform description. encoding/json
// is used rather than a third-party decoder: the schema is small and
// locally defined, with no shared structure that would benefit from a
// schema-validating library.
type document struct {
	Note         string                            `json:"note"`
	Instruments  []instrumentDoc                    `json:"instruments"`
	ControlModes map[string]controlModeDoc          `json:"control_modes"`
	Instructions map[string]instructionDoc          `json:"instructions"`
	SignalMap    map[string]map[string]signalTarget `json:"signal_map"`
}

type instrumentDoc struct {
	Name                string `json:"name"`
	Slot                int    `json:"slot"`
	ControlMode         string `json:"control_mode"`
	ForceCondGatesOn    bool   `json:"force_cond_gates_on"`
	IsMeasurementDevice bool   `json:"is_measurement_device"`
}

type controlModeDoc struct {
	ControlBits      [][]int `json:"control_bits"`
	TriggerBits      []int   `json:"trigger_bits"`
	ResultBits       []int   `json:"result_bits,omitempty"`
	ChannelsPerGroup int     `json:"channels_per_group"`
}

type instructionDoc struct {
	Signal                 []signalEntryDoc `json:"signal"`
	Readout                bool             `json:"readout"`
	ReadoutMode            string           `json:"readout_mode,omitempty"`
	StaticCodewordOverride map[string]int   `json:"static_codeword_override,omitempty"`
}

type signalEntryDoc struct {
	OperandIdx int             `json:"operand_idx"`
	Type       string          `json:"type"`
	Value      json.RawMessage `json:"value"`
}

type signalTarget struct {
	Instrument string `json:"instrument"`
	Group      int    `json:"group"`
}

// FileProvider is a Provider backed by a parsed platform-description
// document: the default, concrete hardware-description JSON loader,
// satisfying just enough of Provider's contract for the backend to run
// end to end.
type FileProvider struct {
	doc          document
	nameToIdx    map[string]int
	orderedNames []string
}

// LoadFile reads and parses a platform description from path.
func LoadFile(path string) (*FileProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("settings: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a platform description from r.
func Load(r io.Reader) (*FileProvider, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("settings: decode: %w", err)
	}

	fp := &FileProvider{
		doc:       doc,
		nameToIdx: make(map[string]int, len(doc.Instruments)),
	}
	for i, instr := range doc.Instruments {
		fp.nameToIdx[instr.Name] = i
		fp.orderedNames = append(fp.orderedNames, instr.Name)
	}
	return fp, nil
}

func (fp *FileProvider) InstrumentsSize() int {
	return len(fp.doc.Instruments)
}

func (fp *FileProvider) InstrumentControl(instrIdx int) (InstrumentControl, error) {
	if instrIdx < 0 || instrIdx >= len(fp.doc.Instruments) {
		return InstrumentControl{}, &NotFoundError{Kind: "instrument index", Key: strconv.Itoa(instrIdx)}
	}
	id := fp.doc.Instruments[instrIdx]
	cmDoc, ok := fp.doc.ControlModes[id.ControlMode]
	if !ok {
		return InstrumentControl{}, &NotFoundError{Kind: "control mode", Key: id.ControlMode}
	}
	return InstrumentControl{
		InstrumentName:       id.Name,
		Slot:                 id.Slot,
		ControlMode:          toControlMode(id.ControlMode, cmDoc),
		ControlModeGroupCnt:  len(cmDoc.ControlBits),
		ControlModeGroupSize: cmDoc.ChannelsPerGroup,
		ForceCondGatesOn:     id.ForceCondGatesOn,
		IsMeasurementDevice:  id.IsMeasurementDevice,
	}, nil
}

func toControlMode(name string, d controlModeDoc) ControlMode {
	return ControlMode{
		Name:        name,
		ControlBits: d.ControlBits,
		TriggerBits: d.TriggerBits,
		ResultBits:  d.ResultBits,
	}
}

func (fp *FileProvider) FindSignalDefinition(instructionName string) (SignalDef, error) {
	id, ok := fp.doc.Instructions[instructionName]
	if !ok {
		return SignalDef{}, &NotFoundError{Kind: "instruction", Key: instructionName}
	}
	sd := SignalDef{
		InstructionName: instructionName,
		Path:            fmt.Sprintf("instructions/%s/signal", instructionName),
	}
	for _, s := range id.Signal {
		sd.Signals = append(sd.Signals, SignalEntry{
			OperandIdx: s.OperandIdx,
			Type:       s.Type,
			Value:      s.Value,
		})
	}
	return sd, nil
}

func (fp *FileProvider) FindSignalInfoForQubit(signalType string, qubit int) (SignalInfo, error) {
	targets, ok := fp.doc.SignalMap[signalType]
	if !ok {
		return SignalInfo{}, &NotFoundError{Kind: "signal type", Key: signalType}
	}
	target, ok := targets[strconv.Itoa(qubit)]
	if !ok {
		return SignalInfo{}, &NotFoundError{Kind: "qubit mapping", Key: fmt.Sprintf("%s/%d", signalType, qubit)}
	}
	instrIdx, ok := fp.nameToIdx[target.Instrument]
	if !ok {
		return SignalInfo{}, &NotFoundError{Kind: "instrument", Key: target.Instrument}
	}
	ic, err := fp.InstrumentControl(instrIdx)
	if err != nil {
		return SignalInfo{}, err
	}
	return SignalInfo{InstrIdx: instrIdx, Group: target.Group, IC: ic}, nil
}

func (fp *FileProvider) IsReadout(instructionName string) bool {
	return fp.doc.Instructions[instructionName].Readout
}

func (fp *FileProvider) GetReadoutMode(instructionName string) string {
	return fp.doc.Instructions[instructionName].ReadoutMode
}

func (fp *FileProvider) FindStaticCodewordOverride(instructionName string, operandIdx int) (int, bool) {
	id, ok := fp.doc.Instructions[instructionName]
	if !ok || id.StaticCodewordOverride == nil {
		return -1, false
	}
	cw, ok := id.StaticCodewordOverride[strconv.Itoa(operandIdx)]
	if !ok {
		return -1, false
	}
	return cw, true
}

func (fp *FileProvider) GetResultBit(ic InstrumentControl, group int) (int, bool) {
	if group < 0 || group >= len(ic.ControlMode.ResultBits) {
		return 0, false
	}
	return ic.ControlMode.ResultBits[group], true
}
