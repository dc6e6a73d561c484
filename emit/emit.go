// Package emit renders the textual Central-Controller assembly: a .CODE
// section of four-column lines (label/slot, mnemonic, operands, trailing
// comment) framed by program-start/finish boilerplate, plus the mnemonic
// vocabulary the instruction set names. Output accumulates into a
// strings.Builder held on a small owning struct, incrementally, the same
// way PrintState-style renderers build up text line by line.
package emit

import (
	"fmt"
	"strings"
)

// Mnemonics used by the backend.
const (
	SeqOut    = "seq_out"
	SeqOutSm  = "seq_out_sm"
	SeqInSm   = "seq_in_sm"
	SeqInvSm  = "seq_inv_sm"
	SeqClSm   = "seq_cl_sm"
	SeqWait   = "seq_wait"
	SeqBar    = "seq_bar"
	SeqState  = "seq_state"
	Move      = "move"
	MoveSm    = "move_sm"
	Add       = "add"
	Sub       = "sub"
	And       = "and"
	Or        = "or"
	Xor       = "xor"
	Not       = "not"
	Nop       = "nop"
	Jmp       = "jmp"
	Jlt       = "jlt"
	Jge       = "jge"
	Loop      = "loop"
	Stop      = "stop"
)

const (
	colLabel    = 16
	colMnemonic = 16
	colOperands = 36
)

// Section accumulates formatted assembly lines.
type Section struct {
	sb strings.Builder
}

// NewSection returns an empty section.
func NewSection() *Section {
	return &Section{}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Emit appends one formatted instruction line. label is either a slot
// selector ("[3]") or empty; comment is written without a leading '#' (one
// is added). A label longer than 16 characters is placed on its own line.
func (s *Section) Emit(label, mnemonic, operands, comment string) {
	if len(label) > colLabel {
		s.sb.WriteString(label)
		s.sb.WriteString("\n")
		label = ""
	}
	line := padRight(label, colLabel) + padRight(mnemonic, colMnemonic) + padRight(operands, colOperands)
	if comment != "" {
		line += "# " + comment
	}
	s.sb.WriteString(strings.TrimRight(line, " "))
	s.sb.WriteString("\n")
}

// EmitLabel appends a bare label line, e.g. "foo_start:".
func (s *Section) EmitLabel(label string) {
	if len(label) > colLabel {
		s.sb.WriteString(label)
		s.sb.WriteString("\n")
		return
	}
	s.sb.WriteString(label)
	s.sb.WriteString("\n")
}

// Comment appends a stand-alone comment line.
func (s *Section) Comment(text string) {
	s.sb.WriteString("# ")
	s.sb.WriteString(text)
	s.sb.WriteString("\n")
}

// String returns the accumulated section text.
func (s *Section) String() string {
	return s.sb.String()
}

// Program frames a full .CODE/.END document.
type Program struct {
	Code *Section
}

// NewProgram returns a Program with an empty .CODE section.
func NewProgram() *Program {
	return &Program{Code: NewSection()}
}

// Start writes the program header: a name comment, seq_bar global sync, a
// dummy seq_out for trace-unit visibility, the main-loop label (unless
// runOnce) and the initial seq_state.
func (p *Program) Start(name string, runOnce bool) {
	p.Code.Comment(fmt.Sprintf("program: %s", name))
	p.Code.Emit("", SeqBar, "", "global synchronization")
	p.Code.Emit("", SeqOut, "0x00000000,1", "dummy output for trace unit visibility")
	if !runOnce {
		p.Code.EmitLabel("__mainLoop:")
	}
	p.Code.Emit("", SeqState, "0", "")
}

// Finish writes the program trailer: either a stop (run-once) or a wait
// plus jump back to the main loop (continuous). The .END marker is added by
// String.
func (p *Program) Finish(runOnce bool) {
	if runOnce {
		p.Code.Emit("", Stop, "", "")
	} else {
		p.Code.Emit("", SeqWait, "1", "")
		p.Code.Emit("", Jmp, "@__mainLoop", "")
	}
}

// String renders the full .CODE/.END document.
func (p *Program) String() string {
	var sb strings.Builder
	sb.WriteString(".CODE\n")
	sb.WriteString(p.Code.String())
	sb.WriteString(".END\n")
	return sb.String()
}
