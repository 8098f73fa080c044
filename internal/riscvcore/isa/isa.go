// Package isa is a concrete instruction-set implementation plugged into the
// dispatch core through core.Decoder and core.ExecuteStage. The core treats
// decode and execute as opaque external collaborators; this package is one
// way to fill them in: a small RV32/RV64IMC subset, enough base integer and
// compressed opcodes to run straight-line code, branches, loads/stores, and
// a CSR access, without pulling in a full ISA.
//
// Everything register- and memory-shaped that the dispatch core itself has
// no opinion about -- the integer register file, CSR storage, data memory
// for loads and stores -- lives here, owned by Machine, not by core.State.
package isa

import "github.com/rvexec/rvexec/internal/riscvcore/core"

// Op identifies one of the instructions this package knows how to decode
// and execute.
type Op int

// Supported opcodes. The set matches the original simulator's own test
// fixtures (Lui, Addiw, CLi, CAddi, Bne) plus enough of the base integer and
// compressed set to exercise branches, memory, and CSR access.
const (
	OpUnknown Op = iota
	OpAdd
	OpAddi
	OpAddiw
	OpSub
	OpAnd
	OpOr
	OpXor
	OpSlt
	OpLui
	OpJal
	OpJalr
	OpBeq
	OpBne
	OpLw
	OpSw
	OpCsrrw
	OpCLi
	OpCAddi
	OpCMv
	OpCJ
	OpCBeqz
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpAddi:
		return "addi"
	case OpAddiw:
		return "addiw"
	case OpSub:
		return "sub"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpSlt:
		return "slt"
	case OpLui:
		return "lui"
	case OpJal:
		return "jal"
	case OpJalr:
		return "jalr"
	case OpBeq:
		return "beq"
	case OpBne:
		return "bne"
	case OpLw:
		return "lw"
	case OpSw:
		return "sw"
	case OpCsrrw:
		return "csrrw"
	case OpCLi:
		return "c.li"
	case OpCAddi:
		return "c.addi"
	case OpCMv:
		return "c.mv"
	case OpCJ:
		return "c.j"
	case OpCBeqz:
		return "c.beqz"
	default:
		return "unknown"
	}
}

// Instruction is the decoded handle this package hands back to the
// dispatch core as a core.Inst. Every field below is populated at decode
// time and is pure with respect to state: replaying a cached Instruction
// never re-decodes.
type Instruction struct {
	Op   Op
	Size uint8

	RD, RS1, RS2 uint32
	Imm          int64

	CSR     uint32
	withCSR bool
}

// OpcodeSize implements core.Inst.
func (i *Instruction) OpcodeSize() uint8 { return i.Size }

// HasCSR implements core.Inst.
func (i *Instruction) HasCSR() bool { return i.withCSR }

// CSRID implements core.Inst.
func (i *Instruction) CSRID() uint32 { return i.CSR }

// UpdateVecConfig implements core.Inst. This subset has no vector extension
// support, so every instruction is a no-op here.
func (i *Instruction) UpdateVecConfig(state *core.State) {}

// String implements core.Inst and fmt.Stringer.
func (i *Instruction) String() string {
	return i.Op.String()
}
