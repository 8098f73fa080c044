package isa

// decode.go pulls opcode, register, and immediate fields out of a raw
// 16- or 32-bit opcode word. The shift-and-mask style here mirrors the
// RiSC-32 VM's own DecodeOpcode/DecodeRA/... helpers, adapted to the RISC-V
// base and compressed instruction formats instead of RiSC-32's three.

import (
	"fmt"

	"github.com/rvexec/rvexec/internal/riscvcore/core"
)

// Decoder implements core.Decoder for the RV32/RV64IMC subset this package
// knows. It carries no state of its own: decoding is a pure function of the
// opcode word.
type Decoder struct{}

// NewDecoder builds a Decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Decode implements core.Decoder. op has already been masked by the
// dispatch core to 16 bits for a compressed instruction or 32 bits
// otherwise; the low two bits of a 32-bit-wide word are always 0b11; a
// compressed word's low two bits never are, so that's what dispatches
// between the two decode paths here too.
func (d *Decoder) Decode(op core.Opcode, state *core.State) (core.Inst, error) {
	if op&0x3 != 0x3 {
		return decodeCompressed(uint16(op))
	}

	return decodeBase(uint32(op))
}

// base (32-bit) field extraction, RISC-V's own bit numbering.

func opcode7(w uint32) uint32  { return w & 0x7f }
func rd(w uint32) uint32       { return (w >> 7) & 0x1f }
func funct3(w uint32) uint32   { return (w >> 12) & 0x7 }
func rs1(w uint32) uint32      { return (w >> 15) & 0x1f }
func rs2(w uint32) uint32      { return (w >> 20) & 0x1f }
func funct7(w uint32) uint32   { return (w >> 25) & 0x7f }
func immI(w uint32) int64      { return signExtend(int64(w)>>20, 12) }
func immS(w uint32) int64 {
	v := ((w >> 25) << 5) | ((w >> 7) & 0x1f)
	return signExtend(int64(v), 12)
}
func immB(w uint32) int64 {
	v := (((w >> 31) & 0x1) << 12) |
		(((w >> 7) & 0x1) << 11) |
		(((w >> 25) & 0x3f) << 5) |
		(((w >> 8) & 0xf) << 1)
	return signExtend(int64(v), 13)
}
func immU(w uint32) int64 { return int64(int32(w & 0xfffff000)) }
func immJ(w uint32) int64 {
	v := (((w >> 31) & 0x1) << 20) |
		(((w >> 12) & 0xff) << 12) |
		(((w >> 20) & 0x1) << 11) |
		(((w >> 21) & 0x3ff) << 1)
	return signExtend(int64(v), 21)
}

func signExtend(v int64, bits uint) int64 {
	shift := 64 - bits
	return (v << shift) >> shift
}

// RISC-V base opcode-field values this package understands.
const (
	opLUI     = 0x37
	opJAL     = 0x6f
	opJALR    = 0x67
	opBRANCH  = 0x63
	opLOAD    = 0x03
	opSTORE   = 0x23
	opIMM     = 0x13
	opIMM32   = 0x1b
	opOP      = 0x33
	opSYSTEM  = 0x73
)

func decodeBase(w uint32) (core.Inst, error) {
	op := opcode7(w)
	f3 := funct3(w)
	f7 := funct7(w)

	inst := &Instruction{Size: 4, RD: rd(w), RS1: rs1(w), RS2: rs2(w)}

	switch op {
	case opLUI:
		// U-type: no source registers.
		inst.Op = OpLui
		inst.RS1, inst.RS2 = 0, 0
		inst.Imm = immU(w)

	case opJAL:
		// J-type: no source registers.
		inst.Op = OpJal
		inst.RS1, inst.RS2 = 0, 0
		inst.Imm = immJ(w)

	case opJALR:
		if f3 != 0 {
			return nil, fmt.Errorf("isa: bad jalr funct3 %#x", f3)
		}

		inst.Op = OpJalr
		inst.Imm = immI(w)

	case opBRANCH:
		inst.Imm = immB(w)

		switch f3 {
		case 0x0:
			inst.Op = OpBeq
		case 0x1:
			inst.Op = OpBne
		default:
			return nil, fmt.Errorf("isa: unsupported branch funct3 %#x", f3)
		}

	case opLOAD:
		if f3 != 0x2 {
			return nil, fmt.Errorf("isa: unsupported load funct3 %#x", f3)
		}

		inst.Op = OpLw
		inst.Imm = immI(w)

	case opSTORE:
		if f3 != 0x2 {
			return nil, fmt.Errorf("isa: unsupported store funct3 %#x", f3)
		}

		inst.Op = OpSw
		inst.Imm = immS(w)

	case opIMM:
		if f3 != 0x0 {
			return nil, fmt.Errorf("isa: unsupported op-imm funct3 %#x", f3)
		}

		inst.Op = OpAddi
		inst.Imm = immI(w)

	case opIMM32:
		if f3 != 0x0 {
			return nil, fmt.Errorf("isa: unsupported op-imm-32 funct3 %#x", f3)
		}

		inst.Op = OpAddiw
		inst.Imm = immI(w)

	case opOP:
		switch {
		case f3 == 0x0 && f7 == 0x00:
			inst.Op = OpAdd
		case f3 == 0x0 && f7 == 0x20:
			inst.Op = OpSub
		case f3 == 0x7 && f7 == 0x00:
			inst.Op = OpAnd
		case f3 == 0x6 && f7 == 0x00:
			inst.Op = OpOr
		case f3 == 0x4 && f7 == 0x00:
			inst.Op = OpXor
		case f3 == 0x2 && f7 == 0x00:
			inst.Op = OpSlt
		default:
			return nil, fmt.Errorf("isa: unsupported op funct3/funct7 %#x/%#x", f3, f7)
		}

	case opSYSTEM:
		if f3 != 0x1 {
			return nil, fmt.Errorf("isa: unsupported system funct3 %#x", f3)
		}

		inst.Op = OpCsrrw
		inst.CSR = w >> 20
		inst.withCSR = true

	default:
		return nil, fmt.Errorf("isa: unsupported opcode %#x", op)
	}

	return inst, nil
}

// compressed (16-bit) field extraction and decode. Register fields named
// with a prime in the ISA manual (rs1', rs2', naming x8-x15) are decoded by
// compressedReg.

func compressedReg(bits uint16) uint32 { return uint32(bits&0x7) + 8 }

func decodeCompressed(w uint16) (core.Inst, error) {
	quadrant := w & 0x3
	f3 := (w >> 13) & 0x7

	inst := &Instruction{Size: 2}

	switch {
	case quadrant == 0x1 && f3 == 0x2:
		// C.LI: CI format, rd = x[11:7], imm[5]=bit12, imm[4:0]=bits[6:2].
		inst.Op = OpCLi
		inst.RD = uint32((w >> 7) & 0x1f)
		inst.Imm = ciImm(w)

	case quadrant == 0x1 && f3 == 0x0:
		// C.ADDI: same CI encoding, rd doubles as rs1.
		inst.Op = OpCAddi
		inst.RD = uint32((w >> 7) & 0x1f)
		inst.RS1 = inst.RD
		inst.Imm = ciImm(w)

	case quadrant == 0x2 && f3 == 0x4 && (w>>12)&0x1 == 0:
		// C.MV: CR format, funct4 1000, rs2 != 0.
		rs2 := uint32((w >> 2) & 0x1f)
		if rs2 == 0 {
			return nil, fmt.Errorf("isa: c.jr not supported")
		}

		inst.Op = OpCMv
		inst.RD = uint32((w >> 7) & 0x1f)
		inst.RS2 = rs2

	case quadrant == 0x1 && f3 == 0x5:
		// C.J: CJ format.
		inst.Op = OpCJ
		inst.Imm = cjImm(w)

	case quadrant == 0x1 && f3 == 0x6:
		// C.BEQZ: CB format, rs1' in x8-x15.
		inst.Op = OpCBeqz
		inst.RS1 = compressedReg(w >> 7)
		inst.Imm = cbImm(w)

	default:
		return nil, fmt.Errorf("isa: unsupported compressed opcode %#04x", w)
	}

	return inst, nil
}

// ciImm decodes the RISC-V CI-format immediate used by C.LI and C.ADDI:
// imm[5]=bit12, imm[4:0]=bits[6:2], sign-extended from bit 5.
func ciImm(w uint16) int64 {
	v := (((w >> 12) & 0x1) << 5) | ((w >> 2) & 0x1f)
	return signExtend(int64(v), 6)
}

// cjImm decodes the RISC-V CJ-format jump-target immediate used by C.J,
// scrambled per the compressed-instruction spec.
func cjImm(w uint16) int64 {
	v := (((w >> 12) & 0x1) << 11) |
		(((w >> 11) & 0x1) << 4) |
		(((w >> 9) & 0x3) << 8) |
		(((w >> 8) & 0x1) << 10) |
		(((w >> 7) & 0x1) << 6) |
		(((w >> 6) & 0x1) << 7) |
		(((w >> 3) & 0x7) << 1) |
		(((w >> 2) & 0x1) << 5)

	return signExtend(int64(v), 12)
}

// cbImm decodes the RISC-V CB-format branch immediate used by C.BEQZ.
func cbImm(w uint16) int64 {
	v := (((w >> 12) & 0x1) << 8) |
		(((w >> 10) & 0x3) << 3) |
		(((w >> 5) & 0x3) << 6) |
		(((w >> 3) & 0x3) << 1) |
		(((w >> 2) & 0x1) << 5)

	return signExtend(int64(v), 9)
}
