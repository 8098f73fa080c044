package isa

import (
	"testing"

	"github.com/rvexec/rvexec/internal/riscvcore/core"
)

// These opcode words are the same ones disassembled in the original
// simulator's own test fixture comments (lui ra,0x989 / addiw ra,ra,1664 /
// c.li sp,1 / c.addi sp,sp,1 / bne sp,ra,...): straight-line RV64 code for
// a loop counter.
func TestDecodeBaseFixtureProgram(t *testing.T) {
	t.Parallel()

	d := NewDecoder()

	cases := []struct {
		name   string
		opcode core.Opcode
		wantOp Op
		rd     uint32
		rs1    uint32
		imm    int64
	}{
		{"lui", 0x009890b7, OpLui, 1, 0, 0x00989000},
		{"addiw", 0x6800809b, OpAddiw, 1, 1, 1664},
	}

	for _, c := range cases {
		inst, err := d.Decode(c.opcode, nil)
		if err != nil {
			t.Fatalf("%s: Decode() error = %v", c.name, err)
		}

		ri, ok := inst.(*Instruction)
		if !ok {
			t.Fatalf("%s: Decode() returned %T, want *Instruction", c.name, inst)
		}

		if ri.Op != c.wantOp {
			t.Errorf("%s: Op = %s, want %s", c.name, ri.Op, c.wantOp)
		}

		if ri.RD != c.rd {
			t.Errorf("%s: RD = %d, want %d", c.name, ri.RD, c.rd)
		}

		if ri.RS1 != c.rs1 {
			t.Errorf("%s: RS1 = %d, want %d", c.name, ri.RS1, c.rs1)
		}

		if ri.Imm != c.imm {
			t.Errorf("%s: Imm = %d, want %d", c.name, ri.Imm, c.imm)
		}

		if ri.Size != 4 {
			t.Errorf("%s: Size = %d, want 4", c.name, ri.Size)
		}
	}
}

func TestDecodeCompressedFixtureProgram(t *testing.T) {
	t.Parallel()

	d := NewDecoder()

	cases := []struct {
		name   string
		opcode core.Opcode
		wantOp Op
		rd     uint32
		imm    int64
	}{
		{"c.li", 0x4105, OpCLi, 2, 1},
		{"c.addi", 0x0105, OpCAddi, 2, 1},
	}

	for _, c := range cases {
		inst, err := d.Decode(c.opcode, nil)
		if err != nil {
			t.Fatalf("%s: Decode() error = %v", c.name, err)
		}

		ri := inst.(*Instruction)

		if ri.Op != c.wantOp {
			t.Errorf("%s: Op = %s, want %s", c.name, ri.Op, c.wantOp)
		}

		if ri.RD != c.rd {
			t.Errorf("%s: RD = %d, want %d", c.name, ri.RD, c.rd)
		}

		if ri.Imm != c.imm {
			t.Errorf("%s: Imm = %d, want %d", c.name, ri.Imm, c.imm)
		}

		if ri.Size != 2 {
			t.Errorf("%s: Size = %d, want 2", c.name, ri.Size)
		}
	}
}

func TestDecodeBranch(t *testing.T) {
	t.Parallel()

	d := NewDecoder()

	// bne sp,ra,... (0xfe111fe3): funct3=0x1 selects bne over beq.
	inst, err := d.Decode(0xfe111fe3, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	ri := inst.(*Instruction)

	if ri.Op != OpBne {
		t.Fatalf("Op = %s, want bne", ri.Op)
	}

	if ri.RS1 != 2 || ri.RS2 != 1 {
		t.Fatalf("RS1/RS2 = %d/%d, want 2/1 (sp, ra)", ri.RS1, ri.RS2)
	}

	if ri.Imm >= 0 {
		t.Fatalf("Imm = %d, want a negative (backward) branch offset", ri.Imm)
	}
}

func TestDecodeUnsupportedOpcodeFails(t *testing.T) {
	t.Parallel()

	d := NewDecoder()

	if _, err := d.Decode(0x0000000f, nil); err == nil {
		t.Fatalf("Decode() error = nil, want a decode error for an unmapped opcode")
	}
}

func TestDecodeRTypeAndSystem(t *testing.T) {
	t.Parallel()

	d := NewDecoder()

	// add x3, x1, x2: opcode OP(0x33), funct3 0, funct7 0, rd=3 rs1=1 rs2=2.
	addWord := uint32(0x33) | (3 << 7) | (0 << 12) | (1 << 15) | (2 << 20) | (0 << 25)

	inst, err := d.Decode(core.Opcode(addWord), nil)
	if err != nil {
		t.Fatalf("add: Decode() error = %v", err)
	}

	ri := inst.(*Instruction)
	if ri.Op != OpAdd || ri.RD != 3 || ri.RS1 != 1 || ri.RS2 != 2 {
		t.Fatalf("add: decoded %+v, want add x3,x1,x2", ri)
	}

	// csrrw x5, satp, x6: opcode SYSTEM(0x73), funct3=1, csr=SATP.
	csrWord := uint32(0x73) | (5 << 7) | (1 << 12) | (6 << 15) | (core.SATP << 20)

	inst, err = d.Decode(core.Opcode(csrWord), nil)
	if err != nil {
		t.Fatalf("csrrw: Decode() error = %v", err)
	}

	ri = inst.(*Instruction)
	if ri.Op != OpCsrrw || !ri.HasCSR() || ri.CSRID() != core.SATP {
		t.Fatalf("csrrw: decoded %+v, want csrrw touching SATP", ri)
	}
}
