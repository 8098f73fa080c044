package isa

import (
	"testing"

	"github.com/rvexec/rvexec/internal/riscvcore/core"
)

func newTestMachineAndState(pc core.Addr) (*Machine, *core.State, *FlatMemory) {
	mem := NewFlatMemory(1 << 16)
	m := NewMachine(mem)
	state := core.NewState(pc, mem, NewDecoder(), m, m)

	return m, state, mem
}

// buildAndRun constructs and immediately runs inst's action group, the way
// InstExecute would on a cache miss followed by its first replay, without
// needing a whole Hart.
func buildAndRun(t *testing.T, m *Machine, state *core.State, inst *Instruction) {
	t.Helper()

	state.Sim.CurrentInst = inst
	state.NextPC = state.PC + core.Addr(inst.Size)

	group, err := m.Build(state)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, err := group.Execute(state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestExecuteArithmetic(t *testing.T) {
	t.Parallel()

	m, state, _ := newTestMachineAndState(0x1000)
	m.Regs[1] = 10
	m.Regs[2] = 32

	buildAndRun(t, m, state, &Instruction{Op: OpAdd, Size: 4, RD: 3, RS1: 1, RS2: 2})

	if m.Regs[3] != 42 {
		t.Fatalf("x3 = %d, want 42", m.Regs[3])
	}

	if state.Retired != 1 {
		t.Fatalf("Retired = %d, want 1", state.Retired)
	}

	if state.PC != 0x1004 {
		t.Fatalf("PC = %s, want 0x1004", state.PC)
	}
}

func TestExecuteXRegisterAlwaysZero(t *testing.T) {
	t.Parallel()

	m, state, _ := newTestMachineAndState(0x1000)
	m.Regs[1] = 7

	buildAndRun(t, m, state, &Instruction{Op: OpAdd, Size: 4, RD: 0, RS1: 1, RS2: 1})

	if m.reg(0) != 0 {
		t.Fatalf("x0 = %d, want 0", m.reg(0))
	}
}

func TestExecuteBranchTaken(t *testing.T) {
	t.Parallel()

	m, state, _ := newTestMachineAndState(0x2000)
	m.Regs[1] = 5
	m.Regs[2] = 5

	buildAndRun(t, m, state, &Instruction{Op: OpBeq, Size: 4, RS1: 1, RS2: 2, Imm: -8})

	if got, want := state.PC, core.Addr(0x2000-8); got != want {
		t.Fatalf("PC = %s, want %s", got, want)
	}
}

func TestExecuteBranchNotTaken(t *testing.T) {
	t.Parallel()

	m, state, _ := newTestMachineAndState(0x2000)
	m.Regs[1] = 5
	m.Regs[2] = 6

	buildAndRun(t, m, state, &Instruction{Op: OpBeq, Size: 4, RS1: 1, RS2: 2, Imm: -8})

	if got, want := state.PC, core.Addr(0x2004); got != want {
		t.Fatalf("PC = %s, want %s (fall-through)", got, want)
	}
}

func TestExecuteJalSetsLinkAndTarget(t *testing.T) {
	t.Parallel()

	m, state, _ := newTestMachineAndState(0x3000)

	buildAndRun(t, m, state, &Instruction{Op: OpJal, Size: 4, RD: 1, Imm: 0x100})

	if got, want := state.PC, core.Addr(0x3100); got != want {
		t.Fatalf("PC = %s, want %s", got, want)
	}

	if got, want := m.Regs[1], uint64(0x3004); got != want {
		t.Fatalf("link register x1 = %#x, want %#x", got, want)
	}
}

func TestExecuteLoadStoreRoundTrip(t *testing.T) {
	t.Parallel()

	m, state, _ := newTestMachineAndState(0x4000)
	m.Regs[1] = 0x8000 // base address
	m.Regs[2] = 0xdeadbeef

	buildAndRun(t, m, state, &Instruction{Op: OpSw, Size: 4, RS1: 1, RS2: 2, Imm: 0x10})
	buildAndRun(t, m, state, &Instruction{Op: OpLw, Size: 4, RD: 3, RS1: 1, Imm: 0x10})

	// lw sign-extends the loaded 32-bit word to 64 bits.
	if m.Regs[3] != 0xffffffffdeadbeef {
		t.Fatalf("x3 = %#x, want 0xffffffffdeadbeef", m.Regs[3])
	}
}

func TestExecuteCsrrwSwapsValue(t *testing.T) {
	t.Parallel()

	m, state, _ := newTestMachineAndState(0x5000)
	m.CSR.Write(core.SATP, 0x77)
	m.Regs[1] = 0x99

	buildAndRun(t, m, state, &Instruction{Op: OpCsrrw, Size: 4, RD: 2, RS1: 1, CSR: core.SATP, withCSR: true})

	if m.Regs[2] != 0x77 {
		t.Fatalf("old csr value x2 = %#x, want 0x77", m.Regs[2])
	}

	if v, _ := m.CSR.Read(core.SATP); v != 0x99 {
		t.Fatalf("new csr value = %#x, want 0x99", v)
	}
}

func TestExecuteCompressedMoveAndJump(t *testing.T) {
	t.Parallel()

	m, state, _ := newTestMachineAndState(0x6000)
	m.Regs[2] = 99

	buildAndRun(t, m, state, &Instruction{Op: OpCMv, Size: 2, RD: 1, RS2: 2})

	if m.Regs[1] != 99 {
		t.Fatalf("x1 = %d, want 99", m.Regs[1])
	}

	state.PC = 0x6100

	buildAndRun(t, m, state, &Instruction{Op: OpCJ, Size: 2, Imm: -0x10})

	if got, want := state.PC, core.Addr(0x6100-0x10); got != want {
		t.Fatalf("PC = %s, want %s", got, want)
	}
}
