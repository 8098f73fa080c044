package isa

// execute.go implements core.ExecuteStage: given the currently decoded
// Instruction (state.Sim.CurrentInst), build the single-group action list
// InstExecute caches and replays. Every instruction's action list ends by
// calling state.Retire, which is how the dispatch core's Hart.Step knows
// one instruction has completed -- see core.State.Retire and core.Hart.Step.

import (
	"fmt"

	"github.com/rvexec/rvexec/internal/riscvcore/core"
	"github.com/rvexec/rvexec/internal/riscvcore/log"
)

// Machine owns everything ISA semantics need that the dispatch core itself
// has no opinion about: the integer register file, the CSR file, and data
// memory for loads and stores. It implements core.ExecuteStage and
// core.CSRFile, and is passed to core.NewHart as both.
type Machine struct {
	Regs [32]uint64
	CSR  *CSRFile
	Mem  MemoryAccess

	log *log.Logger
}

// NewMachine builds a Machine over the given data memory.
func NewMachine(mem MemoryAccess) *Machine {
	return &Machine{
		CSR: NewCSRFile(),
		Mem: mem,
		log: log.DefaultLogger(),
	}
}

// WithLogger overrides the machine's logger.
func (m *Machine) WithLogger(l *log.Logger) *Machine {
	m.log = l
	return m
}

// Exists implements core.CSRFile by delegating to the CSR file.
func (m *Machine) Exists(csr uint32) bool { return m.CSR.Exists(csr) }

// MSTATUSTVM implements core.CSRFile by delegating to the CSR file.
func (m *Machine) MSTATUSTVM() bool { return m.CSR.MSTATUSTVM() }

// reg reads integer register i; x0 is hardwired to zero.
func (m *Machine) reg(i uint32) uint64 {
	if i == 0 {
		return 0
	}

	return m.Regs[i]
}

// setReg writes integer register i; writes to x0 are discarded.
func (m *Machine) setReg(i uint32, v uint64) {
	if i != 0 {
		m.Regs[i] = v
	}
}

type execFunc func(m *Machine, state *core.State, inst *Instruction) error

var execTable = map[Op]execFunc{
	OpAdd:   execAdd,
	OpAddi:  execAddi,
	OpAddiw: execAddiw,
	OpSub:   execSub,
	OpAnd:   execAnd,
	OpOr:    execOr,
	OpXor:   execXor,
	OpSlt:   execSlt,
	OpLui:   execLui,
	OpJal:   execJal,
	OpJalr:  execJalr,
	OpBeq:   execBeq,
	OpBne:   execBne,
	OpLw:    execLw,
	OpSw:    execSw,
	OpCsrrw: execCsrrw,
	OpCLi:   execCLi,
	OpCAddi: execCAddi,
	OpCMv:   execCMv,
	OpCJ:    execCJ,
	OpCBeqz: execCBeqz,
}

// Build implements core.ExecuteStage. It returns one ActionGroup holding
// two actions: the instruction's semantics, then retire. A single group
// is its own terminal, so InstExecute.setupInst's "settable terminal"
// fallback applies here without Build needing to construct a chain.
func (m *Machine) Build(state *core.State) (*core.ActionGroup, error) {
	inst, ok := state.Sim.CurrentInst.(*Instruction)
	if !ok {
		return nil, fmt.Errorf("isa: unexpected instruction type %T", state.Sim.CurrentInst)
	}

	exec, ok := execTable[inst.Op]
	if !ok {
		return nil, fmt.Errorf("isa: no execute handler for %s", inst.Op)
	}

	group := core.NewActionGroup(inst.Op.String(), core.TagExecute)

	group.AddAction(core.NewAction(inst.Op.String(), func(s *core.State, cursor int) core.ActionResult {
		if err := exec(m, s, inst); err != nil {
			return core.Fail(err)
		}

		return core.Continue(cursor + 1)
	}, core.TagExecute))

	group.AddAction(core.NewAction("retire", func(s *core.State, cursor int) core.ActionResult {
		s.Retire()
		return core.Continue(cursor + 1)
	}, core.TagExecute))

	return group, nil
}

func execAdd(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, m.reg(inst.RS1)+m.reg(inst.RS2))
	return nil
}

func execAddi(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, m.reg(inst.RS1)+uint64(inst.Imm))
	return nil
}

func execAddiw(m *Machine, state *core.State, inst *Instruction) error {
	v := int32(uint32(m.reg(inst.RS1)) + uint32(inst.Imm))
	m.setReg(inst.RD, uint64(int64(v)))

	return nil
}

func execSub(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, m.reg(inst.RS1)-m.reg(inst.RS2))
	return nil
}

func execAnd(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, m.reg(inst.RS1)&m.reg(inst.RS2))
	return nil
}

func execOr(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, m.reg(inst.RS1)|m.reg(inst.RS2))
	return nil
}

func execXor(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, m.reg(inst.RS1)^m.reg(inst.RS2))
	return nil
}

func execSlt(m *Machine, state *core.State, inst *Instruction) error {
	if int64(m.reg(inst.RS1)) < int64(m.reg(inst.RS2)) {
		m.setReg(inst.RD, 1)
	} else {
		m.setReg(inst.RD, 0)
	}

	return nil
}

func execLui(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, uint64(inst.Imm))
	return nil
}

func execJal(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, uint64(state.NextPC))
	state.NextPC = state.PC + core.Addr(inst.Imm)

	return nil
}

func execJalr(m *Machine, state *core.State, inst *Instruction) error {
	target := (m.reg(inst.RS1) + uint64(inst.Imm)) &^ 1
	m.setReg(inst.RD, uint64(state.NextPC))
	state.NextPC = core.Addr(target)

	return nil
}

func execBeq(m *Machine, state *core.State, inst *Instruction) error {
	if m.reg(inst.RS1) == m.reg(inst.RS2) {
		state.NextPC = state.PC + core.Addr(inst.Imm)
	}

	return nil
}

func execBne(m *Machine, state *core.State, inst *Instruction) error {
	if m.reg(inst.RS1) != m.reg(inst.RS2) {
		state.NextPC = state.PC + core.Addr(inst.Imm)
	}

	return nil
}

func execLw(m *Machine, state *core.State, inst *Instruction) error {
	addr := core.Addr(m.reg(inst.RS1) + uint64(inst.Imm))

	w, err := m.Mem.ReadMemory32(addr)
	if err != nil {
		return &core.MemoryFaultError{Addr: addr, AccessSize: 4, Reason: err.Error()}
	}

	m.setReg(inst.RD, uint64(int64(int32(w))))

	return nil
}

func execSw(m *Machine, state *core.State, inst *Instruction) error {
	addr := core.Addr(m.reg(inst.RS1) + uint64(inst.Imm))

	if err := m.Mem.WriteMemory32(addr, uint32(m.reg(inst.RS2))); err != nil {
		return &core.MemoryFaultError{Addr: addr, AccessSize: 4, Reason: err.Error()}
	}

	return nil
}

func execCsrrw(m *Machine, state *core.State, inst *Instruction) error {
	old, _ := m.CSR.Read(inst.CSR)
	m.CSR.Write(inst.CSR, m.reg(inst.RS1))
	m.setReg(inst.RD, old)

	return nil
}

func execCLi(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, uint64(inst.Imm))
	return nil
}

func execCAddi(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, m.reg(inst.RS1)+uint64(inst.Imm))
	return nil
}

func execCMv(m *Machine, state *core.State, inst *Instruction) error {
	m.setReg(inst.RD, m.reg(inst.RS2))
	return nil
}

func execCJ(m *Machine, state *core.State, inst *Instruction) error {
	state.NextPC = state.PC + core.Addr(inst.Imm)
	return nil
}

func execCBeqz(m *Machine, state *core.State, inst *Instruction) error {
	if m.reg(inst.RS1) == 0 {
		state.NextPC = state.PC + core.Addr(inst.Imm)
	}

	return nil
}
