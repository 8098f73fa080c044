package core

import (
	"fmt"

	"github.com/rvexec/rvexec/internal/riscvcore/log"
)

// SimState holds per-fetch scratch shared by the setup and replay paths of
// InstExecute: the opcode bits accumulated so far, whether half of a
// page-crossing opcode is still pending, a monotonic per-instruction
// counter, and the instruction decoded for the current PC. It belongs to
// exactly one hart and is reset at the start of every Fetch.
type SimState struct {
	CurrentOpcode Opcode
	PartialOpcode bool
	CurrentUID    uint64
	CurrentInst   Inst
}

// Reset clears the scratch state at the start of a new fetch.
func (s *SimState) Reset() {
	s.CurrentOpcode = 0
	s.PartialOpcode = false
	s.CurrentInst = nil
	// CurrentUID is a monotonic counter across the hart's lifetime and is
	// deliberately not reset here.
}

// Privilege is the current execution privilege level, relevant only to the
// CSR pre-checks InstExecute performs before caching an instruction.
type Privilege uint8

// RISC-V privilege levels.
const (
	PrivilegeUser Privilege = iota
	PrivilegeSupervisor
	PrivilegeMachine
)

func (p Privilege) String() string {
	switch p {
	case PrivilegeUser:
		return "U"
	case PrivilegeSupervisor:
		return "S"
	case PrivilegeMachine:
		return "M"
	default:
		return "?"
	}
}

// SATP is the CSR address of the Supervisor Address Translation and
// Protection register. A Supervisor-mode access to it is illegal when
// MSTATUS.TVM is set; see spec §4.5 step 8.
const SATP uint32 = 0x180

// CSRFile is the narrow CSR surface the dispatch core's pre-checks need. A
// full CSR file (general read/write semantics) lives in the ISA package,
// external to the core.
type CSRFile interface {
	// Exists reports whether csr names an implemented CSR.
	Exists(csr uint32) bool

	// MSTATUSTVM reports the current value of MSTATUS.TVM.
	MSTATUSTVM() bool
}

// Memory is the physical-memory interface the core reads opcodes through.
// Faults propagate as MemoryFaultError, distinct from the JumpTo control
// transfer used for page crossings.
type Memory interface {
	ReadMemory16(paddr Addr) (uint16, error)
	ReadMemory32(paddr Addr) (uint32, error)
}

// State is the per-hart machine state the dispatch core operates on: the
// program counter, the fetch translation bookkeeping, the decode/execute
// boundary interfaces, and the scratch SimState. One State belongs to
// exactly one hart; harts never share mutable state, so the core carries no
// internal locking.
type State struct {
	PC     Addr
	NextPC Addr

	Sim SimState

	// Retired counts instructions that have completed execution (PC
	// committed to NextPC). Unlike Sim.CurrentUID, which only increments on
	// a decode-cache miss, Retired increments every time, cache hit or not,
	// and is what a caller should watch to detect "one instruction done".
	Retired uint64

	FetchTranslation TranslationState

	Privilege Privilege
	CSR       CSRFile

	Mem     Memory
	Decoder Decoder
	Execute ExecuteStage

	log *log.Logger
}

// NewState builds a per-hart State. pc is the initial program counter.
func NewState(pc Addr, mem Memory, decoder Decoder, execute ExecuteStage, csr CSRFile) *State {
	return &State{
		PC:      pc,
		Mem:     mem,
		Decoder: decoder,
		Execute: execute,
		CSR:     csr,
		log:     log.DefaultLogger(),
	}
}

// WithLogger overrides the state's logger.
func (s *State) WithLogger(l *log.Logger) { s.log = l }

func (s *State) logger() *log.Logger {
	if s.log == nil {
		return log.DefaultLogger()
	}

	return s.log
}

// readMemory16 reads 16 bits at paddr, wrapping any failure as a
// MemoryFaultError.
func (s *State) readMemory16(paddr Addr) (uint16, error) {
	v, err := s.Mem.ReadMemory16(paddr)
	if err != nil {
		return 0, &MemoryFaultError{Addr: paddr, AccessSize: 2, Reason: err.Error()}
	}

	return v, nil
}

// readMemory32 reads 32 bits at paddr, wrapping any failure as a
// MemoryFaultError.
func (s *State) readMemory32(paddr Addr) (uint32, error) {
	v, err := s.Mem.ReadMemory32(paddr)
	if err != nil {
		return 0, &MemoryFaultError{Addr: paddr, AccessSize: 4, Reason: err.Error()}
	}

	return v, nil
}

// Retire commits NextPC to PC and counts the instruction as retired. ISA
// semantics call this as the final step of an instruction's action list,
// after any branch/jump has had the chance to set NextPC to something
// other than PC+opcode_size.
func (s *State) Retire() {
	s.PC = s.NextPC
	s.Retired++
}

func (s *State) String() string {
	return fmt.Sprintf("PC: %s NextPC: %s UID: %d PL: %s", s.PC, s.NextPC, s.Sim.CurrentUID, s.Privilege)
}
