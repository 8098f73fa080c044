package core

import "errors"

// Error kinds the dispatch core raises. ControlTransfer (the page-crossing
// bounce) is not one of these; it is modeled as JumpTo, a normal return
// value, not an error. See action.go.
var (
	// ErrIllegalInstruction is raised by decode failure, an unknown CSR, or a
	// TVM-blocked Supervisor access to SATP. It propagates past InstExecute
	// to the external trap machinery; the core itself never recovers from it.
	ErrIllegalInstruction = errors.New("illegal instruction")

	// ErrMemoryFault is raised by the memory interface for unmapped or
	// mis-permissioned physical addresses.
	ErrMemoryFault = errors.New("memory fault")

	// ErrInvariant marks an impossible state: an empty stack popped, a
	// bounded stack overflowed, or a malformed translation result. These
	// indicate a bug in Fetch or Translate, not a property of the simulated
	// program, so accessors panic with this error rather than return it.
	ErrInvariant = errors.New("invariant violation")
)

// IllegalInstructionError carries the opcode and address that failed to
// decode or failed a CSR pre-check.
type IllegalInstructionError struct {
	Addr   Addr
	Opcode Opcode
	Reason string
}

func (e *IllegalInstructionError) Error() string {
	if e.Reason == "" {
		return ErrIllegalInstruction.Error()
	}

	return ErrIllegalInstruction.Error() + ": " + e.Reason
}

func (e *IllegalInstructionError) Unwrap() error { return ErrIllegalInstruction }

// MemoryFaultError carries the physical address and access width that
// faulted.
type MemoryFaultError struct {
	Addr       Addr
	AccessSize uint8
	Reason     string
}

func (e *MemoryFaultError) Error() string {
	if e.Reason == "" {
		return ErrMemoryFault.Error()
	}

	return ErrMemoryFault.Error() + ": " + e.Reason
}

func (e *MemoryFaultError) Unwrap() error { return ErrMemoryFault }
