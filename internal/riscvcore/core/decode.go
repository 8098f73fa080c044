package core

// decode.go defines the boundary to the external instruction decoder. The
// dispatch core treats decode as a black box: it hands the decoder an
// opcode and the current state, and gets back an opaque, already-decoded
// Inst or a decode error. Real ISA semantics -- what an Inst actually does
// to registers, memory, and CSRs -- live entirely outside this package; see
// internal/riscvcore/isa for a concrete implementation.

// Inst is an opaque decoded-instruction handle produced by the external
// decoder.
type Inst interface {
	// OpcodeSize returns 2 for a compressed instruction, 4 otherwise.
	OpcodeSize() uint8

	// HasCSR reports whether the instruction accesses a CSR.
	HasCSR() bool

	// CSRID returns the CSR identifier the instruction accesses. Only
	// meaningful when HasCSR is true.
	CSRID() uint32

	// UpdateVecConfig lets the instruction update vector-extension
	// configuration state before it executes. Most instructions are no-ops
	// here; it exists because a cached instruction, replayed from
	// ExecutionPage, may need to re-derive vector state that depends on
	// mutable CSRs rather than on the opcode alone.
	UpdateVecConfig(state *State)

	String() string
}

// Decoder turns a raw opcode into a decoded Inst. Decoder implementations
// are free to cache internally; the contract with the dispatch core is that
// Decode is otherwise pure with respect to state.
type Decoder interface {
	Decode(op Opcode, state *State) (Inst, error)
}

// ExecuteStage is the boundary to the external ISA-semantics component.
// Build, during InstExecute's first-visit setup, returns an ActionGroup
// specific to the currently decoded instruction (state.Sim.CurrentInst).
// That group's terminal next-group pointer must be independently settable,
// since setupInst chains it onward to the owning ExecutionPage.
type ExecuteStage interface {
	Build(state *State) (*ActionGroup, error)
}
