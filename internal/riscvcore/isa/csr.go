package isa

// csr.go is the narrow control-and-status-register file ISA semantics
// need: enough to satisfy core.CSRFile's pre-check surface (does a CSR
// exist, is MSTATUS.TVM set) and to give csrrw somewhere to read and write.

import "github.com/rvexec/rvexec/internal/riscvcore/core"

// mstatusTVM is the bit position of MSTATUS.TVM (Trap Virtual Memory).
const mstatusTVM = 1 << 20

// CSRFile is a minimal machine/supervisor CSR file: a flat map keyed by CSR
// address, plus the MSTATUS bit the dispatch core's pre-check needs to read
// directly rather than through a generic CSR read (MSTATUS.TVM gates SATP
// access before the instruction is even allowed to execute).
type CSRFile struct {
	regs map[uint32]uint64
}

// NewCSRFile builds an empty CSR file with SATP and MSTATUS implemented.
func NewCSRFile() *CSRFile {
	return &CSRFile{regs: map[uint32]uint64{
		core.SATP: 0,
		mstatus:   0,
	}}
}

const mstatus = 0x300

// Exists implements core.CSRFile.
func (f *CSRFile) Exists(csr uint32) bool {
	_, ok := f.regs[csr]
	return ok
}

// MSTATUSTVM implements core.CSRFile.
func (f *CSRFile) MSTATUSTVM() bool {
	return f.regs[mstatus]&mstatusTVM != 0
}

// SetMSTATUSTVM sets or clears MSTATUS.TVM, for test setup and for a
// supervisor-mode handler that wants to toggle it.
func (f *CSRFile) SetMSTATUSTVM(set bool) {
	if set {
		f.regs[mstatus] |= mstatusTVM
	} else {
		f.regs[mstatus] &^= mstatusTVM
	}
}

// Read returns the raw value of csr and whether it exists.
func (f *CSRFile) Read(csr uint32) (uint64, bool) {
	v, ok := f.regs[csr]
	return v, ok
}

// Write stores v at csr, declaring it implemented if it was not already.
func (f *CSRFile) Write(csr uint32, v uint64) {
	f.regs[csr] = v
}
