// Package mmu provides PageWalker implementations for the dispatch core.
// The core treats a page walk as a pluggable boundary (core.PageWalker); this
// package supplies the flat, bare-metal walker rvexec actually drives, since
// the ISA subset it decodes has no supervisor-mode page tables to walk.
package mmu

import "github.com/rvexec/rvexec/internal/riscvcore/core"

// Identity is a PageWalker that maps every virtual address to itself at a
// fixed page size. It models execution with address translation disabled
// (SATP.MODE == Bare), which is the only translation mode rvexec's flat
// physical memory needs.
type Identity struct {
	PageSize core.PageSize
}

// NewIdentity returns an Identity walker using pageSize for every
// translation.
func NewIdentity(pageSize core.PageSize) *Identity {
	return &Identity{PageSize: pageSize}
}

// Walk implements core.PageWalker.
func (w *Identity) Walk(req core.TranslationRequest) (core.Addr, core.PageSize, error) {
	size := w.PageSize
	if size == core.PageInvalid {
		size = core.Page4KiB
	}

	return req.VAddr, size, nil
}
