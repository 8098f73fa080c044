package core

// translate.go defines the translation data model: addresses, page sizes,
// the pending-request/completed-result bookkeeping for one fetch, and the
// immutable TranslationResult record that an ExecutionPage is built from.
//
// Ported from the bounded std::array bookkeeping in
// PegasusTranslationState.hpp: a fixed-capacity stack of requests and a
// fixed-capacity stack of results, asserted never to overflow and never to
// hold both requests and results at once.

import (
	"fmt"
)

// Addr is a 64-bit virtual or physical address.
type Addr uint64

func (a Addr) String() string { return fmt.Sprintf("%#016x", uint64(a)) }

// Opcode is a 32-bit instruction word. When an instruction is compressed,
// only the lower 16 bits are meaningful and the upper 16 are held at zero.
type Opcode uint32

func (o Opcode) String() string { return fmt.Sprintf("%#08x", uint32(o)) }

// PageSize enumerates the page sizes a RISC-V translation can describe.
type PageSize int

// Supported page sizes, 4 KiB through 256 TiB.
const (
	PageInvalid PageSize = iota
	Page4KiB
	Page2MiB
	Page4MiB
	Page1GiB
	Page512GiB
	Page256TiB
)

// SizeInBytes returns the byte span of the page size. Each span is a power
// of two.
func (p PageSize) SizeInBytes() uint64 {
	switch p {
	case Page4KiB:
		return 4 * 1024
	case Page2MiB:
		return 2 * 1024 * 1024
	case Page4MiB:
		return 4 * 1024 * 1024
	case Page1GiB:
		return 1 * 1024 * 1024 * 1024
	case Page512GiB:
		return 512 * 1024 * 1024 * 1024
	case Page256TiB:
		return 256 * 1024 * 1024 * 1024 * 1024
	default:
		return 0
	}
}

func (p PageSize) String() string {
	switch p {
	case Page4KiB:
		return "4KiB"
	case Page2MiB:
		return "2MiB"
	case Page4MiB:
		return "4MiB"
	case Page1GiB:
		return "1GiB"
	case Page512GiB:
		return "512GiB"
	case Page256TiB:
		return "256TiB"
	default:
		return "invalid"
	}
}

// pageChunkSize is the fixed 4 KiB granularity ExecutionPage sub-divides any
// translated page into, regardless of the page's own size.
const pageChunkSize = 4 * 1024

// TranslationRequest describes one pending virtual-address translation.
type TranslationRequest struct {
	VAddr           Addr
	AccessSize      uint8
	Misaligned      bool
	MisalignedBytes uint8
}

// NewTranslationRequest builds a request for accessSize bytes at vaddr.
// Panics if accessSize is zero: callers (Fetch, loads, stores) always know
// their access width up front.
func NewTranslationRequest(vaddr Addr, accessSize uint8) TranslationRequest {
	if accessSize == 0 {
		panic(fmt.Errorf("%w: translation request access_size must be > 0", ErrInvariant))
	}

	return TranslationRequest{VAddr: vaddr, AccessSize: accessSize}
}

// SetMisaligned marks the request as misaligned, recording how many bytes
// of the access fall before the alignment boundary. Requires
// 0 < misalignedBytes < AccessSize.
func (r *TranslationRequest) SetMisaligned(misalignedBytes uint8) {
	if misalignedBytes == 0 || misalignedBytes >= r.AccessSize {
		panic(fmt.Errorf("%w: misaligned bytes %d out of range for access size %d",
			ErrInvariant, misalignedBytes, r.AccessSize))
	}

	r.Misaligned = true
	r.MisalignedBytes = misalignedBytes
}

// TranslationResult is an immutable record of a completed VA->PA
// translation for one page. It can describe any RISC-V page size, from
// 4 KiB up through 256 TiB.
type TranslationResult struct {
	vaddr         Addr
	paddr         Addr
	accessSize    uint8
	pageIndexMask Addr
	pageMask      Addr
}

// NewTranslationResult constructs a TranslationResult covering the page
// containing vaddr/paddr. It panics if vaddr and paddr do not share the
// same in-page offset, which would mean the translation is not actually a
// page-granular mapping.
func NewTranslationResult(vaddr, paddr Addr, accessSize uint8, pageSize PageSize) TranslationResult {
	indexMask := Addr(pageSize.SizeInBytes() - 1)
	mask := ^indexMask

	if vaddr&indexMask != paddr&indexMask {
		panic(fmt.Errorf("%w: translation vaddr %s and paddr %s disagree on page offset",
			ErrInvariant, vaddr, paddr))
	}

	return TranslationResult{
		vaddr:         vaddr,
		paddr:         paddr,
		accessSize:    accessSize,
		pageIndexMask: indexMask,
		pageMask:      mask,
	}
}

// VAddr returns the original virtual address this result was built from.
func (r TranslationResult) VAddr() Addr { return r.vaddr }

// PAddr returns the original physical address this result was built from.
func (r TranslationResult) PAddr() Addr { return r.paddr }

// AccessSize returns the access width, in bytes, the translation was
// requested for.
func (r TranslationResult) AccessSize() uint8 { return r.accessSize }

// Contains reports whether v falls on the same page as this result.
func (r TranslationResult) Contains(v Addr) bool {
	return (v & r.pageMask) == (r.vaddr & r.pageMask)
}

// Offset returns the in-page offset of v.
func (r TranslationResult) Offset(v Addr) Addr {
	return v & r.pageIndexMask
}

// Translate maps v, which must satisfy Contains(v), to its physical
// address by combining this result's physical page with v's offset.
func (r TranslationResult) Translate(v Addr) Addr {
	return (r.paddr & r.pageMask) | r.Offset(v)
}

// maxTranslationDepth bounds the per-hart translation request/result
// stacks, mirroring PegasusTranslationState::MAX_TRANSLATION.
const maxTranslationDepth = 64

// TranslationState is a per-hart, bounded stack of pending translation
// requests and completed results for the current fetch. Results and
// requests are never simultaneously non-empty: Fetch pushes a request,
// Translate pops it and pushes a result, and the result is consumed before
// the next fetch resets everything.
type TranslationState struct {
	requests     [maxTranslationDepth]TranslationRequest
	requestCount int
	results      [maxTranslationDepth]TranslationResult
	resultCount  int
}

// Reset clears both stacks. Called at the start of every fetch.
func (t *TranslationState) Reset() {
	t.requestCount = 0
	t.resultCount = 0
}

// PushRequest pushes a translation request. Panics if results are
// outstanding (the invariant the source asserts via results_cnt_ == 0) or
// if the stack is full.
func (t *TranslationState) PushRequest(req TranslationRequest) {
	if t.resultCount != 0 {
		panic(fmt.Errorf("%w: pushed translation request while results are outstanding", ErrInvariant))
	}

	if t.requestCount >= len(t.requests) {
		panic(fmt.Errorf("%w: translation request stack overflow", ErrInvariant))
	}

	t.requests[t.requestCount] = req
	t.requestCount++
}

// NumRequests returns the number of pending requests.
func (t *TranslationState) NumRequests() int { return t.requestCount }

// Request returns the most recently pushed, not-yet-popped request.
// Panics if the stack is empty.
func (t *TranslationState) Request() TranslationRequest {
	if t.requestCount == 0 {
		panic(fmt.Errorf("%w: popped empty translation request stack", ErrInvariant))
	}

	return t.requests[t.requestCount-1]
}

// PopRequest discards the most recently pushed request.
func (t *TranslationState) PopRequest() {
	if t.requestCount == 0 {
		panic(fmt.Errorf("%w: popped empty translation request stack", ErrInvariant))
	}

	t.requestCount--
}

// PushResult pushes a completed translation result. Panics if requests are
// still outstanding or if the stack is full.
func (t *TranslationState) PushResult(res TranslationResult) {
	if t.requestCount != 0 {
		panic(fmt.Errorf("%w: pushed translation result while requests are outstanding", ErrInvariant))
	}

	if t.resultCount >= len(t.results) {
		panic(fmt.Errorf("%w: translation result stack overflow", ErrInvariant))
	}

	t.results[t.resultCount] = res
	t.resultCount++
}

// NumResults returns the number of pending results.
func (t *TranslationState) NumResults() int { return t.resultCount }

// Result returns the most recently pushed, not-yet-popped result. Panics
// if the stack is empty.
func (t *TranslationState) Result() TranslationResult {
	if t.resultCount == 0 {
		panic(fmt.Errorf("%w: popped empty translation result stack", ErrInvariant))
	}

	return t.results[t.resultCount-1]
}

// PopResult discards the most recently pushed result.
func (t *TranslationState) PopResult() {
	if t.resultCount == 0 {
		panic(fmt.Errorf("%w: popped empty translation result stack", ErrInvariant))
	}

	t.resultCount--
}
