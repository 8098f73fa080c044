package core

// testutil_test.go builds a minimal fixture machine per test, following the
// reference simulator's own habit (test/block_execute/BlockExecute_test.cpp)
// of wiring one Hart directly rather than sharing a global. The fake
// Decoder/ExecuteStage here stand in for internal/riscvcore/isa so these
// tests stay entirely within the core package.

import "fmt"

// fakeMemory is a flat byte-addressed physical memory backed by a map, so
// sparse test programs (e.g. across a page boundary) don't need a full
// address space allocated.
type fakeMemory struct {
	words map[Addr]uint32
}

func newFakeMemory() *fakeMemory { return &fakeMemory{words: make(map[Addr]uint32)} }

func (m *fakeMemory) writeWord(paddr Addr, v uint32) { m.words[paddr&^3] = v }

func (m *fakeMemory) writeHalf(paddr Addr, v uint16) {
	word := m.words[paddr&^3]
	if paddr&2 == 0 {
		word = (word &^ 0xffff) | uint32(v)
	} else {
		word = (word &^ 0xffff0000) | (uint32(v) << 16)
	}

	m.words[paddr&^3] = word
}

func (m *fakeMemory) ReadMemory16(paddr Addr) (uint16, error) {
	word, ok := m.words[paddr&^3]
	if !ok {
		return 0, fmt.Errorf("fakeMemory: unmapped %s", paddr)
	}

	if paddr&2 == 0 {
		return uint16(word), nil
	}

	return uint16(word >> 16), nil
}

func (m *fakeMemory) ReadMemory32(paddr Addr) (uint32, error) {
	word, ok := m.words[paddr]
	if !ok {
		return 0, fmt.Errorf("fakeMemory: unmapped %s", paddr)
	}

	return word, nil
}

// fakeWalker is an identity-mapping PageWalker parameterized by page size,
// standing in for a real MMU.
type fakeWalker struct {
	pageSize PageSize
}

func (w fakeWalker) Walk(req TranslationRequest) (Addr, PageSize, error) {
	return req.VAddr, w.pageSize, nil
}

// fakeInst is the fake Decoder's handle: every opcode decodes to one of a
// tiny, hand-picked instruction set, enough to drive straight-line code, an
// opcode straddling a 4 KiB chunk, and a CSR access through the dispatch core.
type fakeInst struct {
	size    uint8
	csr     uint32
	withCSR bool
	name    string
}

func (i *fakeInst) OpcodeSize() uint8          { return i.size }
func (i *fakeInst) HasCSR() bool               { return i.withCSR }
func (i *fakeInst) CSRID() uint32              { return i.csr }
func (i *fakeInst) UpdateVecConfig(*State)     {}
func (i *fakeInst) String() string             { return i.name }

// fakeDecoder maps a fixed set of opcode values to fakeInst; decodeCalls
// counts invocations so cache-hit tests can assert decode happens once per
// unique address, not once per visit.
type fakeDecoder struct {
	decodeCalls int
}

// Every 4-byte fake opcode below carries 0b11 in its low two bits, matching
// the real decoder's convention (page.go's setupInst decides compressed vs.
// 4-byte from the reconstructed opcode's low bits, independent of what the
// Decoder itself returns), so OpcodeSize() on the decoded fakeInst always
// agrees with the dispatch core's own bookkeeping.
const (
	opNop      Opcode = 0x0003 // 4-byte no-op-ish instruction
	opIllegal  Opcode = 0xdead
	opCSR      Opcode = 0x00c3 // 4-byte instruction that touches a CSR
	opStraddle Opcode = 0x00010003
)

func (d *fakeDecoder) Decode(op Opcode, state *State) (Inst, error) {
	d.decodeCalls++

	switch op {
	case opNop:
		return &fakeInst{size: 4, name: "nop"}, nil
	case opCSR:
		return &fakeInst{size: 4, name: "csr", csr: SATP, withCSR: true}, nil
	case opStraddle:
		return &fakeInst{size: 4, name: "straddle"}, nil
	default:
		return nil, fmt.Errorf("fakeDecoder: illegal opcode %s", op)
	}
}

// fakeExecute builds a one-action execute list per instruction: do nothing,
// then retire. Real ISA semantics (internal/riscvcore/isa) do the same
// shape with actual register/memory effects; these tests only care about
// the dispatch core's bookkeeping.
type fakeExecute struct {
	buildCalls int
}

func (e *fakeExecute) Build(state *State) (*ActionGroup, error) {
	e.buildCalls++

	g := NewActionGroup("fake-execute", TagExecute)
	g.AddAction(NewAction("retire", func(s *State, cursor int) ActionResult {
		s.Retire()
		return Continue(cursor + 1)
	}, TagExecute))

	return g, nil
}

// fakeCSR implements CSRFile with SATP always present and a settable TVM
// bit, enough to exercise the pre-check in InstExecute.setupInst.
type fakeCSR struct {
	tvm bool
}

func (c *fakeCSR) Exists(csr uint32) bool { return csr == SATP }
func (c *fakeCSR) MSTATUSTVM() bool       { return c.tvm }

// newFixtureHart wires a Hart over fakeMemory/fakeDecoder/fakeExecute/fakeCSR
// with a single identity mapping of the given page size.
func newFixtureHart(base Addr, pageSize PageSize) (*Hart, *fakeMemory, *fakeDecoder, *fakeExecute) {
	mem := newFakeMemory()
	decoder := &fakeDecoder{}
	execute := &fakeExecute{}
	csr := &fakeCSR{}
	walker := fakeWalker{pageSize: pageSize}

	h := NewHart(base, mem, walker, decoder, execute, csr)

	return h, mem, decoder, execute
}
