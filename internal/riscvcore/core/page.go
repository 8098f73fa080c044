package core

// page.go implements the decoded-instruction cache that amortizes fetch and
// decode work across repeated executions of the same page: ExecutionPage
// and its per-address InstExecute slots.
//
// An ExecutionPage covers one translated virtual range, from 4 KiB up to
// 256 TiB, built from a single TranslationResult. Internally it is indexed
// two levels deep:
//
//	decode_block: 4 KiB-chunk index -> 2048-entry slot vector -> InstExecute
//
// The chunk index (vaddr offset within the page, shifted right by 12) can
// range up to 0x3f_ffff_ffff for a 256 TiB page, so it is held in a map
// rather than a dense vector; each individual chunk's 2048 slots (one per
// 2-byte alignment within 4 KiB) are a plain slice, built lazily the first
// time that chunk is touched.
//
// Every 4 KiB chunk's final slot (offset 0xffe) is flagged as a possible
// page crosser: a 32-bit opcode whose low 16 bits land there has its high
// 16 bits on the next 4 KiB chunk, which may be a different translation
// entirely. The source this core is modeled on only flags the last slot of
// the *outer* page's default block, which is only correct for 4 KiB pages;
// this implementation flags the last slot of every 4 KiB chunk, which is
// correct for all page sizes (see spec §9, "Last-slot boundary
// arithmetic").
import "github.com/rvexec/rvexec/internal/riscvcore/log"

// instExecuteSlotCount is the number of 2-byte-aligned instruction slots in
// one 4 KiB chunk (4096 / 2).
const instExecuteSlotCount = 4096 / 2

// ExecutionPage holds decoded-instruction descriptors for one translated
// page and dispatches to per-instruction actions.
type ExecutionPage struct {
	translationResult TranslationResult
	group             *ActionGroup
	fetchBack         *ActionGroup
	execute           ExecuteStage
	decodeBlock       map[Addr][]InstExecute
	log               *log.Logger
}

// NewExecutionPage builds an ExecutionPage for the given translation
// result. fetchBack is the group to resume at when PC leaves this page;
// execute is the ISA-semantics stage used to materialize each instruction's
// action list on first visit.
func NewExecutionPage(result TranslationResult, fetchBack *ActionGroup, execute ExecuteStage) *ExecutionPage {
	p := &ExecutionPage{
		translationResult: result,
		fetchBack:         fetchBack,
		execute:           execute,
		decodeBlock:       make(map[Addr][]InstExecute),
		log:               log.DefaultLogger(),
	}

	p.group = NewActionGroup("execution-page", TagTranslationPageExecute)
	p.group.AddAction(NewAction("translated-page-execute", p.translatedPageExecute, TagTranslationPageExecute))

	return p
}

// WithLogger overrides the page's logger.
func (p *ExecutionPage) WithLogger(l *log.Logger) { p.log = l }

// ActionGroup returns the page's entry action group.
func (p *ExecutionPage) ActionGroup() *ActionGroup { return p.group }

// TranslationResult returns the translation this page was built from.
func (p *ExecutionPage) TranslationResult() TranslationResult { return p.translationResult }

// Invalidate drops the cached InstExecute slots for the 4 KiB chunk
// containing addr, forcing the next visit to re-fetch and re-decode. It is
// not wired to any memory-write path in this core -- there is none, since
// writes happen inside ISA semantics, external to the dispatch core -- but
// is exposed for a future self-modifying-code story (see spec §9).
func (p *ExecutionPage) Invalidate(addr Addr) {
	addrIdx := p.translationResult.Offset(addr) >> 12
	delete(p.decodeBlock, addrIdx)
}

// translatedPageExecute is the page's single entry action. It checks PC is
// still within this page, indexes into the two-level decode block (lazily
// allocating a chunk on first miss), and rebinds the page's own next group
// to the addressed slot's action group -- the cached replay path on a
// cache hit, or the setup path on a cache miss.
func (p *ExecutionPage) translatedPageExecute(state *State, cursor int) ActionResult {
	v := state.PC

	if !p.translationResult.Contains(v) {
		p.log.Debug("page miss: PC left page", "PC", v)
		p.group.SetNextActionGroup(p.fetchBack)

		return Continue(cursor + 1)
	}

	addrIdx := p.translationResult.Offset(v) >> 12
	slotIdx := (v & 0xfff) >> 1

	block, ok := p.decodeBlock[addrIdx]
	if !ok {
		block = newInstExecuteBlock(p)
		p.decodeBlock[addrIdx] = block
	}

	slot := &block[slotIdx]
	slot.instAddr = p.translationResult.Translate(v)

	p.group.SetNextActionGroup(slot.actionGroup())

	return Continue(cursor + 1)
}

// newInstExecuteBlock builds one 4 KiB chunk's worth of slots, all owned by
// page, with the chunk's final slot flagged as a potential page crosser.
func newInstExecuteBlock(page *ExecutionPage) []InstExecute {
	block := make([]InstExecute, instExecuteSlotCount)

	for i := range block {
		block[i] = InstExecute{page: page}
	}

	block[len(block)-1].isLastHalfSlot = true

	return block
}

// InstExecute is the per-address descriptor within a 4 KiB chunk. On first
// visit it runs setupInst, which fetches and decodes the opcode at
// instAddr, builds the instruction's execute action list, and caches it as
// playHead. On every later visit (and immediately following the first
// visit) it replays playHead directly.
type InstExecute struct {
	page *ExecutionPage

	instAddr       Addr
	isLastHalfSlot bool

	cachedInst Inst
	setupGroup *ActionGroup
	playHead   *ActionGroup
}

// actionGroup returns the group the owning ExecutionPage should dispatch
// to: playHead if this instruction has already been set up, otherwise a
// lazily constructed setup group.
func (ie *InstExecute) actionGroup() *ActionGroup {
	if ie.playHead != nil {
		return ie.playHead
	}

	if ie.setupGroup == nil {
		ie.setupGroup = NewActionGroup("inst-setup", TagDecode)
		ie.setupGroup.AddAction(NewAction("setup-inst", ie.setupInst, TagDecode))
	}

	return ie.setupGroup
}

// setInst installs the cached instruction into state and advances NextPC
// past it. It is prepended to every instruction's play list, so it runs
// both immediately after setup and on every subsequent cache hit.
func (ie *InstExecute) setInst(state *State, cursor int) ActionResult {
	state.Sim.CurrentInst = ie.cachedInst
	state.NextPC = state.PC + Addr(ie.cachedInst.OpcodeSize())

	return Continue(cursor + 1)
}

// setupInst implements the first-visit path described in spec §4.5: read
// the opcode (handling the page-crossing half-read specially), detect
// compression, decode, run the CSR pre-checks, build and cache the
// instruction's action list, and wire it to return to this page when done.
func (ie *InstExecute) setupInst(state *State, cursor int) ActionResult {
	sim := &state.Sim

	var opcode Opcode

	switch {
	case ie.isLastHalfSlot:
		// This slot sits at offset 0xffe of its 4 KiB chunk: only the low 16
		// bits of a possible 32-bit opcode are on this page. Read them,
		// remember we're mid-opcode, and bounce back through translation so
		// the next page's matching slot finishes the read.
		lo, err := state.readMemory16(ie.instAddr)
		if err != nil {
			return Fail(err)
		}

		sim.CurrentOpcode = Opcode(lo)
		sim.PartialOpcode = true
		state.PC = ie.instAddr + 2

		return JumpTo(ie.page.group)

	case sim.PartialOpcode:
		// The previous page already supplied the low 16 bits; this page
		// supplies the high 16.
		hi, err := state.readMemory16(ie.instAddr)
		if err != nil {
			return Fail(err)
		}

		opcode = sim.CurrentOpcode | (Opcode(hi) << 16)
		sim.PartialOpcode = false

	default:
		w, err := state.readMemory32(ie.instAddr)
		if err != nil {
			return Fail(err)
		}

		opcode = Opcode(w)
	}

	opcodeSize := uint8(4)
	if opcode&0x3 != 0x3 {
		opcode &= 0xffff
		opcodeSize = 2
	}

	sim.CurrentOpcode = opcode
	sim.CurrentUID++

	inst, err := state.Decoder.Decode(opcode, state)
	if err != nil {
		return Fail(&IllegalInstructionError{Addr: ie.instAddr, Opcode: opcode, Reason: err.Error()})
	}

	sim.CurrentInst = inst
	state.NextPC = state.PC + Addr(opcodeSize)
	inst.UpdateVecConfig(state)

	if inst.HasCSR() {
		csr := inst.CSRID()

		if !state.CSR.Exists(csr) {
			return Fail(&IllegalInstructionError{
				Addr: ie.instAddr, Opcode: opcode, Reason: "unknown CSR",
			})
		}

		if csr == SATP && state.Privilege == PrivilegeSupervisor && state.CSR.MSTATUSTVM() {
			return Fail(&IllegalInstructionError{
				Addr: ie.instAddr, Opcode: opcode, Reason: "satp access trapped by mstatus.tvm",
			})
		}
	}

	execList, err := state.Execute.Build(state)
	if err != nil {
		return Fail(err)
	}

	execList.InsertActionFront(NewAction("set-inst", ie.setInst, TagExecute))

	terminal := execList.NextActionGroup()
	if terminal == nil {
		// The Execute stage contract requires a settable terminal group; a
		// single-group chain is its own terminal.
		terminal = execList
	}

	terminal.SetNextActionGroup(ie.page.group)

	ie.cachedInst = inst
	ie.playHead = execList
	ie.setupGroup.SetNextActionGroup(execList)

	return Continue(cursor + 1)
}
