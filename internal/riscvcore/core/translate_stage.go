package core

// translate_stage.go implements the Translate stage described as
// "interface only" in spec §4.3: it consumes the top TranslationRequest,
// delegates the actual page walk to a pluggable PageWalker (the MMU is an
// external collaborator, out of scope for this core), pushes the resulting
// TranslationResult, and constructs or reuses an ExecutionPage for the
// translated range. The core assumes Translate produces at most one
// ExecutionPage per distinct VA page, so completed pages are cached keyed
// by their page-aligned base address and size.

import "github.com/rvexec/rvexec/internal/riscvcore/log"

// PageWalker performs the page-table walk a real MMU would. It is supplied
// by the surrounding simulator; the dispatch core only calls it and reacts
// to its result.
type PageWalker interface {
	Walk(req TranslationRequest) (paddr Addr, pageSize PageSize, err error)
}

// pageKey identifies a cached ExecutionPage by its page-aligned virtual
// base and the page size, since two different page sizes can both contain
// the same base address.
type pageKey struct {
	base Addr
	size PageSize
}

// Translate is the instruction-translation stage. It owns the cache of
// ExecutionPages built so far and wires each new page's fetch-back edge to
// Fetch and its execute stage to the shared ExecuteStage.
type Translate struct {
	group   *ActionGroup
	walker  PageWalker
	fetch   *ActionGroup
	execute ExecuteStage
	pages   map[pageKey]*ExecutionPage
	log     *log.Logger
}

// NewTranslate builds the Translate stage. fetch is the action group to
// bounce back to when PC leaves the most recently built page; execute is
// handed to every ExecutionPage this stage builds.
func NewTranslate(walker PageWalker, fetch *ActionGroup, execute ExecuteStage) *Translate {
	t := &Translate{
		walker:  walker,
		fetch:   fetch,
		execute: execute,
		pages:   make(map[pageKey]*ExecutionPage),
		log:     log.DefaultLogger(),
	}

	t.group = NewActionGroup("inst-translate", TagInstTranslate)
	t.group.AddAction(NewAction("inst-translate", t.translate, TagInstTranslate))

	return t
}

// WithLogger overrides the stage's logger.
func (t *Translate) WithLogger(l *log.Logger) { t.log = l }

// ActionGroup returns the stage's entry action group.
func (t *Translate) ActionGroup() *ActionGroup { return t.group }

func (t *Translate) translate(state *State, cursor int) ActionResult {
	req := state.FetchTranslation.Request()

	paddr, pageSize, err := t.walker.Walk(req)
	if err != nil {
		return Fail(err)
	}

	result := NewTranslationResult(req.VAddr, paddr, req.AccessSize, pageSize)

	state.FetchTranslation.PopRequest()
	state.FetchTranslation.PushResult(result)

	key := pageKey{base: result.VAddr() & ^Addr(pageSize.SizeInBytes()-1), size: pageSize}

	page, ok := t.pages[key]
	if !ok {
		t.log.Debug("building execution page", "base", key.base, "size", pageSize)
		page = NewExecutionPage(result, t.fetch, t.execute)
		t.pages[key] = page
	}

	t.group.SetNextActionGroup(page.ActionGroup())

	return Continue(cursor + 1)
}
