package core

import "github.com/rvexec/rvexec/internal/riscvcore/log"

// Fetch resets per-instruction state and records that a translation of PC
// is needed, then hands off to instruction translation. It exposes exactly
// one action and never fails on its own; there is nothing in fetch_ that
// can raise an error or a page-crossing jump.
type Fetch struct {
	group *ActionGroup
	log   *log.Logger
}

// NewFetch builds the Fetch stage. Its next group is wired by the caller
// (ordinarily Hart's assembly step) once the translate stage exists.
func NewFetch() *Fetch {
	f := &Fetch{log: log.DefaultLogger()}
	f.group = NewActionGroup("fetch", TagFetch)
	f.group.AddAction(NewAction("fetch", f.fetch, TagFetch))

	return f
}

// WithLogger overrides the stage's logger.
func (f *Fetch) WithLogger(l *log.Logger) { f.log = l }

// ActionGroup returns the Fetch stage's entry action group.
func (f *Fetch) ActionGroup() *ActionGroup { return f.group }

// SetNextActionGroup wires Fetch's permanent handoff to instruction
// translation.
func (f *Fetch) SetNextActionGroup(next *ActionGroup) {
	f.group.SetNextActionGroup(next)
}

func (f *Fetch) fetch(state *State, cursor int) ActionResult {
	f.log.Debug("fetch", "PC", state.PC)

	state.Sim.Reset()
	state.FetchTranslation.Reset()
	state.FetchTranslation.PushRequest(NewTranslationRequest(state.PC, 4))

	return Continue(cursor + 1)
}
