package core

// hart.go assembles Fetch, Translate and the Execute boundary into one
// running hart and provides the core's single exposed entry point: drive
// fetch_action_group in a loop until nothing comes back, or until an error
// that the trap handler does not absorb.

import (
	"context"
	"errors"
	"fmt"

	"github.com/rvexec/rvexec/internal/riscvcore/log"
)

// TrapHandler reacts to an error raised inside the instruction cycle
// (illegal instruction, memory fault). It observes the error and the
// current state and decides how to continue: adjust state (e.g. vector PC
// to a handler) and return nil to keep running, or return an error to stop
// the hart. A nil TrapHandler means every such error stops the hart.
type TrapHandler func(state *State, err error) error

// Hart is one independently-scheduled RISC-V hardware thread: its own
// State, its own Fetch/Translate stages, and its own chain of
// ExecutionPages. Harts never share mutable state, so nothing here is
// synchronized.
type Hart struct {
	state     *State
	fetch     *Fetch
	translate *Translate
	current   *ActionGroup
	trap      TrapHandler
	log       *log.Logger
}

// NewHart builds a hart wired as Fetch -> Translate -> (per-page
// ExecutionPages), using walker for page walks, decoder to turn opcodes
// into Inst values, execute to materialize each instruction's semantics,
// and csr for the narrow CSR pre-check surface InstExecute needs.
func NewHart(pc Addr, mem Memory, walker PageWalker, decoder Decoder, execute ExecuteStage, csr CSRFile) *Hart {
	state := NewState(pc, mem, decoder, execute, csr)

	fetch := NewFetch()
	translate := NewTranslate(walker, fetch.ActionGroup(), execute)
	fetch.SetNextActionGroup(translate.ActionGroup())

	return &Hart{
		state:     state,
		fetch:     fetch,
		translate: translate,
		current:   fetch.ActionGroup(),
		log:       log.DefaultLogger(),
	}
}

// WithLogger overrides the logger used by the hart and every stage it owns.
func (h *Hart) WithLogger(l *log.Logger) *Hart {
	h.log = l
	h.state.WithLogger(l)
	h.fetch.WithLogger(l)
	h.translate.WithLogger(l)

	return h
}

// WithTrapHandler installs the handler invoked when the instruction cycle
// raises ErrIllegalInstruction or ErrMemoryFault.
func (h *Hart) WithTrapHandler(trap TrapHandler) *Hart {
	h.trap = trap
	return h
}

// State returns the hart's machine state.
func (h *Hart) State() *State { return h.state }

// Halt installs a TagStopSim group as the hart's resume point, so the next
// Step returns ErrHalted instead of advancing. No ISA semantics in this
// package's decoder ever produce this tag themselves; it exists for a
// driver (the monitor's "halt" command, typically) to stop the hart
// between instructions.
func (h *Hart) Halt() {
	h.current = NewActionGroup("stop", TagStopSim)
}

// FetchActionGroup returns the hart's entry action group, the one Step
// resumes at after an error or after PC leaves the current page. Most Step
// calls resume somewhere else entirely -- wherever the dispatch graph left
// off -- so this is exposed for callers that want to force a restart, not
// as the normal per-instruction entry point.
func (h *Hart) FetchActionGroup() *ActionGroup { return h.fetch.ActionGroup() }

// Step advances the hart by exactly one instruction. It resumes from
// wherever the previous Step left off -- normally mid-page, in the
// InstExecute replay path, not back at fetch -- since the dispatch graph
// only returns to a group tagged TagFetch when PC actually leaves the
// current page. What marks one instruction's completion is state.Retired
// ticking up by one: ISA semantics call state.Retire as the last action in
// every instruction's action list, so Step simply drives the chain until
// that counter moves, or until nil, STOP_SIM, or an unhandled error ends
// the run first.
func (h *Hart) Step() error {
	before := h.state.Retired
	g := h.current

	if g == nil {
		g = h.fetch.ActionGroup()
	}

	if g.HasTag(TagStopSim) {
		return ErrHalted
	}

	for {
		next, err := g.Execute(h.state)
		if err != nil {
			h.current = h.fetch.ActionGroup()

			if handled := h.handleTrap(err); handled != nil {
				return handled
			}

			return nil
		}

		if next == nil {
			h.current = h.fetch.ActionGroup()
			return nil
		}

		if next.HasTag(TagStopSim) {
			h.current = next
			return ErrHalted
		}

		g = next

		if h.state.Retired != before {
			h.current = g
			return nil
		}
	}
}

// ErrHalted is returned by Run/Step when a STOP_SIM-tagged group is
// reached.
var ErrHalted = errors.New("halted")

func (h *Hart) handleTrap(err error) error {
	if h.trap == nil {
		return err
	}

	var (
		illegal *IllegalInstructionError
		fault   *MemoryFaultError
	)

	if errors.As(err, &illegal) || errors.As(err, &fault) {
		return h.trap(h.state, err)
	}

	return err
}

// Run drives the hart, one instruction at a time, until ctx is done, Step
// returns ErrHalted, or Step returns an unhandled error.
func (h *Hart) Run(ctx context.Context) error {
	h.log.Info("hart: starting", "PC", h.state.PC)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := h.Step(); err != nil {
			if errors.Is(err, ErrHalted) {
				h.log.Info("hart: halted")
				return nil
			}

			h.log.Error("hart: stopped", "err", err)

			return fmt.Errorf("hart: %w", err)
		}
	}
}
