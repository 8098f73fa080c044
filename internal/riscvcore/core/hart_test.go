package core

import (
	"context"
	"errors"
	"testing"
)

// TestHartStepOneInstructionPerCall exercises the fix this file centers on:
// Step must advance exactly one instruction, resuming from wherever the
// dispatch graph actually left off (the ExecutionPage replay path, not back
// at Fetch), rather than running until a group tagged TagFetch shows up --
// which, in steady-state in-page execution, never happens.
func TestHartStepOneInstructionPerCall(t *testing.T) {
	t.Parallel()

	base := Addr(0x1000)
	h, mem, _, _ := newFixtureHart(base, Page4KiB)

	for i := 0; i < 5; i++ {
		mem.writeWord(base+Addr(4*i), uint32(opNop))
	}

	for i := 0; i < 5; i++ {
		if err := h.Step(); err != nil {
			t.Fatalf("Step() #%d error = %v", i, err)
		}

		if got, want := h.State().Retired, uint64(i+1); got != want {
			t.Fatalf("Retired after step #%d = %d, want %d", i, got, want)
		}

		if got, want := h.State().PC, base+Addr(4*(i+1)); got != want {
			t.Fatalf("PC after step #%d = %s, want %s", i, got, want)
		}
	}
}

// TestHartStepIllegalInstructionWithoutHandler exercises the default
// no-handler behavior: with no TrapHandler installed, an illegal
// instruction simply stops the hart and returns the error.
func TestHartStepIllegalInstructionWithoutHandler(t *testing.T) {
	t.Parallel()

	base := Addr(0x1000)
	h, mem, _, _ := newFixtureHart(base, Page4KiB)
	mem.writeWord(base, uint32(opIllegal))

	err := h.Step()
	if err == nil {
		t.Fatalf("Step() error = nil, want an illegal instruction error")
	}

	var illegal *IllegalInstructionError
	if !errors.As(err, &illegal) {
		t.Fatalf("Step() error = %v (%T), want *IllegalInstructionError", err, err)
	}
}

// TestHartStepIllegalInstructionHandledRecovers exercises a TrapHandler that
// absorbs the fault (e.g. vectors to a handler and returns nil): Step must
// then report success and the hart must be ready to continue.
func TestHartStepIllegalInstructionHandledRecovers(t *testing.T) {
	t.Parallel()

	base := Addr(0x1000)
	h, mem, _, _ := newFixtureHart(base, Page4KiB)
	mem.writeWord(base, uint32(opIllegal))

	var handled error

	h.WithTrapHandler(func(state *State, err error) error {
		handled = err
		state.PC = base + 0x100 // vector to a fixed handler address
		return nil
	})

	if err := h.Step(); err != nil {
		t.Fatalf("Step() error = %v, want nil (trap absorbed)", err)
	}

	if handled == nil {
		t.Fatalf("trap handler was never invoked")
	}

	if got, want := h.State().PC, base+0x100; got != want {
		t.Fatalf("PC after trap = %s, want %s", got, want)
	}
}

// TestHartStepStopSim exercises the STOP_SIM sentinel a driver (the CLI's
// monitor, typically) can install directly to halt the hart before its next
// Step -- distinct from a trap, and not produced by any instruction in this
// package's ISA subset.
func TestHartStepStopSim(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newFixtureHart(0x1000, Page4KiB)
	h.Halt()

	err := h.Step()
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("Step() error = %v, want ErrHalted", err)
	}
}

// TestHartRunStopsOnUnhandledError exercises Run stopping with an error when
// Step returns an unhandled trap.
func TestHartRunStopsOnUnhandledError(t *testing.T) {
	t.Parallel()

	base := Addr(0x1000)
	h, mem, _, _ := newFixtureHart(base, Page4KiB)
	mem.writeWord(base, uint32(opIllegal))

	err := h.Run(context.Background())
	if err == nil {
		t.Fatalf("Run() error = nil, want unhandled trap error")
	}
}

func TestHartRunStopsOnContextCancellation(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newFixtureHart(0x1000, Page4KiB)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}
