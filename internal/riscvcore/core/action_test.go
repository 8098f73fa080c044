package core

import (
	"errors"
	"testing"
)

func TestActionGroupExecuteRunsActionsInOrder(t *testing.T) {
	t.Parallel()

	var trace []string

	g := NewActionGroup("group", TagExecute)
	g.AddAction(NewAction("first", func(s *State, cursor int) ActionResult {
		trace = append(trace, "first")
		return Continue(cursor + 1)
	}, TagExecute))
	g.AddAction(NewAction("second", func(s *State, cursor int) ActionResult {
		trace = append(trace, "second")
		return Continue(cursor + 1)
	}, TagExecute))

	next, err := g.Execute(&State{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if next != nil {
		t.Fatalf("Execute() next = %v, want nil (no next group set)", next)
	}

	if len(trace) != 2 || trace[0] != "first" || trace[1] != "second" {
		t.Fatalf("trace = %v, want [first second]", trace)
	}
}

func TestActionGroupExecuteJumpStopsGroup(t *testing.T) {
	t.Parallel()

	target := NewActionGroup("target")
	ran := false

	g := NewActionGroup("group")
	g.AddAction(NewAction("jump", func(s *State, cursor int) ActionResult {
		return JumpTo(target)
	}))
	g.AddAction(NewAction("never", func(s *State, cursor int) ActionResult {
		ran = true
		return Continue(cursor + 1)
	}))

	next, err := g.Execute(&State{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if next != target {
		t.Fatalf("Execute() next = %v, want target", next)
	}

	if ran {
		t.Fatalf("action after jump should not have run")
	}
}

func TestActionGroupExecutePropagatesFailure(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("boom")

	g := NewActionGroup("group")
	g.AddAction(NewAction("fail", func(s *State, cursor int) ActionResult {
		return Fail(wantErr)
	}))

	next, err := g.Execute(&State{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Execute() error = %v, want %v", err, wantErr)
	}

	if next != nil {
		t.Fatalf("Execute() next = %v, want nil on failure", next)
	}
}

func TestActionGroupInsertActionFront(t *testing.T) {
	t.Parallel()

	var trace []string

	g := NewActionGroup("group")
	g.AddAction(NewAction("second", func(s *State, cursor int) ActionResult {
		trace = append(trace, "second")
		return Continue(cursor + 1)
	}))
	g.InsertActionFront(NewAction("first", func(s *State, cursor int) ActionResult {
		trace = append(trace, "first")
		return Continue(cursor + 1)
	}))

	if _, err := g.Execute(&State{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(trace) != 2 || trace[0] != "first" || trace[1] != "second" {
		t.Fatalf("trace = %v, want [first second]", trace)
	}
}

func TestActionGroupHasTag(t *testing.T) {
	t.Parallel()

	g := NewActionGroup("group", TagFetch, TagExecute)

	if !g.HasTag(TagFetch) || !g.HasTag(TagExecute) {
		t.Fatalf("expected both tags present")
	}

	if g.HasTag(TagStopSim) {
		t.Fatalf("did not expect TagStopSim")
	}
}
