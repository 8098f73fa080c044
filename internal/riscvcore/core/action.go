package core

// action.go defines the dispatch primitives that stitch the fetch,
// translate, execution-page and execute stages together without a central
// scheduler. An ActionGroup is an ordered list of Actions with a single
// mutable next-group pointer; running a group walks its actions, in order,
// to completion or to a non-local jump, then hands back whichever group
// comes next.
//
// The source this core is modeled on raises a C++ exception to transfer
// control to a different group mid-action (the page-crossing bounce in
// InstExecute.setupInst). Go has no matching idiom, so instead every Action
// returns an explicit ActionResult: Continue to the next cursor position,
// JumpTo a different group, or Fail with an error. ActionGroup.Execute
// interprets the variant; nothing here uses panic/recover.

import "fmt"

// Tag is a symbolic, identity-comparable marker attached to an Action or
// ActionGroup so a driver can recognize well-known stages without string
// matching on names.
type Tag int

// Well-known tags, stable for the lifetime of a process.
const (
	TagFetch Tag = iota
	TagInstTranslate
	TagDecode
	TagExecute
	TagTranslationPageExecute
	TagStopSim
)

func (t Tag) String() string {
	switch t {
	case TagFetch:
		return "FETCH"
	case TagInstTranslate:
		return "INST_TRANSLATE"
	case TagDecode:
		return "DECODE"
	case TagExecute:
		return "EXECUTE"
	case TagTranslationPageExecute:
		return "TRANSLATION_PAGE_EXECUTE"
	case TagStopSim:
		return "STOP_SIM"
	default:
		return fmt.Sprintf("TAG(%d)", int(t))
	}
}

// ActionResult is the outcome of running a single Action. Exactly one of
// its three shapes applies: continue within the group at Cursor, jump
// non-locally to Jump, or fail with Err.
type ActionResult struct {
	cursor int
	jump   *ActionGroup
	err    error
}

// Continue advances the group's cursor to the given position (usually the
// position following the current action) and keeps running the same group.
func Continue(cursor int) ActionResult {
	return ActionResult{cursor: cursor}
}

// JumpTo transfers control to a different group immediately; the current
// group stops running without visiting any further actions. This is the
// non-exception analogue of the source's ActionException.
func JumpTo(g *ActionGroup) ActionResult {
	return ActionResult{jump: g}
}

// Fail aborts the current group's execution with an error. The error
// propagates out of ActionGroup.Execute to the caller, which is expected to
// be the top-level driver loop or a caller one level up that knows how to
// steer to a trap handler.
func Fail(err error) ActionResult {
	return ActionResult{err: err}
}

// ActionFunc is the function an Action wraps: given the machine state and
// the action's position within its group, it returns what should happen
// next.
type ActionFunc func(state *State, cursor int) ActionResult

// Action wraps a unit of work plus a set of symbolic tags used for
// diagnostics and driver-level recognition (e.g. TagStopSim).
type Action struct {
	name string
	tags []Tag
	fn   ActionFunc
}

// NewAction constructs an Action from a function, a name (for logging and
// Stringers), and zero or more tags.
func NewAction(name string, fn ActionFunc, tags ...Tag) Action {
	return Action{name: name, fn: fn, tags: tags}
}

func (a Action) String() string { return a.name }

// HasTag reports whether the action carries the given tag.
func (a Action) HasTag(t Tag) bool {
	for _, tag := range a.tags {
		if tag == t {
			return true
		}
	}

	return false
}

// ActionGroup is an ordered list of Actions plus a single mutable
// next-group pointer. Running the group walks its actions from the start;
// each action's result either continues within the group, jumps elsewhere,
// or fails. After the last action runs (without jumping or failing), the
// group returns its stored next group.
type ActionGroup struct {
	name    string
	actions []Action
	next    *ActionGroup
	tags    []Tag
}

// NewActionGroup creates a named, empty ActionGroup. Use AddAction during
// construction to populate it.
func NewActionGroup(name string, tags ...Tag) *ActionGroup {
	return &ActionGroup{name: name, tags: tags}
}

func (g *ActionGroup) String() string { return g.name }

// HasTag reports whether the group itself carries the given tag.
func (g *ActionGroup) HasTag(t Tag) bool {
	for _, tag := range g.tags {
		if tag == t {
			return true
		}
	}

	return false
}

// AddAction appends an action to the group. It is meant to be called only
// during construction; the source's contract is that groups are built up
// front and then run repeatedly.
func (g *ActionGroup) AddAction(a Action) {
	g.actions = append(g.actions, a)
}

// InsertActionFront prepends an action ahead of whatever the group already
// holds. InstExecute uses this exactly once, to splice "install the cached
// instruction" ahead of the instruction-specific execute actions.
func (g *ActionGroup) InsertActionFront(a Action) {
	g.actions = append([]Action{a}, g.actions...)
}

// NextActionGroup returns the group's current next-group pointer.
func (g *ActionGroup) NextActionGroup() *ActionGroup {
	return g.next
}

// SetNextActionGroup sets the group's next-group pointer. It is idempotent:
// calling it repeatedly with the same or different targets simply
// overwrites the previous value. If called while the group is executing,
// the new value takes effect only on the group's return, since Execute
// reads g.next once, after its action loop finishes.
func (g *ActionGroup) SetNextActionGroup(next *ActionGroup) {
	g.next = next
}

// Execute walks the group's actions in registration order starting from
// cursor zero. Each action's ActionResult determines what happens:
//
//   - Continue(n): the loop resumes at index n (ordinarily one position
//     forward, but an action may also replay itself or skip ahead).
//   - JumpTo(g): Execute returns g immediately; no further actions in this
//     group run.
//   - Fail(err): Execute returns the error; the caller is responsible for
//     steering to whatever handles it (trap machinery, test failure, etc).
//
// If the action list runs to completion without jumping or failing,
// Execute returns the group's stored next-group pointer (possibly nil).
func (g *ActionGroup) Execute(state *State) (*ActionGroup, error) {
	cursor := 0

	for cursor < len(g.actions) {
		result := g.actions[cursor].fn(state, cursor)

		if result.err != nil {
			return nil, result.err
		}

		if result.jump != nil {
			return result.jump, nil
		}

		cursor = result.cursor
	}

	return g.next, nil
}
