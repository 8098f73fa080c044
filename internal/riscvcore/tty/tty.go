// Package tty puts the controlling terminal into raw mode for the
// interactive monitor, the same way the reference simulator's own console
// emulation manages terminal state for its teletype device -- except the
// monitor has no keyboard/display device to adapt, only a line-editing
// session that wants raw key delivery while a hart is single-stepping.
package tty

import (
	"errors"
	"os"

	"golang.org/x/term"
)

// ErrNoTTY is returned when standard input is not a terminal.
var ErrNoTTY = errors.New("tty: not a TTY")

// RawMode holds the terminal state saved before entering raw mode, so it
// can be restored exactly once.
type RawMode struct {
	fd    int
	saved *term.State
}

// Enter puts stdin into raw mode and returns a RawMode that can restore it.
// If stdin is not a terminal, Enter returns ErrNoTTY and ctrl sequences
// (Ctrl-C, Ctrl-D) continue to behave as the shell would normally handle
// them -- the monitor still works, just without raw delivery.
func Enter() (*RawMode, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	if err := setReadTimeout(fd, 1, 0); err != nil {
		_ = term.Restore(fd, saved)
		return nil, err
	}

	return &RawMode{fd: fd, saved: saved}, nil
}

// Restore returns the terminal to the state captured by Enter. Safe to call
// on a nil *RawMode (Enter failed with ErrNoTTY) as a no-op.
func (r *RawMode) Restore() error {
	if r == nil {
		return nil
	}

	return term.Restore(r.fd, r.saved)
}
