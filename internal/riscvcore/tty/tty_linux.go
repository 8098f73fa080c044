//go:build linux
// +build linux

package tty

import (
	"golang.org/x/sys/unix"
)

const (
	getTermiosIoctl = unix.TCGETS
	setTermiosIoctl = unix.TCSETS
)

// setReadTimeout configures VMIN/VTIME on fd so a single-byte read returns
// as soon as one byte is available, rather than waiting for a line.
func setReadTimeout(fd int, vmin, vtime byte) error {
	termIO, err := unix.IoctlGetTermios(fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	return unix.IoctlSetTermios(fd, setTermiosIoctl, termIO)
}
