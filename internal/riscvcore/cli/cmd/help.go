package cmd

import (
	"context"
	"fmt"
	"io"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rvexec/rvexec/internal/riscvcore/cli"
	"github.com/rvexec/rvexec/internal/riscvcore/log"
)

type help struct {
	cmd []cli.Command
	set *getopt.Set
}

var _ cli.Command = (*help)(nil)

// Help returns the default command run when no sub-command is given or
// recognized.
func Help(cmd []cli.Command) cli.Command {
	return &help{cmd: cmd, set: getopt.New()}
}

func (help) Name() string { return "help" }

func (help) Description() string { return "display help for commands" }

func (h *help) Options() *getopt.Set { return h.set }

func (h *help) Run(_ context.Context, args []string, out io.Writer, _ *log.Logger) int {
	if len(args) == 1 {
		for _, c := range h.cmd {
			if args[0] == c.Name() {
				h.printCommandHelp(out, c)
				return 0
			}
		}
	}

	if err := h.Usage(out); err != nil {
		return 1
	}

	return 0
}

func (h *help) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `
rvexec is a RISC-V instruction dispatch core and command-line driver.

Usage:

        rvexec <command> [option]... [arg]...

Commands:`)
	if err != nil {
		return err
	}

	for _, c := range h.cmd {
		fmt.Fprintf(out, "  %-20s %s\n", c.Name(), c.Description())
	}

	fmt.Fprintf(out, "  %-20s %s\n", h.Name(), h.Description())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Use `rvexec help <command>` to get help for a command.")

	return err
}

func (h *help) printCommandHelp(out io.Writer, c cli.Command) {
	fmt.Fprintf(out, "Usage:\n\n        rvexec ")

	if err := c.Usage(out); err != nil {
		return
	}

	fmt.Fprintln(out, "\nOptions:")
	c.Options().PrintUsage(out)
}
