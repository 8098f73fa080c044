package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/rvexec/rvexec/internal/riscvcore/cli"
	"github.com/rvexec/rvexec/internal/riscvcore/core"
	"github.com/rvexec/rvexec/internal/riscvcore/isa"
	"github.com/rvexec/rvexec/internal/riscvcore/log"
	"github.com/rvexec/rvexec/internal/riscvcore/mmu"
	"github.com/rvexec/rvexec/internal/riscvcore/tty"
)

// Monitor returns the "monitor" command: an interactive, line-editing
// session that single-steps a hart and inspects its state between steps.
func Monitor() cli.Command {
	mon := &monitor{set: getopt.New()}

	mon.base = mon.set.Uint64Long("base", 'b', 0x1000, "physical load address")
	mon.memSize = mon.set.Uint64Long("memsize", 'm', 1<<20, "physical memory size, in bytes")

	return mon
}

type monitor struct {
	set *getopt.Set

	base    *uint64
	memSize *uint64
}

func (monitor) Name() string { return "monitor" }

func (monitor) Description() string { return "interactively single-step a hart" }

func (m *monitor) Options() *getopt.Set { return m.set }

func (monitor) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `monitor [--base addr] [--memsize bytes] [image.bin]

Starts an interactive session that steps a hart one instruction at a time.
Commands: step [n], run, regs, pc, halt, quit.`)

	return err
}

// Run implements cli.Command. Commands are read through liner, which
// manages its own line-editing mode; "run" drops the terminal into raw mode
// separately (via the tty package) only for the span it free-runs the
// hart, so a single keypress -- not a whole line -- is enough to stop it.
func (m *monitor) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	mem := isa.NewFlatMemory(int(*m.memSize))

	if len(args) > 0 {
		image, err := os.ReadFile(args[0])
		if err != nil {
			logger.Error("monitor: loading image", "err", err)
			return -1
		}

		mem.Write(core.Addr(*m.base), image)
	}

	machine := isa.NewMachine(mem).WithLogger(logger)
	walker := mmu.NewIdentity(core.Page4KiB)
	h := core.NewHart(core.Addr(*m.base), mem, walker, isa.NewDecoder(), machine, machine).
		WithLogger(logger)

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		return completeMonitorCmd(prefix)
	})

	for {
		select {
		case <-ctx.Done():
			return 0
		default:
		}

		input, err := line.Prompt("rvexec> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return 0
			}

			logger.Error("monitor: reading line", "err", err)

			return 1
		}

		line.AppendHistory(input)

		quit := m.dispatch(h, strings.Fields(input), stdout)
		if quit {
			return 0
		}
	}
}

// dispatch runs one monitor command against h, reporting results to out. It
// returns true when the session should end.
func (m *monitor) dispatch(h *core.Hart, fields []string, out io.Writer) bool {
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "step", "s":
		count := 1

		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil {
				count = n
			}
		}

		for i := 0; i < count; i++ {
			if err := h.Step(); err != nil {
				fmt.Fprintf(out, "stopped after %d step(s): %v\n", i, err)
				return false
			}
		}

		fmt.Fprintf(out, "PC=%s retired=%d\n", h.State().PC, h.State().Retired)
	case "run":
		m.runFree(h, out)
	case "regs", "r":
		if machine, ok := anyMachine(h); ok {
			for i := 0; i < 32; i += 4 {
				fmt.Fprintf(out, "x%-2d=%#018x x%-2d=%#018x x%-2d=%#018x x%-2d=%#018x\n",
					i, machine.Regs[i], i+1, machine.Regs[i+1], i+2, machine.Regs[i+2], i+3, machine.Regs[i+3])
			}
		}
	case "pc":
		fmt.Fprintf(out, "PC=%s retired=%d\n", h.State().PC, h.State().Retired)
	case "halt":
		h.Halt()
		fmt.Fprintln(out, "halted")
	case "quit", "q":
		return true
	default:
		fmt.Fprintf(out, "unknown command %q\n", fields[0])
	}

	return false
}

// runFree steps h continuously until it stops on its own (halt, trap, or
// an unhandled error) or the user presses a key. It puts the terminal into
// raw mode for the span of the run so a single byte, not a whole line,
// interrupts it -- liner's own prompt is not involved here at all.
func (m *monitor) runFree(h *core.Hart, out io.Writer) {
	raw, err := tty.Enter()
	if err != nil && !errors.Is(err, tty.ErrNoTTY) {
		fmt.Fprintf(out, "run: %v\n", err)
		return
	}

	defer raw.Restore()

	stop := make(chan struct{})

	if raw != nil {
		go func() {
			buf := make([]byte, 1)
			if _, err := os.Stdin.Read(buf); err == nil {
				close(stop)
			}
		}()
	}

	retired := h.State().Retired

	for {
		select {
		case <-stop:
			fmt.Fprintf(out, "interrupted at PC=%s retired=%d\n", h.State().PC, h.State().Retired)
			return
		default:
		}

		if err := h.Step(); err != nil {
			fmt.Fprintf(out, "stopped after %d step(s): %v\n", h.State().Retired-retired, err)
			return
		}
	}
}

// anyMachine recovers the isa.Machine backing h, if any -- the monitor's
// register dump is ISA-specific and has no business living in core.Hart's
// narrower interface.
func anyMachine(h *core.Hart) (*isa.Machine, bool) {
	m, ok := h.State().Execute.(*isa.Machine)
	return m, ok
}

func completeMonitorCmd(prefix string) []string {
	all := []string{"step", "run", "regs", "pc", "halt", "quit"}
	matches := make([]string, 0, len(all))

	for _, c := range all {
		if strings.HasPrefix(c, prefix) {
			matches = append(matches, c)
		}
	}

	return matches
}
