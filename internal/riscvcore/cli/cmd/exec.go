package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rvexec/rvexec/internal/riscvcore/cli"
	"github.com/rvexec/rvexec/internal/riscvcore/core"
	"github.com/rvexec/rvexec/internal/riscvcore/isa"
	"github.com/rvexec/rvexec/internal/riscvcore/log"
	"github.com/rvexec/rvexec/internal/riscvcore/mmu"
)

// Executor returns the "exec" command: load a flat memory image and run it
// to completion or timeout.
func Executor() cli.Command {
	ex := &executor{set: getopt.New()}

	ex.base = ex.set.Uint64Long("base", 'b', 0x1000, "physical load address")
	ex.memSize = ex.set.Uint64Long("memsize", 'm', 1<<20, "physical memory size, in bytes")
	ex.timeout = ex.set.Uint64Long("timeout", 't', 10, "run timeout, in seconds")
	ex.logLevel = ex.set.EnumLong("loglevel", 'v', []string{"debug", "info", "warn", "error"}, "info", "log level")

	return ex
}

type executor struct {
	set *getopt.Set

	base     *uint64
	memSize  *uint64
	timeout  *uint64
	logLevel *string
}

func (executor) Name() string { return "exec" }

func (executor) Description() string { return "run a raw instruction image" }

func (ex *executor) Options() *getopt.Set { return ex.set }

func (executor) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `exec [--base addr] [--memsize bytes] [--timeout seconds] [--loglevel level] image.bin

Loads a flat binary of RISC-V opcodes into physical memory and runs it,
one hart, until it halts, traps, or the timeout elapses.`)

	return err
}

// Run implements cli.Command.
func (ex *executor) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if len(args) == 0 {
		logger.Error("exec: missing image argument")
		return -1
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*ex.logLevel)); err != nil {
		logger.Error("exec: invalid loglevel", "err", err)
		return -1
	}

	log.LogLevel.Set(level)

	image, err := os.ReadFile(args[0])
	if err != nil {
		logger.Error("exec: loading image", "err", err)
		return -1
	}

	mem := isa.NewFlatMemory(int(*ex.memSize))
	mem.Write(core.Addr(*ex.base), image)

	machine := isa.NewMachine(mem).WithLogger(logger)
	walker := mmu.NewIdentity(core.Page4KiB)

	h := core.NewHart(core.Addr(*ex.base), mem, walker, isa.NewDecoder(), machine, machine).
		WithLogger(logger)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(*ex.timeout)*time.Second)
	defer cancel()

	logger.Info("exec: starting hart", "base", *ex.base, "bytes", len(image))

	err = h.Run(ctx)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error("exec: timeout")
		return 2
	case err != nil:
		logger.Error("exec: stopped", "err", err)
		return 1
	default:
		fmt.Fprintf(stdout, "retired %d instructions, final PC %s\n", h.State().Retired, h.State().PC)
		return 0
	}
}
