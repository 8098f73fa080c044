// cmd/rvexec is the command-line interface to rvexec, a RISC-V instruction
// dispatch core.
package main

import (
	"context"
	"os"

	"github.com/rvexec/rvexec/internal/riscvcore/cli"
	"github.com/rvexec/rvexec/internal/riscvcore/cli/cmd"
	"github.com/rvexec/rvexec/internal/riscvcore/log"
)

var commands = []cli.Command{
	cmd.Executor(),
	cmd.Monitor(),
}

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(log.NewFormattedLogger(os.Stderr)).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
