// Package cli contains the command-line interface shared by rvexec's
// sub-commands.
package cli

import (
	"context"
	"io"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rvexec/rvexec/internal/riscvcore/log"
)

// Command represents a sub-command in the CLI. Each sub-command owns its
// own option set, description, and action.
type Command interface {
	// Name returns the word that selects this command on the command line.
	Name() string

	// Options returns the command's option set.
	Options() *getopt.Set

	// Description returns a brief description of the command's function.
	Description() string

	// Usage prints detailed command documentation.
	Usage(out io.Writer) error

	// Run executes the command with the arguments left over after option
	// parsing. Command output should be written to out. It returns an exit
	// code.
	Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int
}

// Commander runs a named sub-command, parsing its options and dispatching
// to Run.
type Commander struct {
	ctx context.Context
	log *log.Logger

	help     Command
	commands []Command
}

// New creates a Commander that can start sub-commands.
func New(ctx context.Context) *Commander {
	return &Commander{
		ctx: ctx,
		log: log.DefaultLogger(),
	}
}

// Execute runs a command, if configured.
func (cli *Commander) Execute(args []string) int {
	if len(args) == 0 {
		return cli.help.Run(cli.ctx, nil, os.Stdout, cli.log)
	}

	found := cli.help

	for _, cmd := range cli.commands {
		if args[0] == cmd.Name() {
			found = cmd
		}
	}

	opts := found.Options()
	opts.Parse(append([]string{found.Name()}, args[1:]...))

	return found.Run(cli.ctx, opts.Args(), os.Stdout, cli.log)
}

// WithCommands adds a list of commands as sub-commands.
func (cli *Commander) WithCommands(cmds []Command) *Commander {
	cli.commands = append([]Command(nil), cmds...)
	return cli
}

// WithHelp configures the command run when no sub-command matches.
func (cli *Commander) WithHelp(cmd Command) *Commander {
	cli.help = cmd
	return cli
}

// WithLogger configures the logger passed to every command. Logs go to
// os.Stderr so os.Stdout stays free for program output.
func (cli *Commander) WithLogger(l *log.Logger) *Commander {
	cli.log = l
	log.SetDefault(l)

	return cli
}
