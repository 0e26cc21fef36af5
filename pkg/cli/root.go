package cli

import (
	"flag"
	"fmt"
	"io"
	"sort"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet

	out io.Writer
}

// NewRootCommand creates the root command. Commands that accept secrets on
// standard input read them from in; all output goes to out.
func NewRootCommand(in io.Reader, out io.Writer) *Command {
	root := &Command{
		Name:        "estatehub-admin",
		Description: "estatehub administration tool",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("estatehub-admin", flag.ContinueOnError),
		out:         out,
	}

	// Add subcommands
	root.Subcommands["hash-password"] = newHashPasswordCommand(in, out)
	root.Subcommands["issue-token"] = newIssueTokenCommand(out)
	root.Subcommands["verify-token"] = newVerifyTokenCommand(out)
	root.Subcommands["generate-key"] = newGenerateKeyCommand(out)

	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Fprintf(c.out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(c.out, "Commands:\n")
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
