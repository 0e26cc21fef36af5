package main

import (
	"fmt"
	"os"

	"github.com/platinummonkey/estatehub/pkg/cli"
)

func main() {
	rootCmd := cli.NewRootCommand(os.Stdin, os.Stdout)

	if err := rootCmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
