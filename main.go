package main

import (
	"github.com/advisorconnect/advisorconnect/cmd"

	// Blank imports register the subcommands with the root command.
	_ "github.com/advisorconnect/advisorconnect/cmd/cli"
	_ "github.com/advisorconnect/advisorconnect/cmd/server"
)

func main() {
	cmd.Execute()
}
