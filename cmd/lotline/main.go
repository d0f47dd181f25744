package main

import (
	"fmt"
	"os"

	"github.com/steelworks/lotline/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands silence cobra's own reporting and return typed exit
		// errors; this is the single place errors reach the user.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
