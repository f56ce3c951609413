// Package main is partyctl, the maintenance CLI for stored parties.
package main

import (
	"fmt"
	"os"

	"github.com/nhiquach/white-elephant-party/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
