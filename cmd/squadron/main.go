// Command squadron coordinates a team of agent processes.
package main

import (
	"os"

	"github.com/Iron-Ham/squadron/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
