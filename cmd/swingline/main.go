package main

import (
	"os"

	"github.com/rohanmb/swingline/cmd/swingline/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
