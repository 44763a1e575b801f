package main

import (
	"os"

	"github.com/dkeye/srsrtc/cmd/srsrtc/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
