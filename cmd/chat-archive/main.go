package main

import (
	"os"

	"github.com/go-go-golems/chat-archive/cmd/chat-archive/cmds"
)

func main() {
	if err := cmds.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
