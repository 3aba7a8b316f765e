package main

import (
	"os"

	"github.com/upb/tron-node-provider/cmd/tronctl/app"
)

func main() {
	if err := app.NewTronctlCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
