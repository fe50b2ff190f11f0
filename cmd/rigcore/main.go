// Package main is the entry point of the rigcore command.
package main

import (
	"os"

	"github.com/radio-control/rigcore/cmd/rigcore/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
