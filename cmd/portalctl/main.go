package main

import (
	"os"

	"assistance-portal/cmd/portalctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
