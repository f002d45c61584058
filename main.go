package main

import (
	"os"

	"github.com/spigell/cv-verifier/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
