package main

import (
	"os"

	"github.com/spigell/worksim-assessor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
