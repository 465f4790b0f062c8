package main

import (
	"os"

	"github.com/buildcell/cellctl/cmd"
	"github.com/buildcell/cellctl/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
