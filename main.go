package main

import (
	"os"

	"github.com/driveinsight/fleet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
