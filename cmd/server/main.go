package main

import (
	"os"

	"github.com/invoice-intake/backend/internal/cli"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd := cli.NewRootCommand(cli.BuildInfo{Version: Version, BuildTime: BuildTime})
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
