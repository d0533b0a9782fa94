// Command stereo is the command-line client for a running stereo-site API
// server: resolve compounds, run analyses, and manage saved sketches.
package main

import (
	"fmt"
	"os"

	"github.com/kFady/stereo-site-1/internal/interfaces/cli"
)

// Build metadata, injected via -ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = gitCommit
	cli.BuildDate = buildDate

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "stereo: %v\n", err)
		os.Exit(1)
	}
}
