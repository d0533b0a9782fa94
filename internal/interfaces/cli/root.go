// Package cli implements the command-line client: resolve a compound, run an
// analysis, and manage saved sketches against a running API server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kFady/stereo-site-1/pkg/client"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global flags.
type RootOptions struct {
	ServerAddr   string
	OutputFormat string
	Timeout      time.Duration
}

// cliContextKey carries the initialized CLIContext through cobra.
type cliContextKey struct{}

// CLIContext is the per-invocation dependency bundle.
type CLIContext struct {
	Client       *client.Client
	OutputFormat string
	Timeout      time.Duration
}

// NewRootCommand creates the root command with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "stereo",
		Short:   "Command-line client for the molecular structure editor",
		Long:    "stereo talks to a running structure-editor API server: resolve compound\nnames or SMILES into structures, run stereochemistry analysis, and manage\nsaved sketches.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initCLIContext(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ServerAddr, "server", "http://localhost:8080", "API server address")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "operation timeout")

	cmd.AddCommand(
		NewResolveCmd(),
		NewAnalyzeCmd(),
		NewSketchCmd(),
	)
	return cmd
}

func initCLIContext(cmd *cobra.Command, opts *RootOptions) error {
	if opts.OutputFormat != "text" && opts.OutputFormat != "json" {
		return fmt.Errorf("unsupported output format %q (expected text or json)", opts.OutputFormat)
	}

	c, err := client.NewClient(opts.ServerAddr, client.WithTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	cliCtx := &CLIContext{
		Client:       c,
		OutputFormat: opts.OutputFormat,
		Timeout:      opts.Timeout,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts the CLIContext installed by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, fmt.Errorf("CLI context not initialized")
	}
	return cliCtx, nil
}

// opContext derives the per-operation timeout context.
func opContext(cmd *cobra.Command, cliCtx *CLIContext) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cliCtx.Timeout)
}

// PrintResult writes data in the selected output format.
func PrintResult(cmd *cobra.Command, cliCtx *CLIContext, data interface{}) error {
	if cliCtx.OutputFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), data)
	return err
}

// Execute runs the CLI, flattening API errors into terminal-friendly text.
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		return fmt.Errorf("%s", describeAPIError(err))
	}
	return nil
}
