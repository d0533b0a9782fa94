package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kFady/stereo-site-1/pkg/client"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <query>",
		Short: "Resolve a compound name or SMILES into a drawable structure",
		Long:  "Resolves a chemical name or SMILES string through the AI provider (with\na public-database fallback) and prints the structure metadata.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0])
		},
	}
}

func runResolve(cmd *cobra.Command, query string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := opContext(cmd, cliCtx)
	defer cancel()

	sessions := cliCtx.Client.Sessions()
	sess, err := sessions.Create(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Delete(ctx, sess.ID) }()

	outcome, err := sessions.Resolve(ctx, sess.ID, query)
	if err != nil {
		return err
	}

	if cliCtx.OutputFormat == "json" {
		return PrintResult(cmd, cliCtx, outcome)
	}
	printSearchResult(cmd, outcome.Result)
	return nil
}

func printSearchResult(cmd *cobra.Command, r *chem.SearchResult) {
	out := cmd.OutOrStdout()
	name := r.CommonName
	if name == "" {
		name = r.IUPACName
	}
	if name != "" {
		fmt.Fprintf(out, "Name:      %s\n", name)
	}
	if r.IUPACName != "" && r.IUPACName != name {
		fmt.Fprintf(out, "IUPAC:     %s\n", r.IUPACName)
	}
	if r.SMILES != "" {
		fmt.Fprintf(out, "SMILES:    %s\n", r.SMILES)
	}
	if r.Formula != "" {
		fmt.Fprintf(out, "Formula:   %s\n", r.Formula)
	}
	if r.CID != 0 {
		fmt.Fprintf(out, "CID:       %d\n", r.CID)
	}
	fmt.Fprintf(out, "Atoms:     %d\n", len(r.Molecule.Atoms))
	fmt.Fprintf(out, "Bonds:     %d\n", len(r.Molecule.Bonds))
	fmt.Fprintf(out, "Source:    %s%s\n", r.Source, degradedSuffix(r.Degraded))
}

func degradedSuffix(degraded bool) string {
	if degraded {
		return " (degraded)"
	}
	return ""
}

// describeAPIError renders SDK errors compactly for terminal output.
func describeAPIError(err error) string {
	var sb strings.Builder
	if apiErr, ok := err.(*client.APIError); ok {
		sb.WriteString(apiErr.Message)
		if apiErr.Code != "" {
			fmt.Fprintf(&sb, " [%s]", apiErr.Code)
		}
		return sb.String()
	}
	return err.Error()
}
