package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

var analyzeSketchID string

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [query]",
		Short: "Run stereochemistry analysis on a compound or saved sketch",
		Long:  "Resolves the query (or loads the sketch given with --sketch) into a fresh\nsession and runs the deep analysis: stereocenters, geometries, and\nphysico-chemical properties.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runAnalyze(cmd, query)
		},
	}
	cmd.Flags().StringVar(&analyzeSketchID, "sketch", "", "analyze a saved sketch by ID instead of a query")
	return cmd
}

func runAnalyze(cmd *cobra.Command, query string) error {
	if (query == "") == (analyzeSketchID == "") {
		return fmt.Errorf("provide either a query argument or --sketch, not both")
	}

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

	if query != "" {
		if _, err := sessions.Resolve(ctx, sess.ID, query); err != nil {
			return err
		}
	} else {
		if _, err := cliCtx.Client.Sketches().Load(ctx, analyzeSketchID, sess.ID); err != nil {
			return err
		}
	}

	outcome, err := sessions.Analyze(ctx, sess.ID)
	if err != nil {
		return err
	}

	if cliCtx.OutputFormat == "json" {
		return PrintResult(cmd, cliCtx, outcome)
	}
	printAnalysis(cmd, outcome.Result)
	return nil
}

func printAnalysis(cmd *cobra.Command, r *chem.AnalysisResult) {
	out := cmd.OutOrStdout()

	if r.SMILES != "" {
		fmt.Fprintf(out, "SMILES:    %s\n", r.SMILES)
	}
	fmt.Fprintf(out, "Source:    %s%s\n", r.Source, degradedSuffix(r.Degraded))
	if r.Annotation != "" {
		fmt.Fprintf(out, "Note:      %s\n", r.Annotation)
	}

	if len(r.Stereocenters) > 0 {
		fmt.Fprintln(out, "\nStereocenters:")
		for _, id := range sortedKeys(r.Stereocenters) {
			sc := r.Stereocenters[id]
			fmt.Fprintf(out, "  %-6s %s\n", id, sc.Configuration)
		}
	}
	if len(r.Geometries) > 0 {
		fmt.Fprintln(out, "\nGeometries:")
		for _, id := range sortedGeometryKeys(r.Geometries) {
			fmt.Fprintf(out, "  %-6s %s\n", id, r.Geometries[id].Shape)
		}
	}
	if len(r.Properties) > 0 {
		fmt.Fprintln(out, "\nProperties:")
		keys := make([]string, 0, len(r.Properties))
		for k := range r.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %-20s %s\n", k, r.Properties[k])
		}
	}
}

func sortedKeys(m map[string]chem.Stereocenter) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedGeometryKeys(m map[string]chem.Geometry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
