package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	sketchListPage     int
	sketchListPageSize int
)

// NewSketchCmd creates the sketch command group.
func NewSketchCmd() *cobra.Command {
	sketchCmd := &cobra.Command{
		Use:   "sketch",
		Short: "Manage saved sketches",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved sketches",
		RunE:  runSketchList,
	}
	listCmd.Flags().IntVar(&sketchListPage, "page", 1, "page number")
	listCmd.Flags().IntVar(&sketchListPageSize, "page-size", 20, "sketches per page")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one sketch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSketchGet(cmd, args[0])
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a sketch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSketchRename(cmd, args[0], args[1])
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a sketch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSketchDelete(cmd, args[0])
		},
	}

	sketchCmd.AddCommand(listCmd, getCmd, renameCmd, deleteCmd)
	return sketchCmd
}

func runSketchList(cmd *cobra.Command, _ []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := opContext(cmd, cliCtx)
	defer cancel()

	sketches, page, err := cliCtx.Client.Sketches().List(ctx, sketchListPage, sketchListPageSize)
	if err != nil {
		return err
	}

	if cliCtx.OutputFormat == "json" {
		return PrintResult(cmd, cliCtx, sketches)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tATOMS\tUPDATED")
	for _, s := range sketches {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			s.ID, s.Name, len(s.Molecule.Atoms), s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d sketches total\n", page.Total)
	return nil
}

func runSketchGet(cmd *cobra.Command, id string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := opContext(cmd, cliCtx)
	defer cancel()

	sketch, err := cliCtx.Client.Sketches().Get(ctx, id)
	if err != nil {
		return err
	}
	if cliCtx.OutputFormat == "json" {
		return PrintResult(cmd, cliCtx, sketch)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", sketch.ID)
	fmt.Fprintf(out, "Name:      %s\n", sketch.Name)
	fmt.Fprintf(out, "Atoms:     %d\n", len(sketch.Molecule.Atoms))
	fmt.Fprintf(out, "Bonds:     %d\n", len(sketch.Molecule.Bonds))
	fmt.Fprintf(out, "Hash:      %s\n", sketch.ContentHash)
	fmt.Fprintf(out, "Updated:   %s\n", sketch.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runSketchRename(cmd *cobra.Command, id, name string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := opContext(cmd, cliCtx)
	defer cancel()

	sketch, err := cliCtx.Client.Sketches().Rename(ctx, id, name)
	if err != nil {
		return err
	}
	if cliCtx.OutputFormat == "json" {
		return PrintResult(cmd, cliCtx, sketch)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %q\n", sketch.ID, sketch.Name)
	return nil
}

func runSketchDelete(cmd *cobra.Command, id string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := opContext(cmd, cliCtx)
	defer cancel()

	if err := cliCtx.Client.Sketches().Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	return nil
}
