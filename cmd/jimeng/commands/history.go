package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/jimeng/pkg/cli"
	"github.com/haivivi/jimeng/pkg/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		output string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List generated images, newest first",
		Long: `List the images saved to the output store, newest first.

Times come from the millisecond stamp in the filename. With --index the
prompt, size and seed recorded at generation time are shown too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := getContext()
			if err != nil {
				return err
			}
			store, location, err := openStore(cctx, output, cmd.Flags().Changed("output"))
			if err != nil {
				return err
			}
			idx, err := openIndex(cctx)
			if err != nil {
				return err
			}
			if idx != nil {
				defer idx.Close()
			}

			entries, err := history.List(cmd.Context(), store, idx, limit)
			if err != nil {
				return err
			}
			if outputJSON {
				return cli.Output(cmd.OutOrStdout(), entries, cli.FormatJSON)
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No images in %s\n", location)
				return nil
			}
			return printEntries(cmd.OutOrStdout(), entries)
		},
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "output directory (default: context output_dir or ./output)")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many images, 0 for all")
	cmd.AddCommand(newHistoryPruneCmd(&output))
	return cmd
}

func newHistoryPruneCmd(output *string) *cobra.Command {
	var (
		olderThan time.Duration
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete images older than a retention period",
		Long: `Delete images created before now minus --older-than (default 7 days).

The creation time comes from the history index when --index is set, else
from the filename stamp, else from the file's modification time. With
--index, records of deleted files and of files removed by hand are dropped
from the index too.

Examples:
  jimeng history prune --dry-run
  jimeng history prune --older-than 72h -o ./out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}
			cctx, err := getContext()
			if err != nil {
				return err
			}
			store, location, err := openStore(cctx, *output, cmd.Flags().Changed("output"))
			if err != nil {
				return err
			}
			idx, err := openIndex(cctx)
			if err != nil {
				return err
			}
			if idx != nil {
				defer idx.Close()
			}

			result, err := history.Prune(cmd.Context(), store, idx, time.Now().Add(-olderThan), dryRun)
			if result != nil {
				if outputJSON {
					if oerr := cli.Output(cmd.OutOrStdout(), result, cli.FormatJSON); oerr != nil && err == nil {
						err = oerr
					}
				} else {
					printPruned(newPrinter(cmd), result, location, dryRun)
				}
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", history.DefaultRetention, "delete images older than this")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be deleted without deleting")
	return cmd
}

func printPruned(p *cli.Printer, result *history.PruneResult, location string, dryRun bool) {
	verb := "Deleted"
	if dryRun {
		verb = "Would delete"
	}
	for _, name := range result.Removed {
		p.Success("%s %s", verb, name)
	}
	if len(result.Forgotten) > 0 {
		p.Verbosef("%d index records dropped", len(result.Forgotten))
	}
	if len(result.Removed) == 0 {
		p.Info("Nothing to prune in %s", location)
	}
}

func printEntries(out io.Writer, entries []history.Entry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNAME\tSIZE\tDIMENSION\tPROMPT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Time, e.Name, cli.FormatBytes(e.Size), dash(e.Dimension), dash(truncate(e.Prompt, 40)))
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
