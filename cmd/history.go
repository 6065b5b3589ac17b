package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"phylotree/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded build runs",
	Long: `List the build and add runs recorded in the database, newest first.

Example:
  phylotree history         # Last 10 runs
  phylotree history -n 0    # All runs`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Limit number of runs to display (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStorage(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	runs, err := store.GetRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to get runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		fmt.Println("Run 'phylotree build <folder>' to build a tree.")
		return nil
	}

	fmt.Printf("%-8s  %-16s  %8s  %6s  %6s  %s\n", "Run", "Started", "Inserted", "Failed", "Total", "Folder")
	fmt.Println(strings.Repeat("-", 80))
	for _, run := range runs {
		fmt.Printf("%-8s  %-16s  %8d  %6d  %6d  %s\n",
			run.ID[:min(8, len(run.ID))],
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Inserted, run.Failed, run.Total,
			shortenPath(run.Folder, 35))
	}
	fmt.Println()
	return nil
}
