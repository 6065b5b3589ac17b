package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"phylotree/internal/fileutil"
	"phylotree/internal/report"
)

var (
	showJSON   bool
	showStats  bool
	showOutput string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved tree",
	Long: `Print the saved tree.

Branches are printed as "split:" and buckets as "floor:", indented four
spaces per level, with the genomes of a bucket listed one level deeper by
the name of the folder holding them.

Example:
  phylotree show                          # Print the tree
  phylotree show --json                   # Nested JSON with paths and distances
  phylotree show --stats                  # Tree shape only
  phylotree show --output phylo_tree.txt  # Write to a file`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	showCmd.Flags().BoolVarP(&showStats, "stats", "s", false, "Show tree statistics only")
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "", "Write the tree to a file instead of stdout")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.index.Len() == 0 {
		fmt.Println("The tree is empty.")
		fmt.Println("Run 'phylotree build <folder>' to insert genomes.")
		return nil
	}

	if showStats {
		stats, err := report.Collect(s.index)
		if err != nil {
			return err
		}
		fmt.Printf("Genomes:        %d\n", stats.Genomes)
		fmt.Printf("Splits:         %d\n", stats.Branches)
		fmt.Printf("Floors:         %d\n", stats.Buckets)
		fmt.Printf("Depth:          %d\n", stats.MaxDepth)
		fmt.Printf("Largest floor:  %d\n", stats.LargestBucket)
		fmt.Printf("Next node id:   %d\n", s.index.NextID())
		return nil
	}

	var buf bytes.Buffer
	if showJSON {
		err = report.WriteJSON(&buf, s.index)
	} else {
		err = report.WriteText(&buf, s.index)
	}
	if err != nil {
		return fmt.Errorf("failed to render tree: %w", err)
	}

	if showOutput == "" {
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := fileutil.WriteFileAtomic(showOutput, buf.Bytes(), 0644); err != nil {
		return err
	}
	fmt.Printf("Wrote %d genomes to %s\n", s.index.Len(), showOutput)
	return nil
}
