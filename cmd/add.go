package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"phylotree/internal/models"
	"phylotree/internal/sequence"
)

var addCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Insert individual genome files into the tree",
	Long: `Insert one or more genome files into the saved tree.

Files are inserted in the order given. A file that cannot be read or
inserted is reported and leaves the tree unchanged.

Example:
  phylotree add ./genomes/Escherichia_coli/genomic.fna
  phylotree add a.fna b.fna.gz`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	run := &models.BuildRun{StartedAt: time.Now()}
	scanner := s.scanner()

	var genomes []*models.Genome
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		if !sequence.IsSupportedGenome(path) {
			fmt.Printf("Skipped: %s (unsupported file type)\n", arg)
			run.Failed++
			continue
		}
		g, err := scanner.PrepareFile(cmd.Context(), path)
		if err != nil {
			fmt.Printf("Skipped: %s (%v)\n", arg, err)
			run.Failed++
			continue
		}
		genomes = append(genomes, g)
	}
	if len(genomes) > 0 {
		run.Folder = filepath.Dir(genomes[0].Source)
	}

	if err := s.insertAll(cmd.Context(), genomes, run, nil); err != nil {
		return fmt.Errorf("add interrupted: %w", err)
	}

	if err := s.save(cmd.Context(), run); err != nil {
		return err
	}

	printRunSummary("Add Complete", run)
	return nil
}
