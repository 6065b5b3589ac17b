package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"phylotree/internal/models"
	"phylotree/internal/scan"
)

var buildFresh bool

var buildCmd = &cobra.Command{
	Use:   "build <folder>",
	Short: "Insert every genome in a folder into the tree",
	Long: `Scan a folder recursively for genome files and insert them into the tree.

The build will:
1. Find all supported genomes (.fna, .fa, .fasta, .ffn, .fnn, optionally gzipped)
2. Read each genome and sample its k-mers in parallel
3. Insert the genomes one by one, in path order
4. Store the tree and a summary of the run in the database

Genomes already in the tree are skipped, so a build can be rerun after new
genomes were added to the folder.

Example:
  phylotree build ./genomes
  phylotree build ./genomes --fresh --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildFresh, "fresh", false, "Discard the saved tree and start from an empty one")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	folder := args[0]

	// Resolve absolute path
	absFolder, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Check folder exists
	info, err := os.Stat(absFolder)
	if err != nil {
		return fmt.Errorf("folder not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", absFolder)
	}

	s, err := openSession(buildFresh)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Building: %s\n", absFolder)
	fmt.Printf("K-mers: %d x %d\n", s.kmers[1], s.kmers[0])
	fmt.Printf("Workers: %d\n", cfg.Workers)
	fmt.Printf("Genomes in tree: %d\n\n", s.index.Len())

	run := &models.BuildRun{Folder: absFolder, StartedAt: time.Now()}

	// Read genomes with progress reporting
	reading := &progressLine{label: "Reading"}
	scanner := s.scanner(scan.WithProgress(reading.update))
	res, err := scanner.ScanFolder(cmd.Context(), absFolder)
	reading.clear()
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Printf("Read: %d genomes\n", len(res.Genomes))
	for _, sk := range res.Skipped {
		fmt.Printf("Skipped: %s (%v)\n", shortenPath(sk.Path, 60), sk.Err)
	}
	run.Failed = len(res.Skipped)

	if len(res.Genomes) == 0 {
		fmt.Println("No genomes found.")
		return nil
	}

	inserting := &progressLine{label: "Inserting"}
	err = s.insertAll(cmd.Context(), res.Genomes, run, inserting.update)
	inserting.clear()
	if err != nil {
		return fmt.Errorf("build interrupted: %w", err)
	}

	if err := s.save(cmd.Context(), run); err != nil {
		return err
	}

	printRunSummary("Build Complete", run)
	fmt.Println()
	fmt.Println("Run 'phylotree show' to print the tree")

	return nil
}
