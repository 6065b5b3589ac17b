package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"phylotree/internal/ncbi"
)

var importOut string

var importCmd = &cobra.Command{
	Use:   "import <zip>...",
	Short: "Unpack NCBI dataset archives into a genomes folder",
	Long: `Unpack genome archives downloaded with NCBI Datasets.

Every .fna file of an archive is copied without its header lines into a
folder named after the organism in the archive's assembly report
(spaces and slashes become underscores). A second archive of the same
organism gets a numbered folder (Escherichia_coli_1).

Example:
  phylotree import ./genomes_raw/*.zip
  phylotree import GCF_000005845.2.zip --out ./genomes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importOut, "out", "genomes", "Folder to write organism directories into")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	outDir, err := filepath.Abs(importOut)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	imported, failed := 0, 0
	for _, archive := range args {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		imp, err := ncbi.ImportArchive(archive, outDir)
		if err != nil {
			logger.Error("import failed", "archive", archive, "error", err)
			fmt.Printf("Failed:   %s (%v)\n", shortenPath(archive, 50), err)
			failed++
			continue
		}
		imported += len(imp.Files)
		fmt.Printf("Imported: %-50s -> %s (%d files)\n", shortenPath(archive, 50), filepath.Base(imp.Dir), len(imp.Files))
	}

	fmt.Println()
	fmt.Printf("Genomes imported: %d\n", imported)
	if failed > 0 {
		fmt.Printf("Archives failed:  %d\n", failed)
	}
	if imported > 0 {
		fmt.Printf("\nRun 'phylotree build %s' to insert them\n", importOut)
	}
	if failed > 0 && imported == 0 {
		return fmt.Errorf("no archives imported")
	}
	return nil
}
