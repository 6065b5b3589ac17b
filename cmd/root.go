package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"phylotree/internal/config"
	"phylotree/internal/logging"
)

var (
	dbPath     string
	configPath string
	workers    int
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "phylotree",
	Short: "Cluster genomes into a similarity tree",
	Long: `phylotree is a CLI tool for clustering genome sequences into a tree.

Genomes are inserted one at a time. Each insertion finds an approximate
nearest neighbour with a k-mer filter and exact edit distance, then reshapes
the tree locally: pairing the genome with its match, giving it a bucket next
to the match, or adding it to the match's bucket. The tree is stored in a
SQLite database so later runs keep growing it.

Example usage:
  phylotree import ./genomes_raw/*.zip     # Unpack NCBI dataset archives
  phylotree build ./genomes                # Insert every genome in a folder
  phylotree add ./new/genome.fna           # Insert a single genome
  phylotree show --output phylo_tree.txt   # Export the tree`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDatabase(), "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 8, "Number of parallel workers for reading genomes")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// setup loads the config file and lets explicitly set flags override it.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") || configPath == "" {
		cfg.Database = dbPath
	}
	if flags.Changed("workers") || configPath == "" {
		cfg.Workers = workers
	}
	if flags.Changed("log-level") || configPath == "" {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") || configPath == "" {
		cfg.LogFormat = logFormat
	}
	cfg = cfg.OrDefault()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return err
}
