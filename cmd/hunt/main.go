// Command hunt builds an index file from directories of text files and
// searches it from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func main() {
	if err := newRootCommand(os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(logOut io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "hunt",
		Short:        "Index text files into an FM-index and search them",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			logger.SetupWriter(logOut, cfg.Logging.Level, cfg.Logging.Format)
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newIndexCommand(opts), newSearchCommand(opts))
	return root
}
