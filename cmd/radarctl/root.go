package main

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

// cli carries state shared by subcommands.
type cli struct {
	cfg    *config.Config
	logger *slog.Logger

	cacheDir string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "radarctl",
		Short:         "Fetch, decode and inspect MRMS radar reflectivity",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.cacheDir != "" {
				cfg.CacheDir = c.cacheDir
			}
			c.cfg = cfg
			c.logger = observability.NewLogger(cfg)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.cacheDir, "cache-dir", "", "cache directory (overrides CACHE_DIR)")

	root.AddCommand(
		newFetchCmd(c),
		newDecodeCmd(c),
		newValidateCmd(),
		newInfoCmd(c),
	)
	return root
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
