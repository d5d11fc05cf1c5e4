package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-data-radar/internal/adapter/filecache"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

type infoOutput struct {
	Path          string `json:"path"`
	CacheDuration string `json:"cache_duration"`
	domain.CacheStatus
}

func newInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache age and freshness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := filecache.New(c.cfg.CacheDir, c.cfg.CacheDuration, clockwork.NewRealClock(), c.logger)
			if err != nil {
				return err
			}
			status, err := cache.Status()
			if err != nil {
				return err
			}
			return writeIndentedJSON(cmd.OutOrStdout(), infoOutput{
				Path:          cache.Path(),
				CacheDuration: cache.MaxAge().String(),
				CacheStatus:   status,
			})
		},
	}
}
