package main

import (
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-data-radar/internal/app"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

func newFetchCmd(c *cli) *cobra.Command {
	var (
		sampleSize int
		sampleOut  string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run the pipeline once and report what was served",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.NewPipeline(c.cfg, clockwork.NewRealClock(), observability.NewMetrics(), c.logger)
			if err != nil {
				return err
			}

			res, err := p.Latest(cmd.Context())
			if err != nil {
				return err
			}
			if !res.Found {
				return fmt.Errorf("no radar data available: %w", res.Cause)
			}

			out := cmd.OutOrStdout()
			md := res.Collection.Metadata
			fmt.Fprintf(out, "origin:    %s\n", res.Origin)
			fmt.Fprintf(out, "product:   %s\n", md.Product)
			fmt.Fprintf(out, "timestamp: %s\n", md.Timestamp)
			fmt.Fprintf(out, "features:  %d\n", md.Count)
			if res.Cause != nil {
				fmt.Fprintf(out, "warning:   upstream failed: %v\n", res.Cause)
			}

			if sampleSize <= 0 {
				return nil
			}
			return writeSample(res.Collection, sampleSize, sampleOut)
		},
	}

	cmd.Flags().IntVar(&sampleSize, "sample", 0, "write the first N features to --sample-out")
	cmd.Flags().StringVar(&sampleOut, "sample-out", "sample_radar.json", "sample output path")
	return cmd
}

// writeSample stores a truncated copy of fc for eyeballing.
func writeSample(fc domain.FeatureCollection, n int, path string) error {
	features := fc.Features[:min(n, len(fc.Features))]
	sample := domain.NewFeatureCollection(features, fc.Metadata.Timestamp, fc.Metadata.Product)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sample: %w", err)
	}
	defer f.Close()
	if err := writeIndentedJSON(f, sample); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return f.Close()
}
