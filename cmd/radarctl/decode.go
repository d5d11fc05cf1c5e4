package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-data-radar/internal/adapter/grib2"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

func newDecodeCmd(c *cli) *cobra.Command {
	var (
		out      string
		product  string
		stride   int
		minRefl  float64
		describe bool
	)

	cmd := &cobra.Command{
		Use:   "decode <file.grib2[.gz]>",
		Short: "Decode a local GRIB2 file into a FeatureCollection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if strings.HasSuffix(path, ".gz") {
				plain, err := gunzipToTemp(path)
				if err != nil {
					return err
				}
				defer os.Remove(plain)
				path = plain
			}

			if describe {
				lines, err := grib2.Describe(path)
				if err != nil {
					return err
				}
				for _, l := range lines {
					fmt.Fprintln(cmd.OutOrStdout(), l)
				}
				return nil
			}

			decoder := grib2.NewDecoder(nil, clockwork.NewRealClock(), observability.NewMetrics(), c.logger)
			grid, err := decoder.Decode(path)
			if err != nil {
				return err
			}

			projector := domain.Projector{Stride: stride, MinReflectivity: minRefl}
			fc := projector.Project(grid, product)
			c.logger.Info("decoded", "variable", grid.Variable, "features", fc.Metadata.Count)

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}
			return writeIndentedJSON(w, fc)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default stdout)")
	cmd.Flags().StringVar(&product, "product", domain.DefaultSources()[0].Product, "product label for metadata")
	cmd.Flags().IntVar(&stride, "stride", domain.DefaultStride, "row/column sampling step")
	cmd.Flags().Float64Var(&minRefl, "min-reflectivity", domain.DefaultMinReflectivity, "minimum dBZ to keep")
	cmd.Flags().BoolVar(&describe, "describe", false, "list the fields in the file instead of decoding")
	return cmd
}

// gunzipToTemp decompresses a downloaded .grib2.gz next to the OS temp files.
func gunzipToTemp(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("gunzip %s: %w", path, err)
	}
	defer zr.Close()

	out, err := os.CreateTemp("", "mrms-*.grib2")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("gunzip %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}
