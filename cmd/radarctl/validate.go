package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// phase tracks pass/fail for one group of checks.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd() *cobra.Command {
	var minRefl float64

	cmd := &cobra.Command{
		Use:   "validate <collection.json>",
		Short: "Check a cached or decoded FeatureCollection for integrity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := loadCollection(args[0])
			if err != nil {
				return err
			}
			if !report(cmd.OutOrStdout(), validateCollection(fc, minRefl)) {
				return errors.New("validation failed")
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&minRefl, "min-reflectivity", domain.DefaultMinReflectivity, "threshold the collection was produced with")
	return cmd
}

func loadCollection(path string) (domain.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.FeatureCollection{}, err
	}
	var fc domain.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

func validateCollection(fc domain.FeatureCollection, minRefl float64) []*phase {
	structure := &phase{name: "Collection structure"}
	if err := fc.Validate(minRefl); err != nil {
		for _, e := range unjoin(err) {
			structure.errorf("%v", e)
		}
	}

	meta := &phase{name: "Metadata"}
	if _, err := time.Parse(time.RFC3339, fc.Metadata.Timestamp); err != nil {
		meta.errorf("timestamp %q is not RFC3339", fc.Metadata.Timestamp)
	}

	dupes := &phase{name: "Unique sample points"}
	seen := make(map[[2]float64]int, len(fc.Features))
	for i, f := range fc.Features {
		key := [2]float64{f.Longitude, f.Latitude}
		if j, ok := seen[key]; ok {
			dupes.errorf("features %d and %d share point (%v, %v)", j, i, f.Longitude, f.Latitude)
			continue
		}
		seen[key] = i
	}

	return []*phase{structure, meta, dupes}
}

// unjoin splits an errors.Join result back into its parts.
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func report(w io.Writer, phases []*phase) bool {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}
	return allPassed
}
