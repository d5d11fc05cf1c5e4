package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDataAvailable is returned when no candidate source lists any grid file
	// within the search window.
	ErrNoDataAvailable = errors.New("no radar data available from any source")

	// ErrNoVariables is wrapped in a DecodeError when a file holds no usable field.
	ErrNoVariables = errors.New("no data variables")
)

// DownloadError reports a failed retrieval. StatusCode is zero for transport
// failures that never produced a response.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// DecodeError reports a grid file that could not be parsed.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsPipelineError reports whether err belongs to the acquisition taxonomy
// (no data, download, decode) rather than being an unexpected failure.
func IsPipelineError(err error) bool {
	if errors.Is(err, ErrNoDataAvailable) {
		return true
	}
	var de *DownloadError
	if errors.As(err, &de) {
		return true
	}
	var dec *DecodeError
	return errors.As(err, &dec)
}
