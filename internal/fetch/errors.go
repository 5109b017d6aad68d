package fetch

import (
	"errors"
	"fmt"
)

// Stage names the size gate that rejected a download.
type Stage string

const (
	StagePreflight Stage = "preflight"
	StageTransfer  Stage = "transfer"
)

// RejectedError means the content is too small to be full size. It is an
// expected filtering outcome, not a failure.
type RejectedError struct {
	URL   string
	Stage Stage
	Bytes int64
	Min   int64
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("likely thumbnail (%s: %d bytes, need %d): %s", e.Stage, e.Bytes, e.Min, e.URL)
}

// NetworkError wraps transport failures, bad statuses and local write
// failures for one download.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsRejected reports whether err is a size-gate rejection.
func IsRejected(err error) bool {
	var r *RejectedError
	return errors.As(err, &r)
}
