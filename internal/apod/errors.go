// internal/apod/errors.go
//
// Failure classification for image fetches.
// Two kinds are surfaced to players, each with its own notice:
//   - network: no response reached us.
//   - upstream: NASA answered, but not with usable data.

package apod

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced to players.
const (
	KindNetwork  = "network"
	KindUpstream = "upstream"
)

// NetworkError means no response reached us (offline, DNS, timeout).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "apod: network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError means the API answered, but not with usable data
// (bad key, quota exhausted, service down, garbage body).
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("apod: upstream status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("apod: upstream status %d", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Kind classifies err as KindNetwork or KindUpstream. Unknown errors count as
// network failures, since no usable response was obtained.
func Kind(err error) string {
	var up *UpstreamError
	if errors.As(err, &up) {
		return KindUpstream
	}
	return KindNetwork
}

// UserMessage is the dismissible notice shown for a failure kind.
func UserMessage(kind string) string {
	if kind == KindUpstream {
		return "An error occurred with the NASA API (their service may not be available right now!). Please try again later."
	}
	return "An error occurred while fetching images, it might be a network issue (e.g., no internet). Please try again later."
}
