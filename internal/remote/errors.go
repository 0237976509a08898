package remote

import (
	"errors"
	"fmt"

	gh "github.com/google/go-github/v80/github"
)

var (
	// ErrListing indicates a remote folder could not be listed
	ErrListing = errors.New("listing failed")

	// ErrDownload indicates a remote file could not be downloaded or stored
	ErrDownload = errors.New("download failed")
)

// StatusError is returned when the remote answers with a non-success status.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s (URL: %s)", e.Status, e.URL)
}

// wrapError converts go-github errors to our error types, tagged with the failed operation.
func wrapError(kind error, err error, target string) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		statusErr := &StatusError{
			StatusCode: ghErr.Response.StatusCode,
			Status:     ghErr.Response.Status,
		}
		if ghErr.Response.Request != nil {
			statusErr.URL = ghErr.Response.Request.URL.String()
		}
		return fmt.Errorf("%w: %s: %w", kind, target, statusErr)
	}
	return fmt.Errorf("%w: %s: %w", kind, target, err)
}
