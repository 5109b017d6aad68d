package httpx

import (
	"errors"
	"fmt"
)

// ErrIdleTimeout means a response body stopped delivering data.
var ErrIdleTimeout = errors.New("response body idle")

// HTTPError indicates a non-success HTTP response.
type HTTPError struct {
	StatusCode int
	URL        string
	// Body is the start of the response body
	Body []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status %d from %s", e.StatusCode, e.URL)
}
