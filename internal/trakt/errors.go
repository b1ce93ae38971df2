package trakt

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the Trakt API. It is surfaced to the
// caller and never cached, so transient failures cannot poison the response
// cache.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trakt: GET %s: HTTP %d (%s)", e.Path, e.Status, e.Body)
}

// IsRateLimit reports whether err is a Trakt 429 response.
func IsRateLimit(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 429
}
