package generator

import "fmt"

// ValidationError reports a missing or blank request field. It is raised
// before any model call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UpstreamError carries a non-success response from the completion endpoint.
// Body is the raw response body, unmodified.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}
