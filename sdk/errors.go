package mailbridge

import "fmt"

// APIError is returned when the bridge API responds with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailbridge: HTTP %d: %s", e.StatusCode, e.Message)
}
