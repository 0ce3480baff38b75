package mailjet

import "fmt"

// ConfigurationError reports a message or transport configuration problem
// that makes the send attempt invalid. It is never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "mailjet: " + e.Reason
}

// TransportError reports a failed exchange with the provider: a non-200
// response or a network failure. The formatted provider error string, when
// available, is carried in Message.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("mailjet: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return "mailjet: " + e.Message
}

func (e *TransportError) Unwrap() error { return e.Err }
