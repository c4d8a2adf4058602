package probe

import "fmt"

// NetworkError covers timeouts and transport failures.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatusError is a non-2xx response. It is a failure, not a stock signal.
type HTTPStatusError struct {
	URL  string
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// BodyTooLargeError is a page over the size limit. Its tail was never read,
// so the page cannot be classified.
type BodyTooLargeError struct {
	URL   string
	Limit int
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("page larger than %d bytes", e.Limit)
}
