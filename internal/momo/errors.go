package momo

import "fmt"

// AuthError is a non-2xx answer from the token endpoint.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("momo token endpoint returned %d: %s", e.StatusCode, e.Body)
}

// APIError is a definite rejection from a collection endpoint. Transport
// failures and timeouts are not APIErrors.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("momo %s returned %d: %s", e.Operation, e.StatusCode, e.Body)
}
