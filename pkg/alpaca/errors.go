package alpaca

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when credentials are missing or rejected.
	ErrUnauthorized = errors.New("alpaca: unauthorized")
	// ErrTransient covers failures worth retrying later: network errors, rate limits, 5xx.
	ErrTransient = errors.New("alpaca: transient failure")
)

// APIError is the error body Alpaca returns with non-2xx responses.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alpaca error %d: %s", e.Code, e.Message)
}
