package crud

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError is a non-2xx response from the game server.
type APIError struct {
	StatusCode int
	// Detail is the server's human-readable "detail" field, empty when the body had none
	// or when detail was not a string (validation errors are a list).
	Detail string
	Body   string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Body)
}

// DetailOr returns the server-supplied detail carried by err, or fallback if there is none.
func DetailOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

const maxErrorBody = 64 << 10

func newAPIError(res *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: res.StatusCode, Body: string(body)}

	var payload struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if detail, ok := payload.Detail.(string); ok {
			apiErr.Detail = detail
		}
	}
	return apiErr
}
