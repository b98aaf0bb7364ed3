package airtable

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from Airtable.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("airtable: %d %s", e.Status, e.Type)
	}
	return fmt.Sprintf("airtable: %d %s: %s", e.Status, e.Type, e.Message)
}

// IsUnauthorized reports whether err is an Airtable 401 or 403.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// parseAPIError understands both {"error":"TYPE"} and
// {"error":{"type":"...","message":"..."}} bodies.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Type: http.StatusText(status)}
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Error) == 0 {
		return apiErr
	}
	var typ string
	if err := json.Unmarshal(env.Error, &typ); err == nil {
		apiErr.Type = typ
		return apiErr
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Error, &obj); err == nil {
		if obj.Type != "" {
			apiErr.Type = obj.Type
		}
		apiErr.Message = obj.Message
	}
	return apiErr
}
