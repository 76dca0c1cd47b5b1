package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// APIError is a non-2xx response. Message is the server's error text;
// Fields names the offending inputs when the server could attribute them.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
	Detail  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry api: %d %s", e.Status, e.Message)
}

func newAPIError(status int, raw []byte) *APIError {
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
		Detail string            `json:"detail"`
	}
	e := &APIError{Status: status}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		e.Message = body.Error
		e.Fields = body.Fields
		e.Detail = body.Detail
	} else {
		e.Message = http.StatusText(status)
	}
	return e
}

func statusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// IsValidation reports a rejected request body or parameter.
func IsValidation(err error) bool { return statusOf(err) == http.StatusBadRequest }

// IsConflict reports a duplicate MRN.
func IsConflict(err error) bool { return statusOf(err) == http.StatusConflict }

func IsNotFound(err error) bool { return statusOf(err) == http.StatusNotFound }

func IsRateLimited(err error) bool { return statusOf(err) == http.StatusTooManyRequests }
