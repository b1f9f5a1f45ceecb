package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response body is kept in an error.
const maxErrorBody = 4 << 10

// AuthenticationError is returned by the identity probe when the API rejects the token.
type AuthenticationError struct {
	StatusCode int
	Detail     string
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (status %d): check your API token", e.StatusCode)
}

// ConnectionError reports a probe that could not complete: a transport failure,
// an unexpected status, or an undecodable identity document.
type ConnectionError struct {
	StatusCode int
	Detail     string
	Err        error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode == 0:
		return fmt.Sprintf("network error: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("connection failed with status %d: %s: %v", e.StatusCode, e.Detail, e.Err)
	default:
		return fmt.Sprintf("connection failed with status %d: %s", e.StatusCode, e.Detail)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// PermissionError is returned when the API answers 403 for a specific resource.
type PermissionError struct {
	Resource string
	ID       int64
	Detail   string
}

// Error implements the error interface.
func (e *PermissionError) Error() string {
	return fmt.Sprintf("access denied to %s %d: you may not be enrolled in it or lack permission to view it", e.Resource, e.ID)
}

// NotFoundError is returned when the API answers 404 for a specific resource.
type NotFoundError struct {
	Resource string
	ID       int64
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// APIError represents any other non-2xx answer.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API %s error (status %d): %s: %v", e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API %s error (status %d): %s", e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassifyStatus maps an HTTP status code to an ErrorClass. 2xx/3xx yield "".
func ClassifyStatus(code int) ErrorClass {
	switch {
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// ReadErrorBody drains at most maxErrorBody bytes of the response body as text.
func ReadErrorBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return strings.TrimSpace(string(body))
}

// NewAPIError builds a generic error for a non-2xx response.
func NewAPIError(statusCode int, body string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorClass: ClassifyStatus(statusCode),
		Message:    body,
	}
}

// ResourceError maps a non-2xx answer for a single identified resource:
// 403 becomes *PermissionError, 404 *NotFoundError, anything else *APIError.
func ResourceError(statusCode int, body, resource string, id int64) error {
	switch statusCode {
	case http.StatusForbidden:
		return &PermissionError{Resource: resource, ID: id, Detail: body}
	case http.StatusNotFound:
		return &NotFoundError{Resource: resource, ID: id}
	default:
		return NewAPIError(statusCode, body)
	}
}

// IsPermissionDenied reports whether err wraps a *PermissionError.
func IsPermissionDenied(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsNotFound reports whether err wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
