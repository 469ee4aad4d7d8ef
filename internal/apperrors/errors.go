package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is implemented by every error the assistant surfaces to callers.
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// ConfigurationError means the connection configuration is missing or invalid.
// It is fatal and never retried.
type ConfigurationError struct {
	Path    string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", msg, e.Err)
	}
	return "configuration error: " + msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) HTTPStatus() int { return http.StatusInternalServerError }

func (e *ConfigurationError) Code() string { return "CONFIGURATION_ERROR" }

// NewConfigurationError creates a ConfigurationError for the given config file.
func NewConfigurationError(path, message string, err error) *ConfigurationError {
	return &ConfigurationError{Path: path, Message: message, Err: err}
}

// AuthError means a bearer token could not be acquired. The next call
// attempts a fresh acquisition.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error: %s: %v", e.Message, e.Err)
	}
	return "auth error: " + e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) HTTPStatus() int { return http.StatusBadGateway }

func (e *AuthError) Code() string { return "AUTH_ERROR" }

// NewAuthError creates an AuthError.
func NewAuthError(message string, err error) *AuthError {
	return &AuthError{Message: message, Err: err}
}

// UpstreamError is a non-success response from the metadata service or the
// text-generation service.
type UpstreamError struct {
	Service    string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, truncate(e.Body, 300))
	}
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) HTTPStatus() int { return http.StatusBadGateway }

func (e *UpstreamError) Code() string { return "UPSTREAM_ERROR" }

// NewUpstreamError creates an UpstreamError for a non-success HTTP status.
func NewUpstreamError(service, url string, status int, body string) *UpstreamError {
	return &UpstreamError{Service: service, URL: url, StatusCode: status, Body: body}
}

// WrapUpstream wraps a transport-level failure talking to service.
func WrapUpstream(service string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Err: err}
}

// HTTPStatus returns the status code for err, falling back to 500.
func HTTPStatus(err error) int {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Code returns the machine-readable code for err, or INTERNAL_ERROR.
func Code(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return "INTERNAL_ERROR"
}

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// IsAuth reports whether err is, or wraps, an AuthError.
func IsAuth(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

// IsUpstream reports whether err is, or wraps, an UpstreamError.
func IsUpstream(err error) bool {
	var e *UpstreamError
	return errors.As(err, &e)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
