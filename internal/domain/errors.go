// Package domain provides the gateway's types and canonical error taxonomy.
package domain

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a gateway error.
type ErrorKind string

const (
	// KindUnknownProvider indicates the named provider is not registered.
	KindUnknownProvider ErrorKind = "unknown_provider"

	// KindProviderNotReady indicates the provider exists but is not available.
	KindProviderNotReady ErrorKind = "provider_not_ready"

	// KindUpstreamUnavailable indicates initialization could not reach the upstream
	// or the credential is missing.
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"

	// KindUpstream indicates the upstream call failed or returned a non-success status.
	KindUpstream ErrorKind = "upstream_error"

	// KindInvalidRequest indicates a malformed request (e.g. empty prompt).
	KindInvalidRequest ErrorKind = "invalid_request"
)

// GatewayError is the canonical error raised by adapters and the registry.
type GatewayError struct {
	Kind     ErrorKind
	Provider ProviderName
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Cause.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// KindOf returns the ErrorKind carried by err, or "" if err is not a GatewayError.
func KindOf(err error) ErrorKind {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ""
}

// ErrUnknownProvider creates an unknown provider error.
func ErrUnknownProvider(name ProviderName) *GatewayError {
	return &GatewayError{
		Kind:     KindUnknownProvider,
		Provider: name,
		Message:  fmt.Sprintf("Provider %s not found", name),
	}
}

// ErrProviderNotReady creates a provider not ready error.
func ErrProviderNotReady(name ProviderName) *GatewayError {
	return &GatewayError{
		Kind:     KindProviderNotReady,
		Provider: name,
		Message:  fmt.Sprintf("Provider %s not available", name),
	}
}

// ErrUpstreamUnavailable creates an initialization failure error.
func ErrUpstreamUnavailable(name ProviderName, message string, cause error) *GatewayError {
	return &GatewayError{
		Kind:     KindUpstreamUnavailable,
		Provider: name,
		Message:  fmt.Sprintf("%s unavailable: %s", name, message),
		Cause:    cause,
	}
}

// ErrUpstream wraps an upstream call failure.
func ErrUpstream(name ProviderName, cause error) *GatewayError {
	return &GatewayError{
		Kind:     KindUpstream,
		Provider: name,
		Message:  fmt.Sprintf("%s upstream error", name),
		Cause:    cause,
	}
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *GatewayError {
	return &GatewayError{
		Kind:    KindInvalidRequest,
		Message: message,
	}
}

// ErrNoProviders is returned when no adapter is available to serve a request.
var ErrNoProviders = errors.New("No AI providers available")
