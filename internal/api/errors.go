package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Error types for cloud API operations

// AuthReason is the reason code carried by an AuthError.
type AuthReason int

const (
	// AuthInvalidCredentials indicates the backend rejected the username/password
	AuthInvalidCredentials AuthReason = iota
	// AuthUnsupportedRole indicates the account role is not supported by this client
	AuthUnsupportedRole
	// AuthSessionRejected indicates the backend refused a session even after re-login
	AuthSessionRejected
	// AuthLoginFailed indicates the login response had an unexpected shape or vendor code
	AuthLoginFailed
)

// String returns a human-readable name for the reason code
func (r AuthReason) String() string {
	switch r {
	case AuthInvalidCredentials:
		return "Invalid Credentials"
	case AuthUnsupportedRole:
		return "Unsupported Role"
	case AuthSessionRejected:
		return "Session Rejected"
	case AuthLoginFailed:
		return "Login Failed"
	default:
		return fmt.Sprintf("AuthReason(%d)", r)
	}
}

// AuthError represents a fatal authentication failure. It is never retried
// automatically: wrong credentials stay wrong, and the v2 backend penalizes
// accounts that hammer the login endpoint.
type AuthError struct {
	Reason  AuthReason // Why authentication failed
	Message string     // Human-readable error message
	Err     error      // Underlying error (if any)
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Authentication Error (%s): %s (caused by: %v)", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("Authentication Error (%s): %s", e.Reason, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *AuthError) Unwrap() error {
	return e.Err
}

// TransportKind is the category of a TransportError.
type TransportKind int

const (
	// TransportNetwork indicates a network-level failure (timeout, DNS, refused, ...)
	TransportNetwork TransportKind = iota
	// TransportHTTP indicates a non-2xx status from the backend
	TransportHTTP
	// TransportDecode indicates a response body that could not be decoded at all
	TransportDecode
)

// String returns a human-readable name for the transport kind
func (k TransportKind) String() string {
	switch k {
	case TransportNetwork:
		return "Network Error"
	case TransportHTTP:
		return "HTTP Error"
	case TransportDecode:
		return "Decode Error"
	default:
		return fmt.Sprintf("TransportKind(%d)", k)
	}
}

// NetworkSubtype provides more specific network error classification
type NetworkSubtype int

const (
	NetworkGeneral NetworkSubtype = iota
	NetworkTimeout
	NetworkDNS
	NetworkConnectionRefused
	NetworkHostUnreachable
)

// TransportError represents a failed exchange with the backend. Network and
// HTTP 5xx variants are transient and a caller may retry them with backoff;
// a Decode error means the backend contract changed and retrying is pointless.
type TransportError struct {
	Kind       TransportKind  // Category of failure
	Message    string         // Human-readable error message
	StatusCode int            // HTTP status code (HTTP kind only)
	Subtype    NetworkSubtype // More specific network failure (Network kind only)
	Err        error          // Underlying error (if any)
}

// Error implements the error interface
func (e *TransportError) Error() string {
	msg := e.Message
	if e.Kind == TransportHTTP && e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError represents a response the adapter could not interpret: an
// expected field was missing or had the wrong type. This signals backend
// format drift and is surfaced immediately rather than papered over with
// defaults.
type ParseError struct {
	Field   string // The field that was missing or mistyped
	Snippet string // A short excerpt of the raw payload for diagnosis
	Err     error  // Underlying error (if any)
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Parse Error: field %q: %v (payload: %s)", e.Field, e.Err, e.Snippet)
	}
	return fmt.Sprintf("Parse Error: field %q missing or invalid (payload: %s)", e.Field, e.Snippet)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// classifyNetworkError analyzes a client-side request failure and returns a
// TransportError with the closest network subtype.
func classifyNetworkError(message string, err error) *TransportError {
	if err == nil {
		return nil
	}

	// Check for timeout and cancellation first
	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{
			Kind:    TransportNetwork,
			Message: message,
			Subtype: NetworkTimeout,
			Err:     err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &TransportError{
			Kind:    TransportNetwork,
			Message: "request canceled",
			Subtype: NetworkGeneral,
			Err:     err,
		}
	}

	// Check for DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{
			Kind:    TransportNetwork,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Subtype: NetworkDNS,
			Err:     err,
		}
	}

	// Check for connection-level errors
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &TransportError{
				Kind:    TransportNetwork,
				Message: "connection refused",
				Subtype: NetworkConnectionRefused,
				Err:     err,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) || errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &TransportError{
				Kind:    TransportNetwork,
				Message: "host unreachable",
				Subtype: NetworkHostUnreachable,
				Err:     err,
			}
		}
	}

	// Check for URL errors
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Recursively classify the underlying error
		classified := classifyNetworkError(message, urlErr.Err)
		if classified != nil {
			return classified
		}
	}

	// Generic network error
	return &TransportError{
		Kind:    TransportNetwork,
		Message: message,
		Subtype: NetworkGeneral,
		Err:     err,
	}
}

// NewNetworkError creates a network-level transport error with automatic classification
func NewNetworkError(message string, err error) *TransportError {
	classified := classifyNetworkError(message, err)
	if classified != nil {
		return classified
	}
	return &TransportError{
		Kind:    TransportNetwork,
		Message: message,
		Err:     err,
	}
}

// NewHTTPError creates a transport error for a non-2xx backend response
func NewHTTPError(statusCode int, message string) *TransportError {
	return &TransportError{
		Kind:       TransportHTTP,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewDecodeError creates a transport error for an undecodable response body
func NewDecodeError(message string, err error) *TransportError {
	return &TransportError{
		Kind:    TransportDecode,
		Message: message,
		Err:     err,
	}
}

// NewAuthError creates an authentication error with the given reason code
func NewAuthError(reason AuthReason, message string) *AuthError {
	return &AuthError{
		Reason:  reason,
		Message: message,
	}
}

// NewParseError creates a parse error for a missing or mistyped field
func NewParseError(field string, snippet string, err error) *ParseError {
	return &ParseError{
		Field:   field,
		Snippet: snippet,
		Err:     err,
	}
}

// IsAuthError checks if an error is (or wraps) an authentication error
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// AuthReasonOf extracts the reason code from an authentication error.
// The second return is false when err is not an auth error.
func AuthReasonOf(err error) (AuthReason, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason, true
	}
	return 0, false
}

// IsTransportError checks if an error is (or wraps) a transport error
func IsTransportError(err error) bool {
	var trErr *TransportError
	return errors.As(err, &trErr)
}

// IsNetworkError checks if an error is a network-kind transport error
func IsNetworkError(err error) bool {
	var trErr *TransportError
	return errors.As(err, &trErr) && trErr.Kind == TransportNetwork
}

// IsHTTPError checks if an error is an HTTP-kind transport error
func IsHTTPError(err error) bool {
	var trErr *TransportError
	return errors.As(err, &trErr) && trErr.Kind == TransportHTTP
}

// IsDecodeError checks if an error is a decode-kind transport error
func IsDecodeError(err error) bool {
	var trErr *TransportError
	return errors.As(err, &trErr) && trErr.Kind == TransportDecode
}

// IsParseError checks if an error is (or wraps) a parse error
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

// IsRetryable reports whether a caller-level retry with backoff could help.
// Auth, parse, and decode failures stay broken no matter how often they are
// retried; network failures and server-side 5xx responses may clear up.
func IsRetryable(err error) bool {
	var trErr *TransportError
	if !errors.As(err, &trErr) {
		return false
	}
	switch trErr.Kind {
	case TransportNetwork:
		return true
	case TransportHTTP:
		return trErr.StatusCode >= 500
	default:
		return false
	}
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		switch authErr.Reason {
		case AuthInvalidCredentials:
			return strings.Join([]string{
				"The cloud service rejected your credentials.",
				"Troubleshooting:",
				"  • Verify the username and password in the vendor's mobile app or web portal",
				"  • Pre-2022 installations use the legacy service (--api-ver v1)",
				"  • Newer installations use mastertherm.online (--api-ver v2)",
			}, "\n")
		case AuthUnsupportedRole:
			return strings.Join([]string{
				"The account logged in, but its role is not a supported end-user role.",
				"Installer and service accounts expose a different data shape.",
				"Use the credentials of the pump owner's account.",
			}, "\n")
		case AuthSessionRejected:
			return strings.Join([]string{
				"The service keeps rejecting the session even after a fresh login.",
				"Troubleshooting:",
				"  • The account may be temporarily locked out from excessive polling",
				"  • Wait a few minutes before retrying",
				"  • Increase the request spacing (--spacing)",
			}, "\n")
		default:
			return "Login did not complete. Check the error message for details."
		}
	}

	var trErr *TransportError
	if errors.As(err, &trErr) {
		switch trErr.Kind {
		case TransportNetwork:
			switch trErr.Subtype {
			case NetworkTimeout:
				return strings.Join([]string{
					"The cloud service did not respond in time.",
					"Troubleshooting:",
					"  • Check your internet connection",
					"  • The vendor service may be under load - try again later",
					"  • Try increasing the timeout (--timeout)",
				}, "\n")
			case NetworkDNS:
				return strings.Join([]string{
					"Could not resolve the cloud service hostname.",
					"Troubleshooting:",
					"  • Check your network DNS settings",
					"  • Verify the base URL if you overrode it",
				}, "\n")
			default:
				return strings.Join([]string{
					"Network communication with the cloud service failed.",
					"Troubleshooting:",
					"  • Check your internet connection",
					"  • A proxy or firewall may be blocking HTTPS traffic",
				}, "\n")
			}
		case TransportHTTP:
			if trErr.StatusCode >= 500 {
				return fmt.Sprintf("The cloud service returned HTTP %d. This is a service-side problem; try again later.", trErr.StatusCode)
			}
			return fmt.Sprintf("The cloud service returned HTTP %d. Check the request parameters and API version.", trErr.StatusCode)
		case TransportDecode:
			return strings.Join([]string{
				"The cloud service response could not be decoded.",
				"This usually means the backend changed its format, or the chosen",
				"API version does not match the installation. Try the other --api-ver.",
			}, "\n")
		}
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return strings.Join([]string{
			fmt.Sprintf("The response was missing the expected field %q.", parseErr.Field),
			"This usually means the backend changed its format, or the chosen",
			"API version does not match the installation. Try the other --api-ver.",
		}, "\n")
	}

	return "An unexpected error occurred. Please try again."
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		switch authErr.Reason {
		case AuthInvalidCredentials:
			return "Login rejected - check credentials"
		case AuthUnsupportedRole:
			return "Account role not supported"
		case AuthSessionRejected:
			return "Session rejected - account may be rate limited"
		default:
			return "Login failed"
		}
	}

	var trErr *TransportError
	if errors.As(err, &trErr) {
		switch trErr.Kind {
		case TransportNetwork:
			switch trErr.Subtype {
			case NetworkTimeout:
				return "Cloud service not responding (timeout)"
			case NetworkDNS:
				return "Cannot resolve cloud service hostname"
			default:
				return "Network error - check connection"
			}
		case TransportHTTP:
			return fmt.Sprintf("Cloud service error (HTTP %d)", trErr.StatusCode)
		case TransportDecode:
			return "Cannot decode cloud service response"
		}
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return fmt.Sprintf("Unexpected response format (field %q)", parseErr.Field)
	}

	return err.Error()
}
