package mastertherm

import (
	"github.com/muurk/mastertherm/internal/api"
	"github.com/muurk/mastertherm/internal/normalize"
)

// The error taxonomy is defined next to the code that raises it and aliased
// here. Operations wrap failures with context but never change their kind,
// so callers branch with errors.As or the helpers below.
type (
	// AuthError reports a login or session failure. Never retried
	// automatically beyond the single mid-call re-login.
	AuthError = api.AuthError

	// AuthReason classifies an AuthError.
	AuthReason = api.AuthReason

	// TransportError reports a network, HTTP or body-decoding failure.
	TransportError = api.TransportError

	// TransportKind classifies a TransportError.
	TransportKind = api.TransportKind

	// NetworkSubtype refines network-level TransportErrors.
	NetworkSubtype = api.NetworkSubtype

	// ParseError reports a response field an adapter could not interpret.
	ParseError = api.ParseError

	// ConversionError reports a raw value the normalization tables could
	// not interpret.
	ConversionError = normalize.ConversionError
)

const (
	AuthInvalidCredentials = api.AuthInvalidCredentials
	AuthUnsupportedRole    = api.AuthUnsupportedRole
	AuthSessionRejected    = api.AuthSessionRejected
	AuthLoginFailed        = api.AuthLoginFailed

	TransportNetwork = api.TransportNetwork
	TransportHTTP    = api.TransportHTTP
	TransportDecode  = api.TransportDecode

	NetworkGeneral           = api.NetworkGeneral
	NetworkTimeout           = api.NetworkTimeout
	NetworkDNS               = api.NetworkDNS
	NetworkConnectionRefused = api.NetworkConnectionRefused
	NetworkHostUnreachable   = api.NetworkHostUnreachable
)

// IsAuthError checks if an error is an AuthError.
func IsAuthError(err error) bool { return api.IsAuthError(err) }

// AuthReasonOf extracts the reason from an AuthError anywhere in the chain.
func AuthReasonOf(err error) (AuthReason, bool) { return api.AuthReasonOf(err) }

// IsTransportError checks if an error is a TransportError of any kind.
func IsTransportError(err error) bool { return api.IsTransportError(err) }

// IsNetworkError checks for a network-level TransportError.
func IsNetworkError(err error) bool { return api.IsNetworkError(err) }

// IsHTTPError checks for a non-2xx TransportError.
func IsHTTPError(err error) bool { return api.IsHTTPError(err) }

// IsDecodeError checks for an undecodable-body TransportError.
func IsDecodeError(err error) bool { return api.IsDecodeError(err) }

// IsParseError checks if an error is a ParseError.
func IsParseError(err error) bool { return api.IsParseError(err) }

// IsConversionError checks if an error is a ConversionError.
func IsConversionError(err error) bool { return normalize.IsConversionError(err) }

// IsRetryable reports whether retrying the operation could plausibly help:
// network failures and server-side HTTP errors qualify, everything else
// does not.
func IsRetryable(err error) bool { return api.IsRetryable(err) }

// GetTroubleshootingHint returns user-facing guidance for an error, or ""
// when there is nothing useful to say.
func GetTroubleshootingHint(err error) string { return api.GetTroubleshootingHint(err) }

// GetShortErrorMessage returns a one-line summary of an error suitable for
// status displays.
func GetShortErrorMessage(err error) string { return api.GetShortErrorMessage(err) }
