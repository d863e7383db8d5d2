// Package api implements the Mastertherm cloud protocol: authentication,
// transport, and the two backend generations.
//
// # Backend Generations
//
// The vendor runs two incompatible backends. Installations from before 2022
// talk to mastertherm.vip-it.cz (v1), a PHP application with form-encoded
// POSTs and a PHPSESSID cookie session. Installations from 2022 on talk to
// mastertherm.online (v2), a REST API with bearer tokens and JSON-native
// types. Which backend an account lives on cannot be detected; the caller
// states it at construction and the matching Adapter is selected once.
//
// # Sessions
//
// Manager owns the only copy of the session state. It logs in lazily on the
// first call, deduplicates concurrent logins so one flight serves all
// waiters, and refreshes before expiry with a safety margin. When the
// backend rejects a session mid-call (HTTP 401, v2 errorId 9, or v1
// returncode 2) the manager re-authenticates and retries that call exactly
// once; a second rejection surfaces as an AuthError. Bad credentials are
// never retried.
//
// # Request Spacing
//
// The v2 backend locks accounts out under aggressive polling, so the v2
// transport enforces a minimum gap between requests. Requests arriving
// early are queued, never dropped; each waiter reserves the next free slot
// under a mutex and sleeps outside it.
//
// # Errors
//
// Failures carry their layer: AuthError for credential and session
// problems, TransportError for network, HTTP status, and non-JSON body
// failures, ParseError for format drift inside otherwise valid JSON.
// Callers branch on the type, not the message.
package api
