package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/muurk/mastertherm/internal/logging"
)

const (
	// expiryMargin re-authenticates slightly before nominal expiry so a
	// request never goes out on a session about to die mid-flight
	expiryMargin = 60 * time.Second

	// defaultV1TTL applies when the v1 backend sets no cookie expiry
	defaultV1TTL = 10 * time.Minute

	// defaultV2TTL applies when the v2 login omits a parseable expiresAt
	defaultV2TTL = 1 * time.Hour
)

// session is the authenticated state for one backend generation. It never
// leaves this package: adapters work through the Caller capability and the
// facade only ever sees canonical results or errors.
type session struct {
	version   Version
	token     string
	issuedAt  time.Time
	expiresAt time.Time

	// loginPayload is the raw login response body. The v1 backend delivers
	// the account's module list inline with the login, nowhere else.
	loginPayload []byte
}

// valid reports whether the session can still carry a request. Nil-safe.
func (s *session) valid(now time.Time) bool {
	if s == nil || s.token == "" {
		return false
	}
	return now.Before(s.expiresAt.Add(-expiryMargin))
}

// Manager owns the session lifecycle for one credential set: login, expiry
// tracking, invalidation, and the single silent retry for sessions the
// backend rejects mid-call. It implements Caller for the adapters.
type Manager struct {
	creds   Credentials
	adapter Adapter
	tr      *Transport

	mu      sync.RWMutex
	current *session

	login singleflight.Group
}

// NewManager creates a session manager bound to one credential set, one
// backend adapter, and one transport.
func NewManager(creds Credentials, adapter Adapter, tr *Transport) *Manager {
	return &Manager{
		creds:   creds,
		adapter: adapter,
		tr:      tr,
	}
}

// Ensure makes sure a valid session exists, logging in if necessary. Safe
// for concurrent use: one login proceeds, everyone else waits on its
// outcome. The v2 backend penalizes excessive request volume, so duplicate
// parallel logins must never happen.
func (m *Manager) Ensure(ctx context.Context) error {
	_, err := m.ensure(ctx)
	return err
}

func (m *Manager) ensure(ctx context.Context) (*session, error) {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()
	if current.valid(time.Now()) {
		return current, nil
	}

	v, err, _ := m.login.Do("login", func() (any, error) {
		// A waiter may arrive just after the previous flight stored a
		// fresh session; don't log in again on its behalf
		m.mu.RLock()
		current := m.current
		m.mu.RUnlock()
		if current.valid(time.Now()) {
			return current, nil
		}

		sess, err := m.adapter.Login(ctx, m.tr, m.creds)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.current = sess
		m.mu.Unlock()

		logging.LogSessionEvent(sess.version.String(), "login", sess.expiresAt)
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*session), nil
}

// invalidate drops a session the backend rejected. Only the session that
// failed is dropped; a newer one installed meanwhile stays.
func (m *Manager) invalidate(s *session) {
	m.mu.Lock()
	if m.current == s {
		m.current = nil
	}
	m.mu.Unlock()
	logging.LogSessionEvent(s.version.String(), "invalidate", s.expiresAt)
}

// Call implements Caller. It ensures a session, executes the request, and
// performs the one legitimate silent retry: when the backend rejects a
// seemingly valid session mid-call, the session is invalidated, a fresh
// login happens, and the request is repeated exactly once. A second
// rejection surfaces as AuthError.
func (m *Manager) Call(ctx context.Context, req *Request) (*Response, error) {
	sess, err := m.ensure(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := m.tr.Do(ctx, sess, req)
	if !sessionRejected(resp, err) {
		return resp, err
	}

	logging.Warn("Session rejected mid-call, re-authenticating",
		zap.String("api_version", m.adapter.Version().String()),
		zap.String("path", req.Path),
	)
	m.invalidate(sess)

	sess, err = m.ensure(ctx)
	if err != nil {
		return nil, err
	}

	resp, err = m.tr.Do(ctx, sess, req)
	if sessionRejected(resp, err) {
		return nil, &AuthError{
			Reason:  AuthSessionRejected,
			Message: "backend rejected the session again after a fresh login",
			Err:     err,
		}
	}
	return resp, err
}

// LoginPayload implements Caller: it ensures a valid session and returns
// the raw login response body that established it.
func (m *Manager) LoginPayload(ctx context.Context) ([]byte, error) {
	sess, err := m.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return sess.loginPayload, nil
}

// sessionRejected detects the backends' ways of reporting a dead session:
// HTTP 401, the shared envelope's invalid-token errorId, or the v1 PHP
// side's "not logged in" returncode.
func sessionRejected(resp *Response, err error) bool {
	if err != nil {
		var trErr *TransportError
		return errors.As(err, &trErr) && trErr.Kind == TransportHTTP && trErr.StatusCode == http.StatusUnauthorized
	}
	if resp == nil {
		return false
	}

	var probe struct {
		ReturnCode *int           `json:"returncode"`
		Error      *envelopeError `json:"error"`
	}
	if jsonErr := json.Unmarshal(resp.Body, &probe); jsonErr != nil {
		// Not an object-shaped body; the adapter will deal with it
		return false
	}
	if probe.Error != nil && probe.Error.ID == errorIDInvalidToken {
		return true
	}
	if probe.ReturnCode != nil && *probe.ReturnCode == returncodeNotLoggedIn {
		return true
	}
	return false
}
