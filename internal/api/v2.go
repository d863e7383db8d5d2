package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/mastertherm/internal/logging"
)

// v2Adapter speaks the current backend: JSON over REST with a bearer token.
// Identifiers are numeric on the wire and converted to the string form the
// rest of the client uses.
type v2Adapter struct{}

func (a *v2Adapter) Version() Version {
	return V2
}

type v2LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt string         `json:"expiresAt"`
	Role      string         `json:"role"`
	Error     *envelopeError `json:"error"`
}

func (a *v2Adapter) Login(ctx context.Context, tr *Transport, creds Credentials) (*session, error) {
	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	resp, err := tr.Do(ctx, nil, &Request{
		Method: http.MethodPost,
		Path:   v2PathLogin,
		Form:   form,
	})
	if err != nil {
		// The current backend signals bad credentials with a plain 401
		var trErr *TransportError
		if errors.As(err, &trErr) && trErr.Kind == TransportHTTP && trErr.StatusCode == http.StatusUnauthorized {
			return nil, &AuthError{Reason: AuthInvalidCredentials, Message: "backend rejected the credentials", Err: err}
		}
		return nil, err
	}

	var login v2LoginResponse
	if err := decodeJSON(resp.Body, &login); err != nil {
		return nil, &AuthError{Reason: AuthLoginFailed, Message: "login response had an unexpected shape", Err: err}
	}
	if login.Error != nil && login.Error.ID != 0 {
		msg := login.Error.Message
		if msg == "" {
			msg = "backend rejected the login"
		}
		if login.Error.ID == errorIDBadCredentials {
			return nil, &AuthError{Reason: AuthInvalidCredentials, Message: msg}
		}
		return nil, &AuthError{
			Reason:  AuthLoginFailed,
			Message: fmt.Sprintf("login rejected with vendor code %d: %s", login.Error.ID, msg),
		}
	}
	if login.Token == "" {
		return nil, &AuthError{Reason: AuthLoginFailed, Message: "login response carried no token"}
	}
	if !roleSupported(login.Role) {
		return nil, &AuthError{
			Reason:  AuthUnsupportedRole,
			Message: fmt.Sprintf("account role %q is not supported", login.Role),
		}
	}

	now := time.Now()
	expires := now.Add(defaultV2TTL)
	if login.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, login.ExpiresAt)
		if err != nil {
			logging.Warn("Unparseable token expiry in login response, using fallback TTL",
				zap.String("expires_at", login.ExpiresAt))
		} else {
			expires = t
		}
	}

	return &session{
		version:      V2,
		token:        login.Token,
		issuedAt:     now,
		expiresAt:    expires,
		loginPayload: resp.Body,
	}, nil
}

type v2ModulesResponse struct {
	Message string `json:"message"`
	Data    *struct {
		Modules *[]v2Module `json:"modules"`
	} `json:"data"`
}

type v2Module struct {
	ID     *int64    `json:"id"`
	Name   string    `json:"name"`
	Things []v2Thing `json:"things"`
}

type v2Thing struct {
	Addr *int64 `json:"mb_addr"`
	Name string `json:"mb_name"`
}

func (a *v2Adapter) ListDevices(ctx context.Context, c Caller) ([]Device, error) {
	resp, err := c.Call(ctx, &Request{
		Method:        http.MethodGet,
		Path:          v2PathModules,
		Authenticated: true,
	})
	if err != nil {
		return nil, err
	}

	var listing v2ModulesResponse
	if err := decodeJSON(resp.Body, &listing); err != nil {
		return nil, err
	}
	if listing.Data == nil || listing.Data.Modules == nil {
		return nil, NewParseError("data.modules", snippet(resp.Body), nil)
	}

	devices := make([]Device, 0, len(*listing.Data.Modules))
	for _, module := range *listing.Data.Modules {
		if module.ID == nil {
			return nil, NewParseError("data.modules.id", snippet(resp.Body), nil)
		}
		for _, thing := range module.Things {
			if thing.Addr == nil {
				return nil, NewParseError("data.modules.things.mb_addr", snippet(resp.Body), nil)
			}
			devices = append(devices, Device{
				DeviceRef: DeviceRef{
					ModuleID: strconv.FormatInt(*module.ID, 10),
					UnitID:   strconv.FormatInt(*thing.Addr, 10),
				},
				ModuleName: module.Name,
				UnitName:   thing.Name,
			})
		}
	}
	return devices, nil
}

func (a *v2Adapter) DeviceInfo(ctx context.Context, c Caller, ref DeviceRef) (*RawDeviceInfo, error) {
	query := url.Values{}
	query.Set("moduleid", ref.ModuleID)
	query.Set("unitid", ref.UnitID)

	resp, err := c.Call(ctx, &Request{
		Method:        http.MethodGet,
		Path:          v2PathPumpInfo,
		Query:         query,
		Authenticated: true,
	})
	if err != nil {
		return nil, err
	}

	var info struct {
		Data map[string]any `json:"data"`
	}
	if err := decodeJSON(resp.Body, &info); err != nil {
		return nil, err
	}
	if info.Data == nil {
		return nil, NewParseError("data", snippet(resp.Body), nil)
	}

	return &RawDeviceInfo{Version: V2, Ref: ref, Fields: info.Data}, nil
}

func (a *v2Adapter) DeviceData(ctx context.Context, c Caller, ref DeviceRef, lastUpdate int64) (*RawDeviceData, error) {
	query := url.Values{}
	query.Set("moduleId", ref.ModuleID)
	query.Set("deviceId", ref.UnitID)
	query.Set("application", "android")
	query.Set("messageId", "1")
	query.Set("lastUpdateTime", strconv.FormatInt(lastUpdate, 10))
	query.Set("errorResponse", "true")
	query.Set("fullRange", "true")

	resp, err := c.Call(ctx, &Request{
		Method:        http.MethodGet,
		Path:          v2PathPumpData,
		Query:         query,
		Authenticated: true,
	})
	if err != nil {
		return nil, err
	}
	return parsePumpEnvelope(resp, V2, ref, "varFileData", lastUpdate)
}

func (a *v2Adapter) DeviceRegisters(ctx context.Context, c Caller, ref DeviceRef) (*RawDeviceData, error) {
	return a.DeviceData(ctx, c, ref, 0)
}
