package api

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// v1Adapter speaks the legacy backend: a PHP application fronting the
// visualization servlet. Every call is a form-encoded POST and the session
// is a PHPSESSID cookie whose expiry the server declares.
type v1Adapter struct{}

func (a *v1Adapter) Version() Version {
	return V1
}

// v1LoginResponse is the login reply. The account's module list arrives
// inline; the legacy backend has no separate listing endpoint.
type v1LoginResponse struct {
	ReturnCode *int       `json:"returncode"`
	Message    string     `json:"message"`
	Role       string     `json:"role"`
	Modules    []v1Module `json:"modules"`
}

type v1Module struct {
	// ID is the module identifier; the legacy backend encodes it as a string
	ID string `json:"id"`

	// ModuleName is the installation name as entered by the installer
	ModuleName string `json:"module_name"`

	// Config lists the controller units of the module
	Config []v1Unit `json:"config"`
}

type v1Unit struct {
	Addr string `json:"mb_addr"`
	Name string `json:"mb_name"`
}

// sha1Hex is the vendor's password encoding for the legacy login form.
// The digest is what travels; the cleartext never leaves the process.
func sha1Hex(password string) string {
	sum := sha1.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (a *v1Adapter) Login(ctx context.Context, tr *Transport, creds Credentials) (*session, error) {
	form := url.Values{}
	form.Set("login", "login")
	form.Set("uname", creds.Username)
	form.Set("upwd", sha1Hex(creds.Password))

	resp, err := tr.Do(ctx, nil, &Request{
		Method: http.MethodPost,
		Path:   v1PathLogin,
		Form:   form,
	})
	if err != nil {
		return nil, err
	}

	var login v1LoginResponse
	if err := decodeJSON(resp.Body, &login); err != nil {
		return nil, &AuthError{Reason: AuthLoginFailed, Message: "login response had an unexpected shape", Err: err}
	}
	if login.ReturnCode == nil {
		return nil, &AuthError{Reason: AuthLoginFailed, Message: "login response carried no returncode"}
	}
	switch *login.ReturnCode {
	case 0:
		// logged in
	case returncodeBadCredentials:
		msg := login.Message
		if msg == "" {
			msg = "backend rejected the credentials"
		}
		return nil, &AuthError{Reason: AuthInvalidCredentials, Message: msg}
	default:
		return nil, &AuthError{
			Reason:  AuthLoginFailed,
			Message: fmt.Sprintf("login rejected with vendor code %d: %s", *login.ReturnCode, login.Message),
		}
	}
	if !roleSupported(login.Role) {
		return nil, &AuthError{
			Reason:  AuthUnsupportedRole,
			Message: fmt.Sprintf("account role %q is not supported", login.Role),
		}
	}

	token, expires := v1SessionCookieValues(resp.Cookies)
	if token == "" {
		return nil, &AuthError{Reason: AuthLoginFailed, Message: "login succeeded but no session cookie was set"}
	}

	now := time.Now()
	if expires.IsZero() {
		expires = now.Add(defaultV1TTL)
	}

	return &session{
		version:      V1,
		token:        token,
		issuedAt:     now,
		expiresAt:    expires,
		loginPayload: resp.Body,
	}, nil
}

// v1SessionCookieValues extracts the session token and its server-declared
// expiry from the login response cookies
func v1SessionCookieValues(cookies []*http.Cookie) (string, time.Time) {
	for _, c := range cookies {
		if c.Name == v1SessionCookie {
			return c.Value, c.Expires
		}
	}
	return "", time.Time{}
}

// ListDevices parses the module list out of the login payload
func (a *v1Adapter) ListDevices(ctx context.Context, c Caller) ([]Device, error) {
	payload, err := c.LoginPayload(ctx)
	if err != nil {
		return nil, err
	}

	var login struct {
		Modules *[]v1Module `json:"modules"`
	}
	if err := decodeJSON(payload, &login); err != nil {
		return nil, err
	}
	if login.Modules == nil {
		return nil, NewParseError("modules", snippet(payload), nil)
	}

	devices := make([]Device, 0, len(*login.Modules))
	for _, module := range *login.Modules {
		if module.ID == "" {
			return nil, NewParseError("modules.id", snippet(payload), nil)
		}
		for _, unit := range module.Config {
			if unit.Addr == "" {
				return nil, NewParseError("modules.config.mb_addr", snippet(payload), nil)
			}
			devices = append(devices, Device{
				DeviceRef:  DeviceRef{ModuleID: module.ID, UnitID: unit.Addr},
				ModuleName: module.ModuleName,
				UnitName:   unit.Name,
			})
		}
	}
	return devices, nil
}

func (a *v1Adapter) DeviceInfo(ctx context.Context, c Caller, ref DeviceRef) (*RawDeviceInfo, error) {
	form := url.Values{}
	form.Set("moduleid", ref.ModuleID)
	form.Set("unitid", ref.UnitID)

	resp, err := c.Call(ctx, &Request{
		Method:        http.MethodPost,
		Path:          v1PathPumpInfo,
		Form:          form,
		Authenticated: true,
	})
	if err != nil {
		return nil, err
	}

	var probe struct {
		ReturnCode *int   `json:"returncode"`
		Message    string `json:"message"`
	}
	if err := decodeJSON(resp.Body, &probe); err != nil {
		return nil, err
	}
	if probe.ReturnCode == nil {
		return nil, NewParseError("returncode", snippet(resp.Body), nil)
	}
	if *probe.ReturnCode != 0 {
		return nil, &TransportError{
			Kind:       TransportHTTP,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("backend reported error %d: %s", *probe.ReturnCode, probe.Message),
		}
	}

	fields := make(map[string]any)
	if err := decodeJSON(resp.Body, &fields); err != nil {
		return nil, err
	}
	delete(fields, "returncode")
	delete(fields, "message")

	return &RawDeviceInfo{Version: V1, Ref: ref, Fields: fields}, nil
}

func (a *v1Adapter) DeviceData(ctx context.Context, c Caller, ref DeviceRef, lastUpdate int64) (*RawDeviceData, error) {
	form := url.Values{}
	form.Set("moduleId", ref.ModuleID)
	form.Set("deviceId", ref.UnitID)
	form.Set("application", "android")
	form.Set("messageId", "1")
	form.Set("lastUpdateTime", strconv.FormatInt(lastUpdate, 10))
	form.Set("errorResponse", "true")
	form.Set("fullRange", "true")

	resp, err := c.Call(ctx, &Request{
		Method:        http.MethodPost,
		Path:          v1PathPumpData,
		Form:          form,
		Authenticated: true,
	})
	if err != nil {
		return nil, err
	}
	return parsePumpEnvelope(resp, V1, ref, "varfile_mt1_config1", lastUpdate)
}

func (a *v1Adapter) DeviceRegisters(ctx context.Context, c Caller, ref DeviceRef) (*RawDeviceData, error) {
	return a.DeviceData(ctx, c, ref, 0)
}
