package api

import (
	"context"
	"fmt"
	"time"
)

// Backend endpoints and defaults. Both base URLs are vendor-fixed; overrides
// exist only for tests and the offline mock server.
const (
	// DefaultBaseURLV1 is the legacy backend serving pre-2022 installations
	DefaultBaseURLV1 = "https://mastertherm.vip-it.cz"

	// DefaultBaseURLV2 is the current backend serving 2022+ installations
	DefaultBaseURLV2 = "https://mastertherm.online"

	// DefaultTimeout is the default per-request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultRequestSpacing is the default minimum gap between v2 requests.
	// The v2 backend locks accounts out under aggressive polling.
	DefaultRequestSpacing = 1 * time.Second
)

// v1 endpoint paths (PHP application plus the visualization servlet)
const (
	v1PathLogin    = "/plugins/mastertherm_login/client_login.php"
	v1PathPumpInfo = "/plugins/get_pumpinfo/get_pumpinfo.php"
	v1PathPumpData = "/mt/PassiveVizualizationServlet"
)

// v2 endpoint paths
const (
	v2PathLogin    = "/api/v1/auth/login"
	v2PathModules  = "/api/v1/modules"
	v2PathPumpInfo = "/api/v1/hp_info"
	v2PathPumpData = "/api/v1/hp_data"
)

const (
	// v1SessionCookie is the cookie carrying the v1 session token
	v1SessionCookie = "PHPSESSID"

	// errorIDInvalidToken is the in-body vendor signal for a dead session
	errorIDInvalidToken = 9

	// errorIDBadCredentials is the v2 in-body login rejection code
	errorIDBadCredentials = 1

	// returncodeNotLoggedIn is the v1 PHP-side signal for a dead session
	returncodeNotLoggedIn = 2

	// returncodeBadCredentials is the v1 login rejection code
	returncodeBadCredentials = 1
)

// supportedRoles are the account roles this client understands. Installer and
// service roles expose a different data shape and are rejected at login.
var supportedRoles = []string{"400"}

// Version selects which backend generation a client speaks. The two
// generations differ in endpoints, auth mechanics, and payload shape; the
// choice is made at construction time and never inferred from payloads.
type Version int

const (
	// V1 is the legacy backend (mastertherm.vip-it.cz)
	V1 Version = iota + 1
	// V2 is the current backend (mastertherm.online)
	V2
)

// String returns the conventional short tag for the version
func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// ParseVersion converts a version tag ("v1", "v2") to a Version
func ParseVersion(s string) (Version, error) {
	switch s {
	case "v1":
		return V1, nil
	case "v2":
		return V2, nil
	default:
		return 0, fmt.Errorf("unknown api version %q (expected v1 or v2)", s)
	}
}

// Credentials is a username/password pair for the vendor cloud. Immutable
// once supplied; neither field is ever logged.
type Credentials struct {
	Username string
	Password string
}

// Caller performs authenticated calls on behalf of an adapter. It is
// implemented by the session Manager: adapters describe requests, the
// manager decorates them with whatever auth state the session holds and
// handles mid-call session expiry. Adapters never see tokens or cookies.
type Caller interface {
	// Call ensures a valid session and executes one authenticated request
	Call(ctx context.Context, req *Request) (*Response, error)

	// LoginPayload ensures a valid session and returns the raw body of the
	// login response that established it. The v1 backend delivers the module
	// list inline with the login; this is the only way to reach it.
	LoginPayload(ctx context.Context) ([]byte, error)
}

// Adapter is the capability set both backend generations implement. One
// concrete adapter is selected at construction and used for the lifetime of
// a client; responses are parsed by shape knowledge, never sniffed.
type Adapter interface {
	// Version reports which backend this adapter speaks
	Version() Version

	// Login authenticates and returns a fresh session. Bad credentials,
	// unsupported roles, and malformed login responses fail with AuthError;
	// network-level failures keep their TransportError classification.
	Login(ctx context.Context, tr *Transport, creds Credentials) (*session, error)

	// ListDevices returns the account's devices in vendor order
	ListDevices(ctx context.Context, c Caller) ([]Device, error)

	// DeviceInfo fetches owner/unit metadata for one device
	DeviceInfo(ctx context.Context, c Caller, ref DeviceRef) (*RawDeviceInfo, error)

	// DeviceData fetches the register snapshot for one device. A zero
	// lastUpdate requests the full snapshot; a nonzero value requests only
	// registers changed since that epoch timestamp.
	DeviceData(ctx context.Context, c Caller, ref DeviceRef, lastUpdate int64) (*RawDeviceData, error)

	// DeviceRegisters fetches the full raw register snapshot for one device
	DeviceRegisters(ctx context.Context, c Caller, ref DeviceRef) (*RawDeviceData, error)
}

// NewAdapter returns the adapter for the requested backend generation
func NewAdapter(version Version) (Adapter, error) {
	switch version {
	case V1:
		return &v1Adapter{}, nil
	case V2:
		return &v2Adapter{}, nil
	default:
		return nil, fmt.Errorf("unknown api version %d", int(version))
	}
}

func roleSupported(role string) bool {
	for _, r := range supportedRoles {
		if role == r {
			return true
		}
	}
	return false
}
