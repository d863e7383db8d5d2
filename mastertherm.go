package mastertherm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/muurk/mastertherm/internal/api"
	"github.com/muurk/mastertherm/internal/normalize"
)

// The public vocabulary is defined in the internal layers and aliased here
// so callers work with a single import.
type (
	// APIVersion selects which backend generation a client speaks.
	APIVersion = api.Version

	// Credentials carry the vendor cloud account login.
	Credentials = api.Credentials

	// DeviceRef identifies one controller unit within a module.
	DeviceRef = api.DeviceRef

	// Device is one list entry of the account's installations.
	Device = api.Device

	// DeviceInfo is the canonical installation record.
	DeviceInfo = normalize.DeviceInfo

	// DeviceData is the canonical per-fetch snapshot.
	DeviceData = normalize.DeviceData

	// Point is one named, typed reading.
	Point = normalize.Point

	// Kind is the decoded type of a Point.
	Kind = normalize.Kind

	// Pad is one named heating/cooling circuit.
	Pad = normalize.Pad

	// RegisterDump is an uninterpreted register snapshot.
	RegisterDump = normalize.RegisterDump
)

const (
	// V1 is the legacy backend generation (pre-2022 installations)
	V1 = api.V1
	// V2 is the current backend generation (2022 onward)
	V2 = api.V2
)

// Point kinds, mirroring the register namespace prefixes.
const (
	KindBool  = normalize.KindBool
	KindFloat = normalize.KindFloat
	KindInt   = normalize.KindInt
)

// Defaults applied at construction, adjustable through the setters.
const (
	DefaultTimeout        = api.DefaultTimeout
	DefaultRequestSpacing = api.DefaultRequestSpacing
)

// ParseVersion maps "v1"/"v2" onto the version selector.
func ParseVersion(s string) (APIVersion, error) {
	return api.ParseVersion(s)
}

// ParseDeviceID splits a composite "<module>_<unit>" identifier.
func ParseDeviceID(id string) (DeviceRef, error) {
	return api.ParseDeviceID(id)
}

// Client is the entry point to the vendor cloud. Construct one per account
// with NewClient, optionally adjust it with the setters before the first
// call, then use the fetch operations from any number of goroutines. Login
// happens lazily on the first operation and transparently after session
// expiry; Connect forces it eagerly.
type Client struct {
	version   APIVersion
	adapter   api.Adapter
	transport *api.Transport
	sessions  *api.Manager

	hideSensitive bool
	aliases       *moduleAliases
}

// NewClient builds a client for one account against the selected backend
// generation. The generation is fixed for the client's lifetime; accounts
// migrated by the vendor need a new client.
func NewClient(username, password string, version APIVersion) (*Client, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password must not be empty")
	}

	adapter, err := api.NewAdapter(version)
	if err != nil {
		return nil, err
	}

	transport := api.NewTransport(version)
	creds := api.Credentials{Username: username, Password: password}

	return &Client{
		version:   version,
		adapter:   adapter,
		transport: transport,
		sessions:  api.NewManager(creds, adapter, transport),
		aliases:   newModuleAliases(),
	}, nil
}

// Version reports the backend generation this client speaks.
func (c *Client) Version() APIVersion {
	return c.version
}

// SetRequestSpacing overrides the minimum gap between outbound calls.
// Zero disables the gate. Intended before the first call.
func (c *Client) SetRequestSpacing(spacing time.Duration) {
	c.transport.SetRequestSpacing(spacing)
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.transport.SetTimeout(timeout)
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.transport.SetHTTPClient(client)
}

// SetBaseURL points the client at a different backend base URL, used for
// tests and for debugging against a staging deployment.
func (c *Client) SetBaseURL(base string) {
	c.transport.SetBaseURL(base)
}

// SetHideSensitive masks identifying values in every returned structure:
// module ids are renumbered deterministically, owner and location fields
// are replaced with fixed placeholders. Masked refs are accepted back by
// the fetch operations, so callers can keep working with what they were
// given.
func (c *Client) SetHideSensitive(hide bool) {
	c.hideSensitive = hide
}

// Connect performs an eager login, verifying credentials and account role.
// It is optional: every operation establishes a session on demand.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.sessions.Ensure(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// ListDevices returns the account's devices in vendor order.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	devices, err := c.adapter.ListDevices(ctx, c.sessions)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if c.hideSensitive {
		for i := range devices {
			devices[i] = c.maskDevice(devices[i])
		}
	}
	return devices, nil
}

// GetDeviceInfo fetches and normalizes the installation record for one
// device.
func (c *Client) GetDeviceInfo(ctx context.Context, ref DeviceRef) (*DeviceInfo, error) {
	raw, err := c.adapter.DeviceInfo(ctx, c.sessions, c.resolveRef(ref))
	if err != nil {
		return nil, fmt.Errorf("get device info %s: %w", ref.ID(), err)
	}
	info, err := normalize.DeviceInfoFrom(raw)
	if err != nil {
		return nil, fmt.Errorf("get device info %s: %w", ref.ID(), err)
	}
	if c.hideSensitive {
		c.maskInfo(info)
	}
	return info, nil
}

// GetDeviceData fetches a full register snapshot for one device and
// normalizes it into named points, pads and the unmapped leftovers.
func (c *Client) GetDeviceData(ctx context.Context, ref DeviceRef) (*DeviceData, error) {
	raw, err := c.adapter.DeviceData(ctx, c.sessions, c.resolveRef(ref), 0)
	if err != nil {
		return nil, fmt.Errorf("get device data %s: %w", ref.ID(), err)
	}
	return c.finishData(raw, "get device data", ref)
}

// RefreshDeviceData fetches only the registers changed since prev's
// snapshot time, merges them over prev's raw snapshot and renormalizes.
// The result is a complete snapshot; prev is left untouched.
func (c *Client) RefreshDeviceData(ctx context.Context, prev *DeviceData) (*DeviceData, error) {
	if prev == nil {
		return nil, fmt.Errorf("refresh device data: no previous snapshot")
	}

	ref := prev.Ref
	raw, err := c.adapter.DeviceData(ctx, c.sessions, c.resolveRef(ref), prev.UpdatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("refresh device data %s: %w", ref.ID(), err)
	}

	merged := make(map[string]string, len(prev.Registers)+len(raw.Registers))
	for reg, value := range prev.Registers {
		merged[reg] = value
	}
	for reg, value := range raw.Registers {
		merged[reg] = value
	}
	raw.Registers = merged

	return c.finishData(raw, "refresh device data", ref)
}

// GetDeviceRegisters fetches the full raw register snapshot for one device,
// values passed through uninterpreted.
func (c *Client) GetDeviceRegisters(ctx context.Context, ref DeviceRef) (RegisterDump, error) {
	raw, err := c.adapter.DeviceRegisters(ctx, c.sessions, c.resolveRef(ref))
	if err != nil {
		return nil, fmt.Errorf("get device registers %s: %w", ref.ID(), err)
	}
	return normalize.RegistersFrom(raw), nil
}

func (c *Client) finishData(raw *api.RawDeviceData, op string, ref DeviceRef) (*DeviceData, error) {
	data, err := normalize.DeviceDataFrom(raw)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, ref.ID(), err)
	}
	if c.hideSensitive {
		data.Ref = c.maskRef(data.Ref)
	}
	return data, nil
}
