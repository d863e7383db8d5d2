package mastertherm

import (
	"strconv"
	"sync"
)

// Placeholder values substituted when hide-sensitive is enabled. Module ids
// are renumbered from hiddenModuleBase upward in first-seen order, which
// keeps a redacted log self-consistent without revealing the real ids.
const (
	hiddenModuleBase = 1112

	hiddenModuleName = "Hidden Name"
	hiddenOwnerName  = "First"
	hiddenSurname    = "Last"
	hiddenLatitude   = "1.1"
	hiddenLongitude  = "-0.1"
	hiddenPlace      = "Hidden City"
)

// moduleAliases assigns stable masked ids to real module ids. The mapping
// lives for the client's lifetime so the same module always masks to the
// same alias, and masked refs handed back by callers can be resolved to
// the real id before hitting the backend.
type moduleAliases struct {
	mu      sync.Mutex
	byReal  map[string]string
	byAlias map[string]string
}

func newModuleAliases() *moduleAliases {
	return &moduleAliases{
		byReal:  make(map[string]string),
		byAlias: make(map[string]string),
	}
}

func (a *moduleAliases) alias(moduleID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if alias, ok := a.byReal[moduleID]; ok {
		return alias
	}
	alias := strconv.Itoa(hiddenModuleBase + len(a.byReal))
	a.byReal[moduleID] = alias
	a.byAlias[alias] = moduleID
	return alias
}

func (a *moduleAliases) resolve(moduleID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if real, ok := a.byAlias[moduleID]; ok {
		return real
	}
	return moduleID
}

// resolveRef maps a possibly-masked ref back onto the real module id.
func (c *Client) resolveRef(ref DeviceRef) DeviceRef {
	if !c.hideSensitive {
		return ref
	}
	ref.ModuleID = c.aliases.resolve(ref.ModuleID)
	return ref
}

func (c *Client) maskRef(ref DeviceRef) DeviceRef {
	ref.ModuleID = c.aliases.alias(ref.ModuleID)
	return ref
}

func (c *Client) maskDevice(device Device) Device {
	device.DeviceRef = c.maskRef(device.DeviceRef)
	device.ModuleName = hiddenModuleName
	return device
}

func (c *Client) maskInfo(info *DeviceInfo) {
	info.Ref = c.maskRef(info.Ref)
	info.Name = hiddenOwnerName
	info.Surname = hiddenSurname
	info.Latitude = hiddenLatitude
	info.Longitude = hiddenLongitude
	info.Place = hiddenPlace
	info.Notes = ""
}
