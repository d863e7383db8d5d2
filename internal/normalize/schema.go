package normalize

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/muurk/mastertherm/internal/api"
)

// DeviceInfo is the canonical installation record. Every field is a string:
// the legacy backend serves strings for all of them, and the canonical form
// keeps that representation so records from either backend generation
// compare equal.
type DeviceInfo struct {
	Ref api.DeviceRef `json:"device"`

	// Name and Surname identify the installation owner
	Name    string `json:"name"`
	Surname string `json:"surname"`

	Country  string `json:"country"`
	Language string `json:"language"`
	Place    string `json:"place"`

	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`

	// PumpType is the vendor's heat pump model family, e.g. "AQI" or "BAI"
	PumpType   string `json:"hp_type"`
	Regulation string `json:"regulation"`
	Expansion  string `json:"exp"`
	Output     string `json:"output"`

	Reservation string `json:"reservation"`
	Notes       string `json:"notes"`
}

// Kind selects which value field of a Point is meaningful.
type Kind int

const (
	KindBool Kind = iota + 1
	KindFloat
	KindInt
)

// Point is one named reading decoded from a register. Exactly one of the
// value fields is set, selected by Kind.
type Point struct {
	// Register is the source register name, e.g. "A_3"
	Register string

	Kind  Kind
	Bool  bool
	Float float64
	Int   int64
}

// Value returns the typed reading as a bare value.
func (p Point) Value() any {
	switch p.Kind {
	case KindBool:
		return p.Bool
	case KindFloat:
		return p.Float
	case KindInt:
		return p.Int
	}
	return nil
}

func (p Point) String() string {
	switch p.Kind {
	case KindBool:
		return strconv.FormatBool(p.Bool)
	case KindFloat:
		return strconv.FormatFloat(p.Float, 'f', -1, 64)
	case KindInt:
		return strconv.FormatInt(p.Int, 10)
	}
	return ""
}

// MarshalJSON emits the bare typed value, so a point map serializes as
// {"on": true, "outside_temp": 4.2} rather than as the union struct.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value())
}

// Pad is one named heating/cooling circuit configured on the controller.
type Pad struct {
	Name string `json:"name"`
	On   bool   `json:"on"`
}

// RegisterDump maps register names to their raw wire values, uninterpreted.
type RegisterDump map[string]string

// DeviceData is the canonical per-fetch snapshot for one device.
type DeviceData struct {
	Ref       api.DeviceRef `json:"device"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Points holds the readings named by the read map
	Points map[string]Point `json:"points"`

	// Pads holds the configured circuits; circuits with no name are omitted
	Pads map[string]Pad `json:"pads"`

	// Registers is the full raw snapshot the points were decoded from
	Registers RegisterDump `json:"registers"`

	// Unmapped holds registers present on the wire but not named by any
	// table, preserved so new data points can be discovered
	Unmapped RegisterDump `json:"unmapped"`
}
