package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/muurk/mastertherm/internal/api"
)

// DeviceInfoFrom maps a raw adapter info payload onto the canonical record.
// The owner name and pump type must be present; every other field falls back
// to the empty string when the backend omits it.
func DeviceInfoFrom(raw *api.RawDeviceInfo) (*DeviceInfo, error) {
	keys := v1InfoKeys
	if raw.Version == api.V2 {
		keys = v2InfoKeys
	}

	info := &DeviceInfo{Ref: raw.Ref}
	var err error
	if info.Name, err = requiredField(raw.Fields, keys.name); err != nil {
		return nil, err
	}
	if info.Surname, err = requiredField(raw.Fields, keys.surname); err != nil {
		return nil, err
	}
	if info.PumpType, err = requiredField(raw.Fields, keys.pumpType); err != nil {
		return nil, err
	}
	if info.Country, err = optionalField(raw.Fields, keys.country); err != nil {
		return nil, err
	}
	if info.Language, err = optionalField(raw.Fields, keys.language); err != nil {
		return nil, err
	}
	if info.Place, err = optionalField(raw.Fields, keys.place); err != nil {
		return nil, err
	}
	if info.Latitude, err = optionalField(raw.Fields, keys.latitude); err != nil {
		return nil, err
	}
	if info.Longitude, err = optionalField(raw.Fields, keys.longitude); err != nil {
		return nil, err
	}
	if info.Regulation, err = optionalField(raw.Fields, keys.regulation); err != nil {
		return nil, err
	}
	if info.Expansion, err = optionalField(raw.Fields, keys.expansion); err != nil {
		return nil, err
	}
	if info.Output, err = optionalField(raw.Fields, keys.output); err != nil {
		return nil, err
	}
	if info.Reservation, err = optionalField(raw.Fields, keys.reservation); err != nil {
		return nil, err
	}
	if info.Notes, err = optionalField(raw.Fields, keys.notes); err != nil {
		return nil, err
	}
	return info, nil
}

// DeviceDataFrom decodes a raw register snapshot into the canonical form:
// named points per the read map, configured pads, and the leftover registers
// in the Unmapped bucket. Points whose register is absent from the snapshot
// are simply not emitted; a present but uninterpretable value fails with
// ConversionError.
func DeviceDataFrom(raw *api.RawDeviceData) (*DeviceData, error) {
	data := &DeviceData{
		Ref:       raw.Ref,
		UpdatedAt: time.Unix(raw.Timestamp, 0).UTC(),
		Points:    make(map[string]Point, len(readMap)),
		Pads:      make(map[string]Pad),
		Registers: cloneDump(raw.Registers),
		Unmapped:  RegisterDump{},
	}

	named := make(map[string]bool, len(readMap)+len(padMap)*7)
	for _, rp := range readMap {
		named[rp.register] = true
		value, ok := raw.Registers[rp.register]
		if !ok {
			continue
		}
		point, err := decodePoint(rp.key, rp.register, value)
		if err != nil {
			return nil, err
		}
		data.Points[rp.key] = point
	}

	for _, circuit := range padMap {
		for _, reg := range circuit.name {
			named[reg] = true
		}
		named[circuit.enable] = true

		pad, configured, err := decodePad(circuit, raw.Registers)
		if err != nil {
			return nil, err
		}
		if configured {
			data.Pads[circuit.id] = pad
		}
	}

	for reg, value := range raw.Registers {
		if !named[reg] {
			data.Unmapped[reg] = value
		}
	}
	return data, nil
}

// RegistersFrom returns the raw snapshot as a version-independent dump,
// values carried through uninterpreted.
func RegistersFrom(raw *api.RawDeviceData) RegisterDump {
	return cloneDump(raw.Registers)
}

func cloneDump(registers map[string]string) RegisterDump {
	dump := make(RegisterDump, len(registers))
	for reg, value := range registers {
		dump[reg] = value
	}
	return dump
}

func decodePoint(key, register, raw string) (Point, error) {
	point := Point{Register: register}
	switch {
	case strings.HasPrefix(register, "D_"):
		on, ok := parseDigital(raw)
		if !ok {
			return Point{}, &ConversionError{Key: key, RawValue: raw}
		}
		point.Kind = KindBool
		point.Bool = on
	case strings.HasPrefix(register, "A_"):
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Point{}, &ConversionError{Key: key, RawValue: raw}
		}
		point.Kind = KindFloat
		point.Float = value
	case strings.HasPrefix(register, "I_"):
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Point{}, &ConversionError{Key: key, RawValue: raw}
		}
		point.Kind = KindInt
		point.Int = value
	default:
		return Point{}, &ConversionError{Key: key, RawValue: raw}
	}
	return point, nil
}

// parseDigital interprets a digital register value. The backends serve
// exactly "0" or "1"; anything else is drift worth surfacing.
func parseDigital(raw string) (on bool, ok bool) {
	switch raw {
	case "0":
		return false, true
	case "1":
		return true, true
	}
	return false, false
}

// decodePad spells a circuit's name from its character-index registers.
// Missing name registers contribute nothing; a circuit whose spelled name
// is empty is reported as not configured.
func decodePad(circuit padCircuit, registers map[string]string) (Pad, bool, error) {
	var name strings.Builder
	for _, reg := range circuit.name {
		raw, ok := registers[reg]
		if !ok {
			continue
		}
		index, err := strconv.Atoi(raw)
		if err != nil || index < 0 || index >= len(charMap) {
			return Pad{}, false, &ConversionError{Key: reg, RawValue: raw}
		}
		name.WriteString(charMap[index])
	}
	if name.Len() == 0 {
		return Pad{}, false, nil
	}

	pad := Pad{Name: name.String()}
	if raw, ok := registers[circuit.enable]; ok {
		on, valid := parseDigital(raw)
		if !valid {
			return Pad{}, false, &ConversionError{Key: circuit.enable, RawValue: raw}
		}
		pad.On = on
	}
	return pad, true, nil
}

func requiredField(fields map[string]any, key string) (string, error) {
	value, ok := fields[key]
	if !ok || value == nil {
		return "", &ConversionError{Key: key, RawValue: value}
	}
	return fieldString(key, value)
}

func optionalField(fields map[string]any, key string) (string, error) {
	value, ok := fields[key]
	if !ok || value == nil {
		return "", nil
	}
	return fieldString(key, value)
}

// fieldString coerces one wire value onto the canonical string form. The
// current backend serves native JSON numbers and booleans where the legacy
// one serves strings; folding both onto strings keeps the generations
// indistinguishable to callers.
func fieldString(key string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	}
	return "", &ConversionError{Key: key, RawValue: value}
}
