package normalize

import (
	"errors"
	"fmt"
)

// ConversionError reports a raw value the normalization tables could not
// interpret. It is never produced for merely absent fields; only a present
// value of an unexpected shape raises it.
type ConversionError struct {
	// Key is the canonical data point key, or the register name when the
	// value has no canonical key of its own
	Key string

	// RawValue is the value as the adapter delivered it
	RawValue any
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("Conversion Error: unexpected value %v for %q", e.RawValue, e.Key)
}

// IsConversionError checks if an error is a ConversionError.
func IsConversionError(err error) bool {
	var convErr *ConversionError
	return errors.As(err, &convErr)
}
