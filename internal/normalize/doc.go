// Package normalize converts adapter-specific raw payloads into the
// canonical, version-independent records the public client serves.
//
// Device info is mapped through a per-generation field table onto one
// all-string record. Register snapshots are decoded through a static read
// map (named points), the pad tables (circuit names spelled from
// character-index registers), and everything the tables do not claim is
// preserved under Unmapped so no wire data is silently lost. Decoding is
// strict: a present value the tables cannot interpret fails with
// ConversionError rather than producing a guessed default.
package normalize
