// Package tui implements the live watch dashboard of mastertherm-cli.
//
// The dashboard shows the current state of one or more heat pump devices
// and refreshes it periodically. Built on the Bubble Tea framework, it
// follows the Elm architecture: the model holds all state, Update applies
// messages, View is a pure render of the model.
//
// # Screen Layout
//
// Every frame renders through RenderAppFrame for a consistent chrome:
// application header, bordered content area, context-sensitive footer.
// The content area shows one device at a time:
//   - a tab row when more than one device is watched
//   - status chips for the bool points (power, compressor, alarm, ...)
//   - a temperature table for the analog points
//   - run-time and start counters, pad circuits
//   - a status bar with poll timing and snapshot size
//
// # Polling
//
// The first snapshot of a device is a full fetch. Every later poll is an
// incremental refresh: only registers changed since the previous snapshot
// travel over the network, and the client merges them into a complete new
// snapshot. Fetches run as Bubble Tea commands, one goroutine per device;
// results come back as snapshotMsg values, so all model mutation stays in
// the update loop. The client serializes the underlying requests through
// its request spacing gate.
//
// # Key Bindings
//
//   - tab / shift+tab: switch between watched devices
//   - r: refresh now (or retry a failed device listing)
//   - q: quit
//
// # Framework Components
//
//   - bubbles/spinner: fetch indicators
//   - bubbles/help: the footer key help
//   - lipgloss: styling and layout
package tui
