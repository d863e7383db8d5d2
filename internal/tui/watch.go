package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/mastertherm"
)

// Message types for async operations
type devicesLoadedMsg struct {
	devices []mastertherm.Device
	err     error
}

type snapshotMsg struct {
	id   string
	data *mastertherm.DeviceData
	err  error
}

type pollTickMsg time.Time

// deviceState is the dashboard's view of one watched device. States are
// held by pointer so snapshot results can land while the model value moves
// through the update loop.
type deviceState struct {
	Device    mastertherm.Device
	Data      *mastertherm.DeviceData
	Err       string
	Fetching  bool
	FetchedAt time.Time
}

// watchKeyMap defines key bindings for the watch dashboard
type watchKeyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Refresh, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev},
		{k.Refresh, k.Quit},
	}
}

// WatchModel is the live dashboard over one cloud account. The first
// snapshot of every device is a full fetch; every poll after that is an
// incremental refresh merged over the previous snapshot.
type WatchModel struct {
	Client   *mastertherm.Client
	Interval time.Duration

	Devices  []*deviceState
	Selected int

	// Loading is true while the account's device listing is in flight
	Loading bool
	LoadErr string

	NextPoll time.Time

	Width  int
	Height int

	Spinner spinner.Model
	Help    help.Model
	Keys    watchKeyMap
}

// NewWatchModel creates a dashboard for the given client. With refs the
// dashboard watches exactly those devices; without it watches every device
// of the account.
func NewWatchModel(client *mastertherm.Client, refs []mastertherm.DeviceRef, interval time.Duration) WatchModel {
	if interval <= 0 {
		interval = time.Minute
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	h := help.New()

	keys := watchKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "right"),
			key.WithHelp("tab", "next device"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "left"),
			key.WithHelp("shift+tab", "previous device"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	m := WatchModel{
		Client:   client,
		Interval: interval,
		Loading:  len(refs) == 0,
		Spinner:  s,
		Help:     h,
		Keys:     keys,
	}
	for _, ref := range refs {
		m.Devices = append(m.Devices, &deviceState{
			Device: mastertherm.Device{DeviceRef: ref},
		})
	}
	if !m.Loading {
		m.NextPoll = time.Now().Add(interval)
	}
	return m
}

// Init starts the spinner and either the device listing or, when devices
// were named explicitly, the first round of snapshots.
func (m WatchModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.Spinner.Tick}
	if m.Loading {
		cmds = append(cmds, m.loadDevices)
	} else {
		cmds = append(cmds, m.fetchAll()...)
		cmds = append(cmds, m.schedulePoll())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width

	case devicesLoadedMsg:
		m.Loading = false
		if msg.err != nil {
			m.LoadErr = mastertherm.GetShortErrorMessage(msg.err)
			return m, nil
		}
		m.LoadErr = ""
		m.Devices = m.Devices[:0]
		for _, device := range msg.devices {
			m.Devices = append(m.Devices, &deviceState{Device: device})
		}
		if m.Selected >= len(m.Devices) {
			m.Selected = 0
		}
		m.NextPoll = time.Now().Add(m.Interval)
		cmds := m.fetchAll()
		cmds = append(cmds, m.schedulePoll())
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		for _, st := range m.Devices {
			if st.Device.ID() != msg.id {
				continue
			}
			st.Fetching = false
			st.FetchedAt = time.Now()
			if msg.err != nil {
				st.Err = mastertherm.GetShortErrorMessage(msg.err)
			} else {
				st.Err = ""
				st.Data = msg.data
			}
			break
		}

	case pollTickMsg:
		m.NextPoll = time.Now().Add(m.Interval)
		cmds := m.fetchAll()
		cmds = append(cmds, m.schedulePoll())
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey handles keyboard input
func (m WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Next):
		if len(m.Devices) > 1 {
			m.Selected = (m.Selected + 1) % len(m.Devices)
		}

	case key.Matches(msg, m.Keys.Prev):
		if len(m.Devices) > 1 {
			m.Selected = (m.Selected + len(m.Devices) - 1) % len(m.Devices)
		}

	case key.Matches(msg, m.Keys.Refresh):
		if m.LoadErr != "" {
			m.LoadErr = ""
			m.Loading = true
			return m, m.loadDevices
		}
		return m, tea.Batch(m.fetchAll()...)
	}
	return m, nil
}

// loadDevices lists the account's devices. Runs as a tea command.
func (m WatchModel) loadDevices() tea.Msg {
	devices, err := m.Client.ListDevices(context.Background())
	return devicesLoadedMsg{devices: devices, err: err}
}

// fetchAll starts a snapshot fetch for every device not already fetching
func (m WatchModel) fetchAll() []tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.Devices))
	for _, st := range m.Devices {
		if st.Fetching {
			continue
		}
		st.Fetching = true
		cmds = append(cmds, m.fetchSnapshot(st.Device, st.Data))
	}
	return cmds
}

// fetchSnapshot fetches one device: a full snapshot the first time, an
// incremental refresh once a previous snapshot exists.
func (m WatchModel) fetchSnapshot(device mastertherm.Device, prev *mastertherm.DeviceData) tea.Cmd {
	client := m.Client
	return func() tea.Msg {
		var (
			data *mastertherm.DeviceData
			err  error
		)
		if prev != nil {
			data, err = client.RefreshDeviceData(context.Background(), prev)
		} else {
			data, err = client.GetDeviceData(context.Background(), device.DeviceRef)
		}
		return snapshotMsg{id: device.ID(), data: data, err: err}
	}
}

// schedulePoll arms the next poll tick
func (m WatchModel) schedulePoll() tea.Cmd {
	return tea.Tick(m.Interval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

// View renders the dashboard
func (m WatchModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}
	height := m.Height
	if height == 0 {
		height = 24
	}

	var content string
	switch {
	case m.Loading:
		content = "\n " + m.Spinner.View() + " Loading devices from the cloud account..."
	case m.LoadErr != "":
		content = m.renderLoadError()
	case len(m.Devices) == 0:
		content = "\n" + SubtitleStyle.Render("No devices registered for this account.")
	default:
		content = m.renderDashboard(width)
	}

	return RenderAppFrame(content, m.Help.View(m.Keys), width, height)
}

func (m WatchModel) renderLoadError() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(RenderError(m.LoadErr))
	b.WriteString("\n\n")
	b.WriteString(SubtitleStyle.Render("Press r to retry, q to quit."))
	return b.String()
}

func (m WatchModel) renderDashboard(width int) string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	st := m.Devices[m.Selected]
	b.WriteString(m.renderDevice(st, width))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar(st))
	return b.String()
}

func (m WatchModel) renderTabs() string {
	tabs := make([]string, 0, len(m.Devices))
	for i, st := range m.Devices {
		label := st.Device.ID()
		if st.Device.ModuleName != "" {
			label = fmt.Sprintf("%s %s", st.Device.ID(), st.Device.ModuleName)
		}
		if i == m.Selected {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m WatchModel) renderDevice(st *deviceState, width int) string {
	if st.Data == nil {
		if st.Err != "" {
			return RenderError(st.Err)
		}
		return " " + m.Spinner.View() + " Fetching first snapshot..."
	}

	data := st.Data

	var b strings.Builder
	b.WriteString(m.renderStateLine(data))
	b.WriteString("\n\n")
	b.WriteString(m.renderTemperatures(data))

	if counters := m.renderCounters(data); counters != "" {
		b.WriteString("\n")
		b.WriteString(counters)
	}
	if pads := m.renderPads(data); pads != "" {
		b.WriteString("\n")
		b.WriteString(pads)
	}
	if st.Err != "" {
		b.WriteString("\n")
		b.WriteString(AlarmStyle.Render("last refresh failed: ") + st.Err)
		b.WriteString("\n")
	}

	panelWidth := width - 8
	if panelWidth > MaxContentWidth {
		panelWidth = MaxContentWidth
	}
	return PanelStyle.Width(panelWidth).Render(b.String())
}

// stateChips lists the bool points shown as status chips, in display order
var stateChips = []struct {
	key   string
	label string
	alarm bool
}{
	{key: "on", label: "power"},
	{key: "alarm_active", label: "alarm", alarm: true},
	{key: "compressor_running", label: "compressor"},
	{key: "compressor2_running", label: "compressor 2"},
	{key: "circulation_pump_running", label: "pump"},
	{key: "fan_running", label: "fan"},
	{key: "aux_heater_1_running", label: "aux 1"},
	{key: "aux_heater_2_running", label: "aux 2"},
	{key: "dhw_heating", label: "dhw"},
	{key: "defrost_active", label: "defrost"},
	{key: "cooling_mode", label: "cooling"},
	{key: "low_tariff_active", label: "low tariff"},
}

func (m WatchModel) renderStateLine(data *mastertherm.DeviceData) string {
	chips := make([]string, 0, len(stateChips))
	for _, chip := range stateChips {
		p, ok := data.Points[chip.key]
		if !ok || p.Kind != mastertherm.KindBool {
			continue
		}
		switch {
		case p.Bool && chip.alarm:
			chips = append(chips, AlarmStyle.Render("▲ "+chip.label))
		case p.Bool:
			chips = append(chips, OnStyle.Render("● "+chip.label))
		default:
			chips = append(chips, OffStyle.Render("○ "+chip.label))
		}
	}
	return strings.Join(chips, "  ")
}

// tempRows lists the analog points shown in the temperature table, in
// display order. Analog points outside this list follow, name-sorted.
var tempRows = []struct {
	key   string
	label string
}{
	{key: "outside_temp", label: "Outside"},
	{key: "actual_temp", label: "Actual"},
	{key: "requested_temp", label: "Requested"},
	{key: "return_temp", label: "Return"},
	{key: "dhw_current_temp", label: "DHW current"},
	{key: "dhw_required_temp", label: "DHW required"},
}

func (m WatchModel) renderTemperatures(data *mastertherm.DeviceData) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Temperatures"))
	b.WriteString("\n")

	shown := make(map[string]bool, len(tempRows))
	for _, row := range tempRows {
		p, ok := data.Points[row.key]
		if !ok {
			continue
		}
		shown[row.key] = true
		fmt.Fprintf(&b, "  %s %s\n",
			LabelStyle.Render(fmt.Sprintf("%-14s", row.label)),
			ValueStyle.Render(p.String()+" °C"))
	}

	rest := make([]string, 0, len(data.Points))
	for name, p := range data.Points {
		if p.Kind == mastertherm.KindFloat && !shown[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		fmt.Fprintf(&b, "  %s %s\n",
			LabelStyle.Render(fmt.Sprintf("%-14s", name)),
			ValueStyle.Render(data.Points[name].String()))
	}
	return b.String()
}

func (m WatchModel) renderCounters(data *mastertherm.DeviceData) string {
	names := make([]string, 0, len(data.Points))
	for name, p := range data.Points {
		if p.Kind == mastertherm.KindInt {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Counters"))
	b.WriteString("\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s %s\n",
			LabelStyle.Render(fmt.Sprintf("%-24s", name)),
			ValueStyle.Render(data.Points[name].String()))
	}
	return b.String()
}

func (m WatchModel) renderPads(data *mastertherm.DeviceData) string {
	if len(data.Pads) == 0 {
		return ""
	}
	ids := make([]string, 0, len(data.Pads))
	for id := range data.Pads {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Pad circuits"))
	b.WriteString("\n")
	for _, id := range ids {
		pad := data.Pads[id]
		state := OffStyle.Render("off")
		if pad.On {
			state = OnStyle.Render("on")
		}
		fmt.Fprintf(&b, "  %s %-10s %s\n", LabelStyle.Render(id), pad.Name, state)
	}
	return b.String()
}

func (m WatchModel) renderStatusBar(st *deviceState) string {
	parts := []string{fmt.Sprintf("poll every %s", m.Interval)}
	if st.Fetching {
		parts = append(parts, m.Spinner.View()+" refreshing")
	} else if !st.FetchedAt.IsZero() {
		parts = append(parts, "refreshed "+st.FetchedAt.Format("15:04:05"))
	}
	if st.Data != nil {
		parts = append(parts, "snapshot "+st.Data.UpdatedAt.Local().Format("15:04:05"))
		parts = append(parts, fmt.Sprintf("%d points", len(st.Data.Points)))
		parts = append(parts, fmt.Sprintf("%d registers", len(st.Data.Registers)))
	}
	if !m.NextPoll.IsZero() {
		parts = append(parts, "next poll "+m.NextPoll.Format("15:04:05"))
	}
	return StatusBarStyle.Render(strings.Join(parts, " | "))
}
