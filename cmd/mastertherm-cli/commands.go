package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/mastertherm"
	"github.com/muurk/mastertherm/internal/config"
	"github.com/muurk/mastertherm/internal/tui"
)

var (
	flagAPIVersion    string
	flagUser          string
	flagPassword      string
	flagHideSensitive bool
	flagFormat        string
	flagSpacing       time.Duration
	flagTimeout       time.Duration
	flagConfigPath    string
	flagBaseURL       string
	flagPollInterval  time.Duration

	// Remembered for the error epilogue in main, where no settings
	// object is in scope anymore.
	resolvedAPIVersion string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagAPIVersion, "api-ver", "a", "", "cloud generation of the installation (v1, v2)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "cloud account username")
	rootCmd.PersistentFlags().StringVarP(&flagPassword, "password", "p", "", "cloud account password (prefer MASTERTHERM_PASSWORD)")
	rootCmd.PersistentFlags().BoolVar(&flagHideSensitive, "hide-sensitive", false, "mask identifying values in output")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "", "output format (table, json)")
	rootCmd.PersistentFlags().DurationVar(&flagSpacing, "spacing", 0, "minimum gap between cloud requests")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "per-request timeout")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "settings file (default is the per-user config directory)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "override the backend base URL (for tools/mockcloud)")

	watchCmd.Flags().DurationVar(&flagPollInterval, "poll", 0, "refresh period for the dashboard")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(registersCmd)
	rootCmd.AddCommand(watchCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the heat pump devices of the account",
	Long: `List every heat pump device registered to the cloud account.

Each line shows the device id (module and unit), the installation name and
the unit label. The device id is what the other commands take as argument.`,
	Example: `  # Devices of a 2022+ installation
  mastertherm-cli devices -a v2 -u user@example.com

  # JSON output for scripting
  mastertherm-cli devices -f json`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

var infoCmd = &cobra.Command{
	Use:   "info <device-id>",
	Short: "Show the installation record of a device",
	Long: `Fetch the installation record of one device: owner, location, pump type,
regulation and configuration details. Values come back in the same shape
for both cloud generations.`,
	Example: `  mastertherm-cli info 10021_1 -a v2

  # Mask owner and location before sharing the output
  mastertherm-cli info 10021_1 --hide-sensitive`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

var dataCmd = &cobra.Command{
	Use:   "data <device-id>",
	Short: "Fetch a decoded data snapshot of a device",
	Long: `Fetch the current state of one device and print the decoded data points:
operating state, temperatures, counters and the configured pad circuits.

Registers without a known meaning are counted but not listed; use the
registers command to inspect them.`,
	Example: `  mastertherm-cli data 10021_1 -a v2

  mastertherm-cli data 1234_1 -a v1 -f json`,
	Args: cobra.ExactArgs(1),
	RunE: runData,
}

var registersCmd = &cobra.Command{
	Use:   "registers <device-id>",
	Short: "Dump the raw register snapshot of a device",
	Long: `Fetch the current state of one device and print every register the cloud
reported, undecoded. Useful when mapping registers that the decoded view
does not cover yet.`,
	Example: `  mastertherm-cli registers 10021_1 -a v2

  # Diff two snapshots taken a minute apart
  mastertherm-cli registers 10021_1 > before.txt
  sleep 60
  mastertherm-cli registers 10021_1 > after.txt
  diff before.txt after.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runRegisters,
}

var watchCmd = &cobra.Command{
	Use:   "watch [device-id]",
	Short: "Watch devices in a live terminal dashboard",
	Long: `Open a terminal dashboard that refreshes the state of the account's
devices periodically. Without an argument every device of the account is
watched; with a device id only that one.

Refreshes after the first snapshot are incremental: only registers that
changed since the previous poll travel over the network.

Keys:
  tab/shift+tab  switch device
  r              refresh now
  q              quit`,
	Example: `  mastertherm-cli watch -a v2

  # One device, polled every 30 seconds
  mastertherm-cli watch 10021_1 --poll 30s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

// resolveSettings layers the effective configuration: defaults, then the
// settings file, then environment variables, then explicitly set flags.
func resolveSettings(cmd *cobra.Command) (*config.Settings, error) {
	var (
		settings *config.Settings
		err      error
	)
	if flagConfigPath != "" {
		settings, err = config.LoadFrom(flagConfigPath)
	} else {
		settings, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-ver") {
		settings.APIVersion = flagAPIVersion
	}
	if flags.Changed("user") {
		settings.Username = flagUser
	}
	if flags.Changed("password") {
		settings.Password = flagPassword
	}
	if flags.Changed("hide-sensitive") {
		settings.HideSensitive = flagHideSensitive
	}
	if flags.Changed("format") {
		settings.Format = flagFormat
	}
	if flags.Changed("spacing") {
		settings.RequestSpacing = config.Duration(flagSpacing)
	}
	if flags.Changed("timeout") {
		settings.Timeout = config.Duration(flagTimeout)
	}
	if flags.Changed("poll") {
		settings.PollInterval = config.Duration(flagPollInterval)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	resolvedAPIVersion = settings.APIVersion
	return settings, nil
}

// ensurePassword prompts on the terminal when no password arrived through
// flags, environment or dotenv. The prompt never echoes.
func ensurePassword(settings *config.Settings) error {
	if settings.Password != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("no password given: set MASTERTHERM_PASSWORD or use --password")
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", settings.Username)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	settings.Password = strings.TrimSpace(string(raw))
	if settings.Password == "" {
		return fmt.Errorf("no password given")
	}
	return nil
}

func newClient(cmd *cobra.Command) (*mastertherm.Client, *config.Settings, error) {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	if settings.Username == "" {
		return nil, nil, fmt.Errorf("no username given: set MASTERTHERM_USERNAME, use --user, or add it to the settings file")
	}
	if err := ensurePassword(settings); err != nil {
		return nil, nil, err
	}

	apiVersion, err := mastertherm.ParseVersion(settings.APIVersion)
	if err != nil {
		return nil, nil, err
	}
	client, err := mastertherm.NewClient(settings.Username, settings.Password, apiVersion)
	if err != nil {
		return nil, nil, err
	}
	client.SetRequestSpacing(settings.RequestSpacing.Std())
	client.SetTimeout(settings.Timeout.Std())
	client.SetHideSensitive(settings.HideSensitive)
	if flagBaseURL != "" {
		client.SetBaseURL(flagBaseURL)
	}
	return client, settings, nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	client, settings, err := newClient(cmd)
	if err != nil {
		return err
	}

	devices, err := client.ListDevices(context.Background())
	if err != nil {
		return err
	}

	if settings.Format == config.FormatJSON {
		return printJSON(devices)
	}

	if len(devices) == 0 {
		fmt.Println("No devices registered for this account.")
		return nil
	}
	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for _, d := range devices {
		fmt.Printf("  %-12s %s", d.ID(), d.ModuleName)
		if d.UnitName != "" {
			fmt.Printf(" (%s)", d.UnitName)
		}
		fmt.Println()
	}
	fmt.Println("\nUse 'mastertherm-cli data <device-id>' to fetch a snapshot.")
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	ref, err := mastertherm.ParseDeviceID(args[0])
	if err != nil {
		return err
	}
	client, settings, err := newClient(cmd)
	if err != nil {
		return err
	}

	info, err := client.GetDeviceInfo(context.Background(), ref)
	if err != nil {
		return err
	}

	if settings.Format == config.FormatJSON {
		return printJSON(info)
	}

	fmt.Printf("Device:      %s\n", info.Ref.ID())
	fmt.Printf("Owner:       %s %s\n", info.Name, info.Surname)
	fmt.Printf("Location:    %s\n", formatLocation(info))
	fmt.Printf("Language:    %s\n", info.Language)
	fmt.Printf("Pump type:   %s\n", info.PumpType)
	fmt.Printf("Regulation:  %s\n", info.Regulation)
	fmt.Printf("Expansion:   %s\n", info.Expansion)
	fmt.Printf("Output:      %s\n", info.Output)
	fmt.Printf("Reservation: %s\n", info.Reservation)
	if info.Notes != "" {
		fmt.Printf("Notes:       %s\n", info.Notes)
	}
	return nil
}

func runData(cmd *cobra.Command, args []string) error {
	ref, err := mastertherm.ParseDeviceID(args[0])
	if err != nil {
		return err
	}
	client, settings, err := newClient(cmd)
	if err != nil {
		return err
	}

	data, err := client.GetDeviceData(context.Background(), ref)
	if err != nil {
		return err
	}

	if settings.Format == config.FormatJSON {
		return printJSON(data)
	}

	fmt.Printf("Device %s, updated %s\n", data.Ref.ID(), data.UpdatedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Printf("\nPoints (%d):\n", len(data.Points))
	for _, name := range sortedPointNames(data.Points) {
		p := data.Points[name]
		fmt.Printf("  %-26s %-12s %s\n", name, p.String(), p.Register)
	}

	if len(data.Pads) > 0 {
		fmt.Printf("\nPad circuits (%d):\n", len(data.Pads))
		for _, id := range sortedPadIDs(data.Pads) {
			pad := data.Pads[id]
			state := "off"
			if pad.On {
				state = "on"
			}
			fmt.Printf("  %-6s %-8s %s\n", id, pad.Name, state)
		}
	}

	if n := len(data.Unmapped); n > 0 {
		fmt.Printf("\n%d register(s) without a known meaning. Use 'mastertherm-cli registers %s' to inspect them.\n", n, data.Ref.ID())
	}
	return nil
}

func runRegisters(cmd *cobra.Command, args []string) error {
	ref, err := mastertherm.ParseDeviceID(args[0])
	if err != nil {
		return err
	}
	client, settings, err := newClient(cmd)
	if err != nil {
		return err
	}

	dump, err := client.GetDeviceRegisters(context.Background(), ref)
	if err != nil {
		return err
	}

	if settings.Format == config.FormatJSON {
		return printJSON(dump)
	}

	fmt.Printf("%d register(s):\n", len(dump))
	for _, name := range sortedRegisterNames(dump) {
		fmt.Printf("  %-8s %s\n", name, dump[name])
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, settings, err := newClient(cmd)
	if err != nil {
		return err
	}

	var refs []mastertherm.DeviceRef
	if len(args) == 1 {
		ref, err := mastertherm.ParseDeviceID(args[0])
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}

	model := tui.NewWatchModel(client, refs, settings.PollInterval.Std())
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func formatLocation(info *mastertherm.DeviceInfo) string {
	var b strings.Builder
	b.WriteString(info.Place)
	if info.Country != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(info.Country)
	}
	if info.Latitude != "" && info.Longitude != "" {
		fmt.Fprintf(&b, " (%s, %s)", info.Latitude, info.Longitude)
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

func sortedPointNames(points map[string]mastertherm.Point) []string {
	names := make([]string, 0, len(points))
	for name := range points {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedPadIDs(pads map[string]mastertherm.Pad) []string {
	ids := make([]string, 0, len(pads))
	for id := range pads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// sortedRegisterNames orders registers by prefix and numeric suffix so that
// A_2 comes before A_10. Names without a numeric suffix sort last.
func sortedRegisterNames(dump mastertherm.RegisterDump) []string {
	names := make([]string, 0, len(dump))
	for name := range dump {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, ni, oki := splitRegister(names[i])
		pj, nj, okj := splitRegister(names[j])
		if oki && okj {
			if pi != pj {
				return pi < pj
			}
			return ni < nj
		}
		if oki != okj {
			return oki
		}
		return names[i] < names[j]
	})
	return names
}

func splitRegister(name string) (prefix string, num int, ok bool) {
	idx := strings.LastIndexByte(name, '_')
	if idx <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return name[:idx], n, true
}
