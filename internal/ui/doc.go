// Package ui renders dante-cli output in the terminal.
//
// Two output modes exist. Styled output uses Lipgloss boxes and colors and is
// chosen when stdout is a terminal. Plain output prints one device name per
// line with an optional description and a separator line, which keeps the
// output usable in pipes and scripts.
//
// The package also provides two Bubble Tea programs:
//
//   - ScanModel: a progress bar shown while list-devices waits for mDNS
//   - MonitorModel: a live device list redrawn every print interval
//
// Both read the device registry through the Snapshotter interface and never
// modify it. MonitorModel compares the registry generation so an unchanged
// registry is not copied again.
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout, plain)
//	p.PrintDevices(mgr.DeviceDescriptions(), details)
//
// Logging is controlled separately via DANTE_LOG_LEVEL and goes to stderr, so
// it never interleaves with the rendered output on stdout.
package ui
