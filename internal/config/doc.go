// Package config manages the dante-control preferences file.
//
// The file is YAML and holds defaults for the command line tool: the protocol
// version used by batch lines that omit one, discovery and monitor timings,
// the control request timeout and port, the mDNS interface and the log level.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/dante-control/config.yaml or $HOME/.config/dante-control/config.yaml
//   - macOS: $HOME/.config/dante-control/config.yaml
//   - Windows: %LOCALAPPDATA%\dante-control\config.yaml
//
// A missing file is not an error; Load returns the defaults. Save writes to a
// temporary file and renames it over the target.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.SetTimeout(cfg.Preferences.ControlTimeout())
package config
