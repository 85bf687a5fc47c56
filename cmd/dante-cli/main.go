// Dante-cli discovers Dante audio devices and edits their receiver
// subscriptions from the command line.
//
// It browses the netaudio mDNS services to list devices, and sends
// subscription requests straight to a receiver's control port. Batches of
// subscriptions can be applied from a text file.
//
// Usage:
//
//	dante-cli [command] [flags]
//
// See 'dante-cli --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/dante-control/internal/config"
	"github.com/muurk/dante-control/internal/control"
	"github.com/muurk/dante-control/internal/logging"
	"github.com/muurk/dante-control/internal/manager"
	"github.com/muurk/dante-control/internal/version"
)

// errReported marks failures already printed to the user
var errReported = errors.New("command failed")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// Global flags
var (
	quiet      bool
	verbosity  int
	configPath string
	plain      bool
)

// cfg is loaded before every command runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dante-cli",
	Short: "Dante device discovery and subscription control",
	Long: `A command line tool for Dante audio networks.

Lists the Dante devices advertised on the local network and creates or
clears receiver channel subscriptions, one at a time or from a file.

Logging goes to stderr. Use -v / -vv for more detail, -q for errors only,
or set DANTE_LOG_LEVEL.`,
	Version:           version.Version,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(`No command specified. Try "dante-cli help"`)
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/dante-control/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Plain text output without colors or boxes")

	rootCmd.AddCommand(versionCmd)
}

// setup loads the config file and initializes logging
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level := logging.LevelForVerbosity(verbosity, quiet)
	if level == "" {
		level = cfg.Preferences.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	return nil
}

// newManager creates a DeviceManager from the loaded preferences
func newManager() *manager.DeviceManager {
	client := control.NewClient()
	client.SetTimeout(cfg.Preferences.ControlTimeout())
	client.Port = cfg.Preferences.ControlPort

	return manager.New(manager.Options{
		Client:          client,
		Interface:       cfg.Preferences.Interface,
		RefreshInterval: cfg.Preferences.RefreshDuration(),
	})
}

// seconds converts a float seconds flag, falling back to def when unset
func seconds(cmd *cobra.Command, flag string, value float64, def time.Duration) time.Duration {
	if !cmd.Flags().Changed(flag) {
		return def
	}
	return time.Duration(value * float64(time.Second))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dante-cli %s (commit: %s, %s)\n", version.Version, version.Commit, version.Platform())
	},
}
