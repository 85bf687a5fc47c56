package main

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/dante-control/internal/batch"
	"github.com/muurk/dante-control/internal/control"
	"github.com/muurk/dante-control/internal/logging"
	"github.com/muurk/dante-control/internal/manager"
	"github.com/muurk/dante-control/internal/ui"
)

// resolvePoll is how often discovery is checked while waiting for receiver names
const resolvePoll = 100 * time.Millisecond

func init() {
	controlCmd.AddCommand(makeSubscriptionCmd)
	controlCmd.AddCommand(clearSubscriptionCmd)
	controlCmd.AddCommand(fromFileCmd)
	controlCmd.AddCommand(queryChannelsCmd)
	rootCmd.AddCommand(controlCmd)
}

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Create and clear receiver subscriptions",
	Long: `Commands that change or read the routing of Dante receivers.

Supported protocol versions are 4.2.1.3 and 4.4.1.3. Receiver channel
indices start at 0 for 4.2.1.3 and at 1 for 4.4.1.3.

The receiver may be given as an IPv4 address or as an advertised device
name. A name is looked up with mDNS first.`,
}

var makeSubscriptionCmd = &cobra.Command{
	Use:   "make-subscription VERSION TX_DEVICE TX_CHANNEL RECEIVER RX_INDEX",
	Short: "Route a transmitter channel to a receiver channel",
	Example: `  # Route Out3 of Mixer1 to receiver channel 2 of the device at 10.0.0.5
  dante-cli control make-subscription 4.4.1.3 Mixer1 Out3 10.0.0.5 2`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		version, txDevice, txChannel, receiver := args[0], args[1], args[2], args[3]
		rxIndex, err := parseIndex(args[4])
		if err != nil {
			return err
		}

		printer := ui.NewPrinter(os.Stdout, plain)
		if err := control.ValidateSubscription(version, rxIndex, txDevice, txChannel); err != nil {
			printer.PrintError("Subscription failed", err)
			return errReported
		}

		mgr := newManager()
		defer mgr.StopDiscovery()
		if err := awaitReceivers(mgr, receiver); err != nil {
			return err
		}

		if err := mgr.Subscribe(version, receiver, rxIndex, txDevice, txChannel); err != nil {
			printer.PrintError("Subscription failed", err)
			return errReported
		}
		printer.PrintSuccess("Subscription created",
			ui.Detail{Key: "Receiver", Value: fmt.Sprintf("%s channel %d", receiver, rxIndex)},
			ui.Detail{Key: "Transmitter", Value: txChannel + "@" + txDevice},
			ui.Detail{Key: "Version", Value: version},
		)
		return nil
	},
}

var clearSubscriptionCmd = &cobra.Command{
	Use:   "clear-subscription VERSION RECEIVER RX_INDEX",
	Short: "Remove the subscription of a receiver channel",
	Example: `  # Clear receiver channel 0 of a 4.2.1.3 device
  dante-cli control clear-subscription 4.2.1.3 10.0.0.9 0`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		version, receiver := args[0], args[1]
		rxIndex, err := parseIndex(args[2])
		if err != nil {
			return err
		}

		printer := ui.NewPrinter(os.Stdout, plain)
		if err := control.ValidateClear(version, rxIndex); err != nil {
			printer.PrintError("Clear failed", err)
			return errReported
		}

		mgr := newManager()
		defer mgr.StopDiscovery()
		if err := awaitReceivers(mgr, receiver); err != nil {
			return err
		}

		if err := mgr.Clear(version, receiver, rxIndex); err != nil {
			printer.PrintError("Clear failed", err)
			return errReported
		}
		printer.PrintSuccess("Subscription cleared",
			ui.Detail{Key: "Receiver", Value: fmt.Sprintf("%s channel %d", receiver, rxIndex)},
			ui.Detail{Key: "Version", Value: version},
		)
		return nil
	},
}

var fromFileCmd = &cobra.Command{
	Use:   "make-subscriptions-from-file PATH",
	Short: "Apply subscriptions listed in a file",
	Long: `Apply one subscription command per line.

Create a subscription:

  [VERSION|]TX_CHANNEL@TX_DEVICE:RX_INDEX@RECEIVER

Clear a subscription:

  [VERSION|]RX_INDEX@RECEIVER

VERSION may be omitted when default_version is set in the config file.
Blank lines and lines starting with # are ignored. Every line is attempted;
failures are reported at the end and make the command exit non-zero.`,
	Example: `  # routes.txt
  4.2.1.3|Out1@Mixer1:0@10.0.0.9
  4.2.1.3|0@10.0.0.9

  dante-cli control make-subscriptions-from-file routes.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runFromFile,
}

func runFromFile(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	defaultVersion := cfg.Preferences.DefaultVersion

	mgr := newManager()
	defer mgr.StopDiscovery()
	if err := awaitReceivers(mgr, receiversIn(data, defaultVersion)...); err != nil {
		return err
	}

	summary, err := batch.Run(bytes.NewReader(data), defaultVersion, mgr)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout, plain)
	for _, f := range summary.Failed {
		printer.PrintError(fmt.Sprintf("Line %d: %s", f.LineNo, f.Line), f.Err)
	}
	printer.Println(fmt.Sprintf("%d line(s) applied, %d failed", summary.Succeeded, len(summary.Failed)))

	if len(summary.Failed) > 0 {
		return errReported
	}
	return nil
}

var queryChannelsCmd = &cobra.Command{
	Use:   "query-channels VERSION RECEIVER",
	Short: "Read the receiver channel table of a device",
	Example: `  dante-cli control query-channels 4.4.1.3 10.0.0.5`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		version, receiver := args[0], args[1]

		printer := ui.NewPrinter(os.Stdout, plain)
		if err := control.ValidateVersion(version); err != nil {
			printer.PrintError("Query failed", err)
			return errReported
		}

		mgr := newManager()
		defer mgr.StopDiscovery()
		if err := awaitReceivers(mgr, receiver); err != nil {
			return err
		}

		channels, err := mgr.QueryReceiverChannels(version, receiver)
		if err != nil {
			printer.PrintError("Query failed", err)
			return errReported
		}

		for _, ch := range channels {
			route := "(none)"
			if ch.Subscribed() {
				route = ch.TxChannel + "@" + ch.TxDevice
			}
			printer.Println(fmt.Sprintf("%3d  %-16s %s", ch.Index, ch.Name, route))
		}
		return nil
	},
}

func parseIndex(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid receiver channel index %q", s)
	}
	return int(n), nil
}

// receiversIn returns the receiver of every line in a batch file that parses
// and validates. Other lines fail without needing discovery.
func receiversIn(data []byte, defaultVersion string) []string {
	var receivers []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := batch.ParseLine(line, defaultVersion)
		if err != nil {
			continue
		}
		if c.Clear {
			err = control.ValidateClear(c.Version, c.RxIndex)
		} else {
			err = control.ValidateSubscription(c.Version, c.RxIndex, c.TxDevice, c.TxChannel)
		}
		if err == nil {
			receivers = append(receivers, c.Receiver)
		}
	}
	return receivers
}

// awaitReceivers starts discovery when any receiver is given by name and
// waits until every name resolves or the discovery time passes. Names still
// unknown afterwards fail later as unknown devices.
func awaitReceivers(mgr *manager.DeviceManager, receivers ...string) error {
	var names []string
	for _, r := range receivers {
		if net.ParseIP(r) == nil {
			names = append(names, r)
		}
	}
	if len(names) == 0 {
		return nil
	}

	if !mgr.Engine().Running() {
		if err := mgr.StartDiscovery(); err != nil {
			return fmt.Errorf("failed to start discovery: %w", err)
		}
	}

	deadline := time.Now().Add(cfg.Preferences.DiscoveryDuration())
	for time.Now().Before(deadline) {
		if allKnown(mgr, names) {
			return nil
		}
		time.Sleep(resolvePoll)
	}

	logging.Warn("Some receivers were not discovered",
		zap.Strings("names", names),
		zap.Strings("known", mgr.DeviceNames()),
	)
	return nil
}

func allKnown(mgr *manager.DeviceManager, names []string) bool {
	for _, name := range names {
		if _, ok := mgr.Device(name); !ok {
			return false
		}
	}
	return true
}
