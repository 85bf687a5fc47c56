package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/dante-control/internal/logging"
	"github.com/muurk/dante-control/internal/monitor"
	"github.com/muurk/dante-control/internal/ui"
)

// Device listing flags
var (
	listTime      float64
	listDetailed  bool
	printInterval float64
	monDetailed   bool
	listenAddr    string
)

func init() {
	listDevicesCmd.Flags().Float64VarP(&listTime, "time", "t", 5, "Seconds to wait for mDNS before printing devices")
	listDevicesCmd.Flags().BoolVarP(&listDetailed, "detailed", "d", false, "Print detailed info instead of just device names")

	monitorCmd.Flags().Float64VarP(&printInterval, "print-interval", "p", 2, "Seconds between refreshes")
	monitorCmd.Flags().BoolVarP(&monDetailed, "detailed", "d", false, "Print detailed info instead of just device names")
	monitorCmd.Flags().StringVar(&listenAddr, "listen", "", "Also serve a websocket device feed on this address (e.g. 127.0.0.1:8080)")

	rootCmd.AddCommand(listDevicesCmd)
	rootCmd.AddCommand(monitorCmd)
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// sleepContext waits for d or until ctx is done. It reports false if ctx ended first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// announce prints a progress line unless -q was given
func announce(p *ui.Printer, msg string) {
	if !quiet {
		p.Println(msg)
	}
}

var listDevicesCmd = &cobra.Command{
	Use:   "list-devices",
	Short: "List the Dante devices on the local network",
	Long: `Browse the Dante mDNS services for a fixed time and print every device found.

With --detailed each device is followed by its addresses, model, advertised
transmitter channels and known receiver channels.`,
	Example: `  # Wait the default 5 seconds
  dante-cli list-devices

  # Quick scan with details
  dante-cli list-devices -t 2 -d`,
	Args: cobra.NoArgs,
	RunE: runListDevices,
}

func runListDevices(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	wait := seconds(cmd, "time", listTime, cfg.Preferences.DiscoveryDuration())

	mgr := newManager()
	if err := mgr.StartDiscovery(); err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}
	defer mgr.StopDiscovery()

	printer := ui.NewPrinter(os.Stdout, plain)
	if printer.Plain() {
		ctx, cancel := signalContext()
		defer cancel()

		announce(printer, "Discovering Devices...")
		if !sleepContext(ctx, wait) {
			return nil
		}
	} else {
		cancelled, err := ui.RunScan(mgr.Registry(), wait)
		if err != nil {
			return err
		}
		if cancelled {
			return nil
		}
	}

	logging.Debug("Discovery finished",
		zap.Duration("wait", wait),
		zap.Any("stats", mgr.Stats()),
	)

	printer.PrintDevices(mgr.DeviceDescriptions(), listDetailed)
	return nil
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Continuously show the Dante devices on the network",
	Long: `Keep discovery running and print the device list every print interval.

In a terminal the list is redrawn in place; with --plain (or when output is
piped) the full list is printed again after each interval.

--listen additionally serves the device list as a websocket feed at /ws
and as JSON at /devices.`,
	Example: `  # Interactive view refreshed every 2 seconds
  dante-cli monitor

  # Plain output every 5 seconds with details
  dante-cli monitor -p 5 -d --plain

  # Serve a JSON feed for other tools
  dante-cli monitor --listen 127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	interval := seconds(cmd, "print-interval", printInterval, cfg.Preferences.PrintDuration())
	if interval <= 0 {
		return fmt.Errorf("print interval must be positive")
	}

	mgr := newManager()
	if err := mgr.StartDiscovery(); err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}
	defer mgr.StopDiscovery()

	if listenAddr != "" {
		feed := monitor.New(mgr.Registry(), monitor.Config{Addr: listenAddr, Interval: interval})
		if err := feed.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = feed.Shutdown(ctx)
		}()
		fmt.Fprintf(os.Stderr, "Serving device feed on ws://%s/ws\n", feed.Addr())
	}

	printer := ui.NewPrinter(os.Stdout, plain)
	if !printer.Plain() {
		return ui.RunMonitor(mgr.Registry(), interval, monDetailed)
	}

	ctx, cancel := signalContext()
	defer cancel()

	announce(printer, "Starting monitoring")
	for sleepContext(ctx, interval) {
		printer.Println("=================================")
		ui.PrintDeviceList(os.Stdout, mgr.DeviceDescriptions(), ui.ListOptions{
			Details: monDetailed,
			Plain:   true,
		})
	}
	return nil
}
