package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/dante-control/internal/registry"
)

const (
	// ServiceCMC is the Dante control and monitoring service type
	ServiceCMC = "_netaudio-cmc._udp"

	// ServiceDBC is the Dante device broadcast/config service type
	ServiceDBC = "_netaudio-dbc._udp"

	// ServiceARC is the Dante audio routing control service type
	ServiceARC = "_netaudio-arc._udp"

	// ServiceCHAN is the Dante per-channel transmitter service type
	ServiceCHAN = "_netaudio-chan._udp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is how long one-shot listings browse before reporting
	DefaultScanTimeout = 5 * time.Second

	// DefaultRefreshInterval is how often a running engine restarts each browse
	DefaultRefreshInterval = 10 * time.Second

	// entryBuffer is the per-family channel depth between zeroconf and the engine
	entryBuffer = 32
)

// ServiceType returns the mDNS service type browsed for family
func ServiceType(f registry.Family) string {
	switch f {
	case registry.FamilyCMC:
		return ServiceCMC
	case registry.FamilyDBC:
		return ServiceDBC
	case registry.FamilyARC:
		return ServiceARC
	case registry.FamilyCHAN:
		return ServiceCHAN
	default:
		return ""
	}
}

// BrowseFunc streams service entries of one service type into entries until
// ctx is done. It returns once browsing has started. The entries channel is
// always closed when browsing ends, including after a failed start.
type BrowseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// NewBrowser returns a BrowseFunc backed by a fresh zeroconf resolver per
// browse. If iface is non-empty only that network interface is used.
func NewBrowser(iface string) BrowseFunc {
	return func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
		opts := []zeroconf.ClientOption{zeroconf.SelectIPTraffic(zeroconf.IPv4)}
		if iface != "" {
			ifi, err := net.InterfaceByName(iface)
			if err != nil {
				close(entries)
				return fmt.Errorf("failed to find interface %q: %w", iface, err)
			}
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*ifi}))
		}

		resolver, err := zeroconf.NewResolver(opts...)
		if err != nil {
			close(entries)
			return fmt.Errorf("failed to create mDNS resolver: %w", err)
		}

		// zeroconf closes entries itself once ctx is done or its first query fails
		if err := resolver.Browse(ctx, service, domain, entries); err != nil {
			return fmt.Errorf("failed to browse for %s: %w", service, err)
		}
		return nil
	}
}
