// Package discovery finds Dante devices on the local network using mDNS.
//
// Dante devices advertise several DNS-SD service types. The Engine browses
// four of them concurrently and merges what it learns into a
// registry.Registry:
//
//	_netaudio-cmc._udp   control and monitoring (software version, manufacturer)
//	_netaudio-dbc._udp   device broadcast/config
//	_netaudio-arc._udp   audio routing control (subscriptions)
//	_netaudio-chan._udp  one instance per transmitter channel, named Channel@Device
//
// # Discovery Process
//
//  1. Start opens one zeroconf resolver per family and returns immediately
//  2. Each service entry is parsed into a registry.Fact
//  3. Facts are merged into the registry; malformed entries are counted and dropped
//  4. Browsing continues until Stop, which waits for every listener to exit
//
// # Usage Example
//
//	reg := registry.New()
//	engine := discovery.NewEngine(reg)
//	if err := engine.Start(); err != nil {
//	    return err
//	}
//	time.Sleep(5 * time.Second)
//	engine.Stop()
//
//	for _, name := range reg.Names() {
//	    fmt.Println(name)
//	}
//
// # Diagnostics
//
// Dump and PrintRecords browse a single family for a fixed window and report
// the raw records without touching the registry.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// # Testing
//
// Engine.Browse can be replaced with a function that feeds synthetic
// zeroconf.ServiceEntry values, so the engine is testable without multicast.
package discovery
