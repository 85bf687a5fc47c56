package registry

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/muurk/dante-control/internal/protocol"
)

// Family is one of the Dante mDNS service families a device advertises.
type Family int

const (
	// FamilyCMC is the control and monitoring service (_netaudio-cmc._udp)
	FamilyCMC Family = iota + 1
	// FamilyDBC is the device broadcast/config service (_netaudio-dbc._udp)
	FamilyDBC
	// FamilyARC is the audio routing control service (_netaudio-arc._udp)
	FamilyARC
	// FamilyCHAN advertises one transmitter channel per instance (_netaudio-chan._udp)
	FamilyCHAN
)

// Families returns every family in browse order.
func Families() []Family {
	return []Family{FamilyCMC, FamilyDBC, FamilyARC, FamilyCHAN}
}

// String returns the short lowercase family name
func (f Family) String() string {
	switch f {
	case FamilyCMC:
		return "cmc"
	case FamilyDBC:
		return "dbc"
	case FamilyARC:
		return "arc"
	case FamilyCHAN:
		return "chan"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// ParseFamily maps "cmc", "dbc", "arc" or "chan" (any case) to a Family.
func ParseFamily(s string) (Family, error) {
	for _, f := range Families() {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown service family %q", s)
}

// Fact is one piece of information about a device learned from a single
// service advertisement. Empty fields carry no information.
type Fact struct {
	Family Family

	// Name is the advertised device name
	Name string

	// Hostname is the mDNS target host (e.g., "Mixer1.local.")
	Hostname string

	// Addresses are the IPv4 addresses of the advertisement, most preferred first
	Addresses []string

	// Port is the service port for Family
	Port int

	// Text holds the TXT record key/values
	Text map[string]string

	// TransmitterChannel is set for CHAN advertisements
	TransmitterChannel string

	Manufacturer    string
	Model           string
	SoftwareVersion string

	SeenAt time.Time
}

// DeviceRecord is everything known about one Dante device.
type DeviceRecord struct {
	// Name is the advertised device name, unique within the registry
	Name string

	// Hostname is the last advertised mDNS host
	Hostname string

	// PrimaryIP is the IPv4 address control requests are sent to
	PrimaryIP string

	// Addresses lists every IPv4 address seen for the device, in order of appearance
	Addresses []string

	// Ports maps each advertised family to its service port
	Ports map[Family]int

	// ReceiverChannels maps caller-facing receiver indices to their state
	ReceiverChannels map[int]protocol.ReceiverChannel

	// TransmitterChannels is the sorted set of advertised transmitter channel names
	TransmitterChannels []string

	// Metadata holds the TXT records of each family
	Metadata map[Family]map[string]string

	Manufacturer    string
	Model           string
	SoftwareVersion string

	FirstSeen time.Time
	LastSeen  time.Time
}

// String returns a human-readable string representation of the device
func (d *DeviceRecord) String() string {
	return fmt.Sprintf("Dante Device %s at %s (%d tx, %d rx channels)",
		d.Name, d.PrimaryIP, len(d.TransmitterChannels), len(d.ReceiverChannels))
}

// GetMetadata retrieves a TXT value for a family, or returns empty string if not found
func (d *DeviceRecord) GetMetadata(family Family, key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[family][key]
}

// HasTransmitterChannel reports whether the device advertises channel name
func (d *DeviceRecord) HasTransmitterChannel(name string) bool {
	i := sort.SearchStrings(d.TransmitterChannels, name)
	return i < len(d.TransmitterChannels) && d.TransmitterChannels[i] == name
}

// ReceiverChannelList returns the receiver channels ordered by index
func (d *DeviceRecord) ReceiverChannelList() []protocol.ReceiverChannel {
	out := make([]protocol.ReceiverChannel, 0, len(d.ReceiverChannels))
	for _, ch := range d.ReceiverChannels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Clone returns a deep copy of the record
func (d *DeviceRecord) Clone() DeviceRecord {
	c := *d
	c.Addresses = append([]string(nil), d.Addresses...)
	c.TransmitterChannels = append([]string(nil), d.TransmitterChannels...)

	c.Ports = make(map[Family]int, len(d.Ports))
	for k, v := range d.Ports {
		c.Ports[k] = v
	}

	c.ReceiverChannels = make(map[int]protocol.ReceiverChannel, len(d.ReceiverChannels))
	for k, v := range d.ReceiverChannels {
		c.ReceiverChannels[k] = v
	}

	c.Metadata = make(map[Family]map[string]string, len(d.Metadata))
	for f, kv := range d.Metadata {
		m := make(map[string]string, len(kv))
		for k, v := range kv {
			m[k] = v
		}
		c.Metadata[f] = m
	}
	return c
}

func newRecord(name string, seen time.Time) *DeviceRecord {
	return &DeviceRecord{
		Name:             name,
		Ports:            make(map[Family]int),
		ReceiverChannels: make(map[int]protocol.ReceiverChannel),
		Metadata:         make(map[Family]map[string]string),
		FirstSeen:        seen,
		LastSeen:         seen,
	}
}

// apply merges f into d. Scalars are overwritten by non-empty values,
// addresses and channels only ever grow.
func (d *DeviceRecord) apply(f Fact) {
	if f.Hostname != "" {
		d.Hostname = f.Hostname
	}

	for _, addr := range f.Addresses {
		if !containsString(d.Addresses, addr) {
			d.Addresses = append(d.Addresses, addr)
		}
	}
	if len(f.Addresses) > 0 {
		d.PrimaryIP = f.Addresses[0]
	}

	if f.Port > 0 {
		d.Ports[f.Family] = f.Port
	}

	if len(f.Text) > 0 {
		m := d.Metadata[f.Family]
		if m == nil {
			m = make(map[string]string, len(f.Text))
			d.Metadata[f.Family] = m
		}
		for k, v := range f.Text {
			m[k] = v
		}
	}

	if f.TransmitterChannel != "" && !d.HasTransmitterChannel(f.TransmitterChannel) {
		d.TransmitterChannels = append(d.TransmitterChannels, f.TransmitterChannel)
		sort.Strings(d.TransmitterChannels)
	}

	if f.Manufacturer != "" {
		d.Manufacturer = f.Manufacturer
	}
	if f.Model != "" {
		d.Model = f.Model
	}
	if f.SoftwareVersion != "" {
		d.SoftwareVersion = f.SoftwareVersion
	}

	if f.SeenAt.After(d.LastSeen) {
		d.LastSeen = f.SeenAt
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
