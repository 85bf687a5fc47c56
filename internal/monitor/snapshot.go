package monitor

import (
	"time"

	"github.com/muurk/dante-control/internal/registry"
)

// Source is the read side of the device registry
type Source interface {
	All() []registry.DeviceRecord
	Generation() uint64
}

// Snapshot is one message on the feed
type Snapshot struct {
	Type       string    `json:"type"` // "snapshot"
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	Devices    []Device  `json:"devices"`
}

// Device is the JSON form of a registry.DeviceRecord
type Device struct {
	Name                string            `json:"name"`
	PrimaryIP           string            `json:"primary_ip"`
	Addresses           []string          `json:"addresses,omitempty"`
	Hostname            string            `json:"hostname,omitempty"`
	Manufacturer        string            `json:"manufacturer,omitempty"`
	Model               string            `json:"model,omitempty"`
	SoftwareVersion     string            `json:"software_version,omitempty"`
	Ports               map[string]int    `json:"ports,omitempty"`
	TransmitterChannels []string          `json:"transmitter_channels"`
	ReceiverChannels    []ReceiverChannel `json:"receiver_channels"`
	LastSeen            time.Time         `json:"last_seen"`
}

// ReceiverChannel is one receiver channel and its subscription
type ReceiverChannel struct {
	Index     int    `json:"index"`
	Name      string `json:"name,omitempty"`
	TxDevice  string `json:"tx_device,omitempty"`
	TxChannel string `json:"tx_channel,omitempty"`
	Active    bool   `json:"active"`
}

// BuildSnapshot converts registry records to a feed message
func BuildSnapshot(records []registry.DeviceRecord, generation uint64, now time.Time) Snapshot {
	devices := make([]Device, 0, len(records))
	for _, rec := range records {
		devices = append(devices, newDevice(rec))
	}
	return Snapshot{
		Type:       "snapshot",
		Generation: generation,
		Timestamp:  now,
		Devices:    devices,
	}
}

func newDevice(rec registry.DeviceRecord) Device {
	d := Device{
		Name:                rec.Name,
		PrimaryIP:           rec.PrimaryIP,
		Addresses:           rec.Addresses,
		Hostname:            rec.Hostname,
		Manufacturer:        rec.Manufacturer,
		Model:               rec.Model,
		SoftwareVersion:     rec.SoftwareVersion,
		TransmitterChannels: rec.TransmitterChannels,
		ReceiverChannels:    []ReceiverChannel{},
		LastSeen:            rec.LastSeen,
	}
	if d.TransmitterChannels == nil {
		d.TransmitterChannels = []string{}
	}

	if len(rec.Ports) > 0 {
		d.Ports = make(map[string]int, len(rec.Ports))
		for f, port := range rec.Ports {
			d.Ports[f.String()] = port
		}
	}

	for _, ch := range rec.ReceiverChannelList() {
		d.ReceiverChannels = append(d.ReceiverChannels, ReceiverChannel{
			Index:     ch.Index,
			Name:      ch.Name,
			TxDevice:  ch.TxDevice,
			TxChannel: ch.TxChannel,
			Active:    ch.Active,
		})
	}
	return d
}
