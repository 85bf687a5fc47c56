package manager

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/dante-control/internal/control"
	"github.com/muurk/dante-control/internal/control/devicesim"
	"github.com/muurk/dante-control/internal/discovery"
	"github.com/muurk/dante-control/internal/protocol"
	"github.com/muurk/dante-control/internal/registry"
)

func entry(instance, service, ip string, port int) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, service, discovery.ServiceDomain)
	e.HostName = instance + ".local."
	e.Port = port
	e.AddrIPv4 = []net.IP{net.ParseIP(ip)}
	return e
}

// network advertises Mixer1 (10.0.0.9, two transmitter channels) and Amp (10.0.0.5)
func network(ctx context.Context, service, domain string, out chan<- *zeroconf.ServiceEntry) error {
	var entries []*zeroconf.ServiceEntry
	switch service {
	case discovery.ServiceARC:
		entries = append(entries,
			entry("Mixer1", service, "10.0.0.9", 4440),
			entry("Amp", service, "10.0.0.5", 4440))
	case discovery.ServiceCHAN:
		entries = append(entries,
			entry("Out1@Mixer1", service, "10.0.0.9", 4455),
			entry("Out3@Mixer1", service, "10.0.0.9", 4455))
	}

	go func() {
		defer close(out)
		for _, e := range entries {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return nil
}

func newTestManager(t *testing.T, sim *devicesim.Device) *DeviceManager {
	t.Helper()
	client := control.NewClient()
	client.Transport = sim
	client.Timeout = 200 * time.Millisecond

	m := New(Options{Client: client, Browse: network})
	require.NoError(t, m.StartDiscovery())
	t.Cleanup(m.StopDiscovery)

	require.Eventually(t, func() bool {
		rec, ok := m.Device("Mixer1")
		return ok && len(rec.TransmitterChannels) == 2 && len(m.DeviceNames()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	return m
}

func TestResolveAfterDiscovery(t *testing.T) {
	m := newTestManager(t, devicesim.New("Amp", protocol.Version4413, 8))

	assert.Equal(t, []string{"Amp", "Mixer1"}, m.DeviceNames())

	amp, ok := m.Device("Amp")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", amp.PrimaryIP)

	descs := m.DeviceDescriptions()
	require.Len(t, descs, 2)
	assert.Equal(t, []string{"Out1", "Out3"}, descs[1].TransmitterChannels)

	stats := m.Stats()
	assert.EqualValues(t, 2, stats[registry.FamilyARC].Entries)
}

func TestScenario_SubscribeByName4413(t *testing.T) {
	sim := devicesim.New("Amp", protocol.Version4413, 8)
	sim.AddTransmitter("Mixer1", "Out1", "Out3")
	m := newTestManager(t, sim)

	require.NoError(t, m.MakeSubscriptionByName("4.4.1.3", "Amp", 2, "Mixer1", "Out3"))

	ch, _ := sim.Channel(2)
	assert.Equal(t, "Mixer1", ch.TxDevice)
	assert.Equal(t, "Out3", ch.TxChannel)

	amp, _ := m.Device("Amp")
	assert.Equal(t, protocol.ReceiverChannel{Index: 2, TxDevice: "Mixer1", TxChannel: "Out3"}, amp.ReceiverChannels[2])
}

func TestUnknownDevice_NoNetwork(t *testing.T) {
	sim := devicesim.New("Amp", protocol.Version4413, 8)
	m := newTestManager(t, sim)

	err := m.MakeSubscriptionByName("4.4.1.3", "Ghost", 1, "Mixer1", "Out1")
	assert.True(t, control.IsUnknownDevice(err), "error = %v", err)

	err = m.ClearSubscriptionByName("4.4.1.3", "amp", 1)
	assert.True(t, control.IsUnknownDevice(err), "lookup is case-sensitive")

	_, err = m.RefreshReceiverChannels("4.4.1.3", "Ghost")
	assert.True(t, control.IsUnknownDevice(err))

	assert.Zero(t, sim.Requests())
}

func TestSubscribeAndClearByAddress(t *testing.T) {
	sim := devicesim.New("Amp", protocol.Version4413, 8)
	m := newTestManager(t, sim)

	require.NoError(t, m.Subscribe("4.4.1.3", "10.0.0.5", 1, "Mixer1", "Out1"))
	amp, _ := m.Device("Amp")
	assert.True(t, amp.ReceiverChannels[1].Subscribed())

	require.NoError(t, m.Clear("4.4.1.3", "10.0.0.5", 1))
	require.NoError(t, m.Clear("4.4.1.3", "Amp", 1))
	amp, _ = m.Device("Amp")
	assert.False(t, amp.ReceiverChannels[1].Subscribed())

	ch, _ := sim.Channel(1)
	assert.False(t, ch.Subscribed())
}

func TestFailedRequestLeavesRegistry(t *testing.T) {
	sim := devicesim.New("Amp", protocol.Version4413, 8)
	sim.AddTransmitter("Mixer1", "Out1")
	m := newTestManager(t, sim)

	err := m.MakeSubscriptionByName("4.4.1.3", "Amp", 1, "Mixer1", "Out7")
	assert.True(t, control.IsDeviceRejected(err))

	amp, _ := m.Device("Amp")
	assert.NotContains(t, amp.ReceiverChannels, 1)
}

func TestRefreshReceiverChannels(t *testing.T) {
	sim := devicesim.New("Amp", protocol.Version4213, 4)
	m := newTestManager(t, sim)

	require.NoError(t, m.MakeSubscription("4.2.1.3", "10.0.0.5", 0, "Mixer1", "Out1"))

	channels, err := m.RefreshReceiverChannels("4.2.1.3", "Amp")
	require.NoError(t, err)
	require.Len(t, channels, 4)

	amp, _ := m.Device("Amp")
	list := amp.ReceiverChannelList()
	require.Len(t, list, 4)
	assert.Equal(t, "In1", list[0].Name)
	assert.Equal(t, "Out1", list[0].TxChannel)
}

func TestStopKeepsDevicesAndClearDevices(t *testing.T) {
	m := newTestManager(t, devicesim.New("Amp", protocol.Version4413, 2))

	m.StopDiscovery()
	m.StopDiscovery()
	assert.Len(t, m.DeviceNames(), 2)

	m.ClearDevices()
	assert.Empty(t, m.DeviceNames())
	assert.Empty(t, m.DeviceDescriptions())
}

func TestQueryReceiverChannels_AddressOrName(t *testing.T) {
	sim := devicesim.New("Amp", protocol.Version4413, 3)
	m := newTestManager(t, sim)

	byIP, err := m.QueryReceiverChannels("4.4.1.3", "10.0.0.5")
	require.NoError(t, err)
	require.Len(t, byIP, 3)
	assert.Equal(t, 1, byIP[0].Index)

	amp, _ := m.Device("Amp")
	assert.Len(t, amp.ReceiverChannelList(), 3)

	byName, err := m.QueryReceiverChannels("4.4.1.3", "Amp")
	require.NoError(t, err)
	assert.Equal(t, byIP, byName)

	_, err = m.QueryReceiverChannels("4.4.1.3", "Nobody")
	assert.True(t, control.IsUnknownDevice(err))
}

func TestByName_ValidatesBeforeLookup(t *testing.T) {
	sim := devicesim.New("Amp", protocol.Version4413, 8)
	m := newTestManager(t, sim)

	tests := []struct {
		name     string
		call     func() error
		wantType control.ErrorType
	}{
		{
			name: "subscribe unknown version and device",
			call: func() error {
				return m.MakeSubscriptionByName("9.9.9.9", "Nobody", 1, "Mixer1", "Out1")
			},
			wantType: control.ErrTypeVersionParse,
		},
		{
			name:     "clear unknown version and device",
			call:     func() error { return m.Clear("9.9.9.9", "Nobody", 1) },
			wantType: control.ErrTypeVersionParse,
		},
		{
			name: "non-ASCII transmitter to unknown device",
			call: func() error {
				return m.Subscribe("4.4.1.3", "Nobody", 1, "Mischpult-Ä", "Out1")
			},
			wantType: control.ErrTypeNonASCIIName,
		},
		{
			name:     "index below base on known device",
			call:     func() error { return m.ClearSubscriptionByName("4.4.1.3", "Amp", 0) },
			wantType: control.ErrTypeValidation,
		},
		{
			name: "refresh with unknown version",
			call: func() error {
				_, err := m.RefreshReceiverChannels("4.3", "Nobody")
				return err
			},
			wantType: control.ErrTypeVersionParse,
		},
		{
			name: "query by name with unknown version",
			call: func() error {
				_, err := m.QueryReceiverChannels("", "Amp")
				return err
			},
			wantType: control.ErrTypeVersionParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			got, ok := control.TypeOf(err)
			require.True(t, ok, "error %v is not a ControlError", err)
			assert.Equal(t, tt.wantType, got, "error: %v", err)
		})
	}
	assert.Zero(t, sim.Requests())
}

func TestScenario_SubscribeThenClear4413(t *testing.T) {
	sim := devicesim.New("Amp", protocol.Version4413, 8)
	sim.AddTransmitter("Mixer1", "Out1", "Out3")
	m := newTestManager(t, sim)

	require.NoError(t, m.MakeSubscription("4.4.1.3", "10.0.0.5", 2, "Mixer1", "Out3"))

	amp, ok := m.Device("Amp")
	require.True(t, ok)
	assert.Equal(t, "Mixer1", amp.ReceiverChannels[2].TxDevice)
	assert.Equal(t, "Out3", amp.ReceiverChannels[2].TxChannel)
	ch, _ := sim.Channel(2)
	assert.Equal(t, "Out3", ch.TxChannel)

	require.NoError(t, m.ClearSubscription("4.4.1.3", "10.0.0.5", 2))

	var described registry.DeviceRecord
	for _, rec := range m.DeviceDescriptions() {
		if rec.Name == "Amp" {
			described = rec
		}
	}
	require.Equal(t, "Amp", described.Name)
	require.Contains(t, described.ReceiverChannels, 2)
	assert.False(t, described.ReceiverChannels[2].Subscribed())
	assert.Empty(t, described.ReceiverChannels[2].TxChannel)

	ch, _ = sim.Channel(2)
	assert.False(t, ch.Subscribed())
	assert.Equal(t, 2, sim.Requests())
}
