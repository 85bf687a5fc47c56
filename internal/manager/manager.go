package manager

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/dante-control/internal/control"
	"github.com/muurk/dante-control/internal/discovery"
	"github.com/muurk/dante-control/internal/logging"
	"github.com/muurk/dante-control/internal/protocol"
	"github.com/muurk/dante-control/internal/registry"
)

// Options configures a DeviceManager. Zero values select the defaults.
type Options struct {
	// Client sends control requests (default: control.NewClient())
	Client *control.Client

	// Browse replaces the mDNS browser (default: discovery.NewBrowser(Interface))
	Browse discovery.BrowseFunc

	// Interface restricts mDNS to one network interface
	Interface string

	// RefreshInterval is how often discovery re-queries each service family
	// (default: discovery.DefaultRefreshInterval)
	RefreshInterval time.Duration
}

// DeviceManager ties one registry, one discovery engine and one control
// client together for its lifetime.
type DeviceManager struct {
	registry *registry.Registry
	engine   *discovery.Engine
	client   *control.Client
}

// New creates a manager. Discovery is not started.
func New(opts Options) *DeviceManager {
	reg := registry.New()
	engine := discovery.NewEngine(reg)
	engine.RefreshInterval = opts.RefreshInterval
	if opts.Browse != nil {
		engine.Browse = opts.Browse
	} else if opts.Interface != "" {
		engine.Browse = discovery.NewBrowser(opts.Interface)
	}

	client := opts.Client
	if client == nil {
		client = control.NewClient()
	}

	return &DeviceManager{
		registry: reg,
		engine:   engine,
		client:   client,
	}
}

// Registry returns the device registry
func (m *DeviceManager) Registry() *registry.Registry {
	return m.registry
}

// Engine returns the discovery engine, for diagnostics dumps
func (m *DeviceManager) Engine() *discovery.Engine {
	return m.engine
}

// StartDiscovery begins browsing and returns immediately
func (m *DeviceManager) StartDiscovery() error {
	return m.engine.Start()
}

// StopDiscovery stops browsing. Discovered devices are kept.
func (m *DeviceManager) StopDiscovery() {
	m.engine.Stop()
}

// DeviceNames returns the names of every discovered device, sorted
func (m *DeviceManager) DeviceNames() []string {
	return m.registry.Names()
}

// DeviceDescriptions returns a snapshot of every device record, sorted by name
func (m *DeviceManager) DeviceDescriptions() []registry.DeviceRecord {
	return m.registry.All()
}

// Device returns the record for name
func (m *DeviceManager) Device(name string) (registry.DeviceRecord, bool) {
	return m.registry.Resolve(name)
}

// Stats returns the per-family discovery counters
func (m *DeviceManager) Stats() map[registry.Family]discovery.FamilyStats {
	return m.engine.Stats()
}

// ClearDevices forgets every discovered device
func (m *DeviceManager) ClearDevices() {
	m.registry.Clear()
}

// MakeSubscription subscribes a receiver channel addressed by IPv4 address.
// If the receiver is a known device its record is updated on success.
func (m *DeviceManager) MakeSubscription(version, receiverIP string, rxIndex int, txDevice, txChannel string) error {
	if err := m.client.MakeSubscription(version, receiverIP, rxIndex, txDevice, txChannel); err != nil {
		return err
	}
	m.reflect(receiverIP, rxIndex, txDevice, txChannel)
	return nil
}

// ClearSubscription clears a receiver channel addressed by IPv4 address
func (m *DeviceManager) ClearSubscription(version, receiverIP string, rxIndex int) error {
	if err := m.client.ClearSubscription(version, receiverIP, rxIndex); err != nil {
		return err
	}
	m.reflect(receiverIP, rxIndex, "", "")
	return nil
}

// MakeSubscriptionByName subscribes a receiver channel of a discovered
// device. Invalid arguments are reported before the name is looked up, and an
// unknown name fails before any network I/O.
func (m *DeviceManager) MakeSubscriptionByName(version, receiverName string, rxIndex int, txDevice, txChannel string) error {
	if err := control.ValidateSubscription(version, rxIndex, txDevice, txChannel); err != nil {
		return err
	}
	rec, ok := m.registry.Resolve(receiverName)
	if !ok {
		return control.NewUnknownDeviceError(receiverName)
	}
	return m.MakeSubscription(version, rec.PrimaryIP, rxIndex, txDevice, txChannel)
}

// ClearSubscriptionByName clears a receiver channel of a discovered device
func (m *DeviceManager) ClearSubscriptionByName(version, receiverName string, rxIndex int) error {
	if err := control.ValidateClear(version, rxIndex); err != nil {
		return err
	}
	rec, ok := m.registry.Resolve(receiverName)
	if !ok {
		return control.NewUnknownDeviceError(receiverName)
	}
	return m.ClearSubscription(version, rec.PrimaryIP, rxIndex)
}

// Subscribe accepts either an IPv4 address or a device name for the receiver
func (m *DeviceManager) Subscribe(version, receiver string, rxIndex int, txDevice, txChannel string) error {
	if isIPLiteral(receiver) {
		return m.MakeSubscription(version, receiver, rxIndex, txDevice, txChannel)
	}
	return m.MakeSubscriptionByName(version, receiver, rxIndex, txDevice, txChannel)
}

// Clear accepts either an IPv4 address or a device name for the receiver
func (m *DeviceManager) Clear(version, receiver string, rxIndex int) error {
	if isIPLiteral(receiver) {
		return m.ClearSubscription(version, receiver, rxIndex)
	}
	return m.ClearSubscriptionByName(version, receiver, rxIndex)
}

// RefreshReceiverChannels reads the receiver channel table of a discovered
// device and stores it in the registry.
func (m *DeviceManager) RefreshReceiverChannels(version, name string) ([]protocol.ReceiverChannel, error) {
	if err := control.ValidateVersion(version); err != nil {
		return nil, err
	}
	rec, ok := m.registry.Resolve(name)
	if !ok {
		return nil, control.NewUnknownDeviceError(name)
	}

	channels, err := m.client.QueryReceiverChannels(version, rec.PrimaryIP)
	if err != nil {
		return nil, err
	}
	m.registry.SetReceiverChannels(name, channels)
	return channels, nil
}

// QueryReceiverChannels reads the receiver channel table of a device given
// by IPv4 address or name. Known devices have their record updated.
func (m *DeviceManager) QueryReceiverChannels(version, receiver string) ([]protocol.ReceiverChannel, error) {
	if !isIPLiteral(receiver) {
		return m.RefreshReceiverChannels(version, receiver)
	}
	if rec, ok := m.registry.ResolveIP(receiver); ok {
		return m.RefreshReceiverChannels(version, rec.Name)
	}
	return m.client.QueryReceiverChannels(version, receiver)
}

// reflect records an acknowledged change on the device that owns receiverIP
func (m *DeviceManager) reflect(receiverIP string, rxIndex int, txDevice, txChannel string) {
	rec, ok := m.registry.ResolveIP(receiverIP)
	if !ok {
		return
	}
	m.registry.SetReceiverSubscription(rec.Name, rxIndex, txDevice, txChannel)

	event := "subscribed"
	if txDevice == "" {
		event = "cleared"
	}
	logging.LogDeviceEvent(rec.Name, event,
		zap.Int("rx_channel", rxIndex),
		zap.String("tx_device", txDevice),
		zap.String("tx_channel", txChannel),
	)
}

func isIPLiteral(s string) bool {
	return net.ParseIP(s) != nil
}
