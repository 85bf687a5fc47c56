package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/muurk/dante-control/internal/protocol"
)

// ErrNoName is returned by Merge for facts without a device name.
var ErrNoName = errors.New("fact has no device name")

// Registry is the in-memory map of discovered devices keyed by advertised name.
// It is safe for concurrent use; every read returns deep copies.
type Registry struct {
	mu         sync.RWMutex
	devices    map[string]*DeviceRecord
	generation uint64
	now        func() time.Time
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		devices: make(map[string]*DeviceRecord),
		now:     time.Now,
	}
}

// Merge folds a fact into the record for f.Name, creating the record on first
// sight. It reports whether a new device was added.
func (r *Registry) Merge(f Fact) (bool, error) {
	if f.Name == "" {
		return false, ErrNoName
	}
	if f.SeenAt.IsZero() {
		f.SeenAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.devices[f.Name]
	if !ok {
		rec = newRecord(f.Name, f.SeenAt)
		r.devices[f.Name] = rec
	}
	rec.apply(f)
	r.generation++
	return !ok, nil
}

// Resolve returns a copy of the record with exactly this name.
func (r *Registry) Resolve(name string) (DeviceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.devices[name]
	if !ok {
		return DeviceRecord{}, false
	}
	return rec.Clone(), true
}

// ResolveIP returns the device that has advertised ip. When several devices
// share an address the one whose primary address matches wins, then the
// first by name.
func (r *Registry) ResolveIP(ip string) (DeviceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var match *DeviceRecord
	for _, name := range r.sortedNamesLocked() {
		rec := r.devices[name]
		if rec.PrimaryIP == ip {
			return rec.Clone(), true
		}
		if match == nil && containsString(rec.Addresses, ip) {
			match = rec
		}
	}
	if match == nil {
		return DeviceRecord{}, false
	}
	return match.Clone(), true
}

// All returns a consistent snapshot of every record, sorted by name.
func (r *Registry) All() []DeviceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]DeviceRecord, 0, len(r.devices))
	for _, name := range r.sortedNamesLocked() {
		out = append(out, r.devices[name].Clone())
	}
	return out
}

// Names returns the device names sorted ascending
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNamesLocked()
}

// Len returns the number of known devices
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Generation increases on every mutation. Pollers compare it to skip
// unchanged snapshots.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Clear removes every device
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make(map[string]*DeviceRecord)
	r.generation++
}

// SetReceiverSubscription records the subscription state of one receiver
// channel after the device acknowledged a change. An empty txDevice marks the
// channel unsubscribed. It reports false if the device is unknown.
func (r *Registry) SetReceiverSubscription(name string, index int, txDevice, txChannel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.devices[name]
	if !ok {
		return false
	}

	ch := rec.ReceiverChannels[index]
	ch.Index = index
	ch.TxDevice = txDevice
	ch.TxChannel = txChannel
	ch.Active = false
	if txDevice == "" {
		ch.TxChannel = ""
	}
	rec.ReceiverChannels[index] = ch
	r.generation++
	return true
}

// SetReceiverChannels replaces the receiver channel table of a device with the
// table read back from it. It reports false if the device is unknown.
func (r *Registry) SetReceiverChannels(name string, channels []protocol.ReceiverChannel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.devices[name]
	if !ok {
		return false
	}

	rec.ReceiverChannels = make(map[int]protocol.ReceiverChannel, len(channels))
	for _, ch := range channels {
		rec.ReceiverChannels[ch.Index] = ch
	}
	r.generation++
	return true
}

func (r *Registry) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
