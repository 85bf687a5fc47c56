// Package devicesim simulates the control side of a Dante receiver. It
// answers subscribe, clear and receiver query requests either in memory or
// over a loopback UDP socket, and records what it was asked.
package devicesim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/dante-control/internal/logging"
	"github.com/muurk/dante-control/internal/protocol"
)

// Device is a simulated Dante receiver speaking one protocol version.
type Device struct {
	Name    string
	Version protocol.Version

	// Silent drops every request without answering
	Silent atomic.Bool

	// Stray sends a reply with a wrong transaction id before each real reply
	Stray atomic.Bool

	mu           sync.Mutex
	channels     map[int]*protocol.ReceiverChannel
	transmitters map[string]map[string]bool
	requests     int
}

// New creates a receiver with rxCount channels named "In1".."InN". Channel
// indices follow the version's index base.
func New(name string, version protocol.Version, rxCount int) *Device {
	p, err := version.Profile()
	if err != nil {
		panic(err)
	}
	d := &Device{
		Name:         name,
		Version:      version,
		channels:     make(map[int]*protocol.ReceiverChannel, rxCount),
		transmitters: make(map[string]map[string]bool),
	}
	for i := 0; i < rxCount; i++ {
		idx := p.IndexBase + i
		d.channels[idx] = &protocol.ReceiverChannel{Index: idx, Name: fmt.Sprintf("In%d", i+1)}
	}
	return d
}

// AddTransmitter makes a transmitter device and its channels known to the
// receiver. Subscriptions to a known device must name one of its channels.
func (d *Device) AddTransmitter(device string, channels ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m := d.transmitters[device]
	if m == nil {
		m = make(map[string]bool)
		d.transmitters[device] = m
	}
	for _, ch := range channels {
		m[ch] = true
	}
}

// Channel returns a copy of receiver channel index
func (d *Device) Channel(index int) (protocol.ReceiverChannel, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, ok := d.channels[index]
	if !ok {
		return protocol.ReceiverChannel{}, false
	}
	return *ch, true
}

// Requests returns how many datagrams the device has received
func (d *Device) Requests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests
}

// Subscribe implements protocol.Receiver
func (d *Device) Subscribe(rx int, txDevice, txChannel string) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, ok := d.channels[rx]
	if !ok {
		return protocol.StatusChannelOutOfRange
	}

	active := false
	if known, ok := d.transmitters[txDevice]; ok {
		if !known[txChannel] {
			return protocol.StatusUnknownTransmitter
		}
		active = true
	}

	ch.TxDevice = txDevice
	ch.TxChannel = txChannel
	ch.Active = active
	return protocol.StatusOK
}

// Clear implements protocol.Receiver
func (d *Device) Clear(rx int) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, ok := d.channels[rx]
	if !ok {
		return protocol.StatusChannelOutOfRange
	}
	ch.TxDevice = ""
	ch.TxChannel = ""
	ch.Active = false
	return protocol.StatusOK
}

// ReceiverChannels implements protocol.Receiver
func (d *Device) ReceiverChannels(start, count int) ([]protocol.ReceiverChannel, uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()

	indices := make([]int, 0, len(d.channels))
	for idx := range d.channels {
		if idx >= start {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)
	if len(indices) > count {
		indices = indices[:count]
	}

	out := make([]protocol.ReceiverChannel, 0, len(indices))
	for _, idx := range indices {
		out = append(out, *d.channels[idx])
	}
	return out, protocol.StatusOK
}

// handle answers one request datagram. It returns the datagrams to send back.
func (d *Device) handle(remoteAddr string, data []byte) [][]byte {
	d.mu.Lock()
	d.requests++
	d.mu.Unlock()

	if d.Silent.Load() {
		return nil
	}

	reply, err := protocol.HandleRequest(d.Version, remoteAddr, data, d)
	if err != nil || reply == nil {
		return nil
	}

	var out [][]byte
	if d.Stray.Load() {
		stray := append([]byte(nil), reply...)
		stray[4] ^= 0xFF
		stray[5] ^= 0xFF
		out = append(out, stray)
	}
	return append(out, reply)
}

// Exchange answers request in memory. It satisfies control.Transport, so a
// client can talk to the device without sockets.
func (d *Device) Exchange(ctx context.Context, addr string, request []byte, accept func([]byte) bool) ([]byte, error) {
	for _, reply := range d.handle(addr, request) {
		if accept(reply) {
			return reply, nil
		}
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// ListenUDP serves the device on a UDP socket bound to addr (for example
// "127.0.0.1:0") until ctx is done. It returns the bound address.
func (d *Device) ListenUDP(ctx context.Context, addr string) (*net.UDPAddr, error) {
	conn, err := net.ListenPacket("udp4", addr)
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		buf := make([]byte, protocol.MaxFrameSize)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				if !errors.Is(err, net.ErrClosed) {
					logging.Warn("Simulator read failed", zap.String("device", d.Name), zap.Error(err))
				}
				return
			}
			for _, reply := range d.handle(from.String(), append([]byte(nil), buf[:n]...)) {
				if _, err := conn.WriteTo(reply, from); err != nil {
					logging.Warn("Simulator write failed", zap.String("device", d.Name), zap.Error(err))
				}
			}
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr), nil
}
