package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/dante-control/internal/logging"
	"github.com/muurk/dante-control/internal/protocol"
)

const (
	// DefaultTimeout is how long one request waits for its reply
	DefaultTimeout = 2 * time.Second

	// maxReceiverPages bounds QueryReceiverChannels against devices that never
	// return a short page
	maxReceiverPages = 64
)

// Client sends subscription requests to Dante receivers. A Client holds no
// connection state and is safe for concurrent use.
type Client struct {
	// Timeout bounds each request/reply exchange (default: 2s)
	Timeout time.Duration

	// Port overrides the version's control port when non-zero
	Port int

	// Transport carries the datagrams (default: UDPTransport)
	Transport Transport
}

// NewClient creates a control client with default settings
func NewClient() *Client {
	return &Client{
		Timeout:   DefaultTimeout,
		Transport: UDPTransport{},
	}
}

// SetTimeout sets the per-request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.Timeout = timeout
}

// MakeSubscription subscribes receiver channel rxIndex on the device at
// receiverIP to txChannel on txDevice.
func (c *Client) MakeSubscription(version, receiverIP string, rxIndex int, txDevice, txChannel string) error {
	return c.MakeSubscriptionWithContext(context.Background(), version, receiverIP, rxIndex, txDevice, txChannel)
}

// MakeSubscriptionWithContext is MakeSubscription with a caller context
func (c *Client) MakeSubscriptionWithContext(ctx context.Context, version, receiverIP string, rxIndex int, txDevice, txChannel string) error {
	v, err := parseVersion(version)
	if err != nil {
		return err
	}
	if err := validateIPv4(receiverIP); err != nil {
		return err
	}
	if err := validateNames(txDevice, txChannel); err != nil {
		return err
	}
	if err := validateIndex(v, rxIndex); err != nil {
		return err
	}

	req := &protocol.SubscribeRequest{RxChannel: rxIndex, TxDevice: txDevice, TxChannel: txChannel}
	_, err = c.exchange(ctx, v, receiverIP, req)
	if err != nil {
		return err
	}

	logging.Info("Subscription made",
		zap.String("receiver", receiverIP),
		zap.Int("rx_channel", rxIndex),
		zap.String("tx", txChannel+"@"+txDevice),
	)
	return nil
}

// ClearSubscription removes whatever is subscribed on receiver channel rxIndex.
// Clearing an unsubscribed channel succeeds.
func (c *Client) ClearSubscription(version, receiverIP string, rxIndex int) error {
	return c.ClearSubscriptionWithContext(context.Background(), version, receiverIP, rxIndex)
}

// ClearSubscriptionWithContext is ClearSubscription with a caller context
func (c *Client) ClearSubscriptionWithContext(ctx context.Context, version, receiverIP string, rxIndex int) error {
	v, err := parseVersion(version)
	if err != nil {
		return err
	}
	if err := validateIPv4(receiverIP); err != nil {
		return err
	}
	if err := validateIndex(v, rxIndex); err != nil {
		return err
	}

	_, err = c.exchange(ctx, v, receiverIP, &protocol.ClearRequest{RxChannel: rxIndex})
	if err != nil {
		return err
	}

	logging.Info("Subscription cleared",
		zap.String("receiver", receiverIP),
		zap.Int("rx_channel", rxIndex),
	)
	return nil
}

// QueryReceiverChannels reads the receiver channel table of a device, one
// page at a time, until the device returns a short page.
func (c *Client) QueryReceiverChannels(version, receiverIP string) ([]protocol.ReceiverChannel, error) {
	return c.QueryReceiverChannelsWithContext(context.Background(), version, receiverIP)
}

// QueryReceiverChannelsWithContext is QueryReceiverChannels with a caller context
func (c *Client) QueryReceiverChannelsWithContext(ctx context.Context, version, receiverIP string) ([]protocol.ReceiverChannel, error) {
	v, err := parseVersion(version)
	if err != nil {
		return nil, err
	}
	if err := validateIPv4(receiverIP); err != nil {
		return nil, err
	}
	p, _ := v.Profile()

	var channels []protocol.ReceiverChannel
	start := p.IndexBase
	for page := 0; page < maxReceiverPages; page++ {
		reply, err := c.exchange(ctx, v, receiverIP, &protocol.ReceiverQuery{Start: start})
		if err != nil {
			// reading past the last channel ends the table
			var ce *ControlError
			if page > 0 && errors.As(err, &ce) && ce.Type == ErrTypeDeviceRejected &&
				ce.Status == protocol.StatusChannelOutOfRange {
				break
			}
			return nil, err
		}

		got, err := protocol.DecodeReceiverChannels(v, reply)
		if err != nil {
			return nil, NewProtocolError(receiverIP, err)
		}
		channels = append(channels, got...)
		if len(got) < protocol.ReceiverPageSize {
			break
		}
		start += protocol.ReceiverPageSize
	}
	return channels, nil
}

// exchange encodes req, sends it and waits for the reply carrying the same
// transaction id. Non-OK replies become ErrTypeDeviceRejected.
func (c *Client) exchange(ctx context.Context, v protocol.Version, receiverIP string, req protocol.Request) (*protocol.Reply, error) {
	txID := protocol.GenerateTransactionID()
	frame, err := protocol.Encode(v, txID, req)
	if err != nil {
		return nil, NewValidationError("invalid request", err)
	}

	p, _ := v.Profile()
	port := p.ControlPort
	if c.Port != 0 {
		port = c.Port
	}
	addr := net.JoinHostPort(receiverIP, strconv.Itoa(port))

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reply *protocol.Reply
	accept := func(data []byte) bool {
		r, err := protocol.Decode(v, data)
		if err != nil {
			logging.LogRawBytes("Ignoring undecodable datagram", data)
			return false
		}
		if r.Header.TransactionID != txID || r.Header.Opcode != req.Opcode() {
			return false
		}
		reply = r
		return true
	}

	if _, err := c.transport().Exchange(ctx, addr, frame, accept); err != nil {
		return nil, ClassifyNetworkError(err, receiverIP)
	}

	if !reply.OK() {
		logging.Warn("Device rejected request",
			zap.String("receiver", receiverIP),
			zap.String("opcode", protocol.OpcodeName(req.Opcode())),
			zap.Uint16("status", reply.Header.Status),
		)
		return nil, NewRejectedError(receiverIP, reply.Header.Status)
	}
	return reply, nil
}

// ValidateSubscription runs the checks MakeSubscription applies to everything
// but the receiver address: version, then names, then index. Callers that
// resolve the receiver first use it to fail before any lookup or I/O.
func ValidateSubscription(version string, rxIndex int, txDevice, txChannel string) error {
	v, err := parseVersion(version)
	if err != nil {
		return err
	}
	if err := validateNames(txDevice, txChannel); err != nil {
		return err
	}
	return validateIndex(v, rxIndex)
}

// ValidateClear is ValidateSubscription for ClearSubscription
func ValidateClear(version string, rxIndex int) error {
	v, err := parseVersion(version)
	if err != nil {
		return err
	}
	return validateIndex(v, rxIndex)
}

// ValidateVersion reports whether version is a supported protocol version
func ValidateVersion(version string) error {
	_, err := parseVersion(version)
	return err
}

func (c *Client) transport() Transport {
	if c.Transport == nil {
		return UDPTransport{}
	}
	return c.Transport
}

func parseVersion(s string) (protocol.Version, error) {
	v, err := protocol.ParseVersion(s)
	if err != nil {
		return v, NewValidationError(fmt.Sprintf("unsupported protocol version %q", s), err)
	}
	return v, nil
}

func validateIPv4(s string) error {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return &ControlError{
			Type:    ErrTypeValidation,
			Message: fmt.Sprintf("receiver address %q is not an IPv4 address", s),
		}
	}
	return nil
}

func validateIndex(v protocol.Version, rxIndex int) error {
	p, err := v.Profile()
	if err != nil {
		return NewValidationError("invalid protocol version", err)
	}
	if _, err := p.WireChannel(rxIndex); err != nil {
		return NewValidationError("invalid receiver channel index", err)
	}
	return nil
}

// validateNames checks every name for ASCII first, then for length, so a
// non-ASCII name is always reported as such.
func validateNames(names ...string) error {
	for _, n := range names {
		for i := 0; i < len(n); i++ {
			if n[i] >= 0x80 {
				return NewValidationError(fmt.Sprintf("name %q", n), fmt.Errorf("%w: %q", protocol.ErrNonASCIIName, n))
			}
		}
	}
	for _, n := range names {
		if err := protocol.ValidateName(n); err != nil {
			return NewValidationError(fmt.Sprintf("name %q", n), err)
		}
	}
	return nil
}
