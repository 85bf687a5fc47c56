package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
)

// Name validation errors
var (
	ErrNonASCIIName = errors.New("name contains non-ASCII characters")
	ErrNameTooLong  = errors.New("name too long")
	ErrEmptyName    = errors.New("name is empty")
)

// ReceiverPageSize is the number of receiver channels requested per query.
const ReceiverPageSize = 16

// Global transaction ID counter (thread-safe)
var transactionCounter uint32

// Request is a message a controller sends to a receiver
type Request interface {
	Opcode() uint16
}

// SubscribeRequest asks a receiver to subscribe one of its channels to a
// transmitter channel. The receiver resolves the transmitter itself.
type SubscribeRequest struct {
	RxChannel int // caller-facing index, see Profile.IndexBase
	TxDevice  string
	TxChannel string
}

// Opcode implements Request
func (*SubscribeRequest) Opcode() uint16 { return OpcodeSubscribe }

// ClearRequest drops whatever is subscribed on a receiver channel
type ClearRequest struct {
	RxChannel int
}

// Opcode implements Request
func (*ClearRequest) Opcode() uint16 { return OpcodeClear }

// ReceiverQuery requests one page of the receiver channel table starting at Start
type ReceiverQuery struct {
	Start int
}

// Opcode implements Request
func (*ReceiverQuery) Opcode() uint16 { return OpcodeReceiverQuery }

// ReceiverChannel describes one receiver channel and its current subscription
type ReceiverChannel struct {
	Index     int    // caller-facing index
	Name      string // receiver channel label
	TxChannel string // subscribed transmitter channel, empty if none
	TxDevice  string // subscribed transmitter device, empty if none
	Active    bool   // the device reports the route as resolved
}

// Subscribed reports whether a transmitter is assigned to the channel
func (c ReceiverChannel) Subscribed() bool {
	return c.TxDevice != ""
}

// ValidateName checks a device or channel name against Dante naming limits.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	for i := 0; i < len(name); i++ {
		if name[i] >= 0x80 {
			return fmt.Errorf("%w: %q", ErrNonASCIIName, name)
		}
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %q is %d bytes (max %d)", ErrNameTooLong, name, len(name), MaxNameLength)
	}
	return nil
}

// Encode builds the request frame for req in the layout of version v.
//
// Example:
//
//	frame, err := Encode(Version4213, GenerateTransactionID(), &ClearRequest{RxChannel: 0})
func Encode(v Version, txID uint16, req Request) ([]byte, error) {
	p, err := v.Profile()
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch r := req.(type) {
	case *SubscribeRequest:
		if err := ValidateName(r.TxDevice); err != nil {
			return nil, fmt.Errorf("transmitter device: %w", err)
		}
		if err := ValidateName(r.TxChannel); err != nil {
			return nil, fmt.Errorf("transmitter channel: %w", err)
		}
		rx, err := p.WireChannel(r.RxChannel)
		if err != nil {
			return nil, err
		}
		payload = p.codec.subscribeBody(rx, r.TxChannel, r.TxDevice)

	case *ClearRequest:
		rx, err := p.WireChannel(r.RxChannel)
		if err != nil {
			return nil, err
		}
		payload = p.codec.clearBody(rx)

	case *ReceiverQuery:
		start, err := p.WireChannel(r.Start)
		if err != nil {
			return nil, err
		}
		payload = make([]byte, 2)
		binary.BigEndian.PutUint16(payload, start)

	default:
		return nil, fmt.Errorf("unsupported request type %T", req)
	}

	return BuildFrame(Header{
		ProtocolID:    p.ProtocolID,
		TransactionID: txID,
		Opcode:        req.Opcode(),
	}, payload)
}

// EncodeReply builds a bodiless reply frame, as sent by a receiver for
// subscribe and clear requests.
func EncodeReply(v Version, txID uint16, opcode uint16, status uint16) ([]byte, error) {
	p, err := v.Profile()
	if err != nil {
		return nil, err
	}
	return BuildFrame(Header{
		ProtocolID:    p.ProtocolID,
		TransactionID: txID,
		Opcode:        opcode,
		Status:        status,
	}, nil)
}

// EncodeReceiverPage builds a receiver query reply carrying channels.
func EncodeReceiverPage(v Version, txID uint16, status uint16, channels []ReceiverChannel) ([]byte, error) {
	p, err := v.Profile()
	if err != nil {
		return nil, err
	}

	records := make([]wireChannel, 0, len(channels))
	for _, ch := range channels {
		n, err := p.WireChannel(ch.Index)
		if err != nil {
			return nil, err
		}
		wc := wireChannel{number: n, name: ch.Name, txChannel: ch.TxChannel, txDevice: ch.TxDevice}
		if ch.Active {
			wc.flags = channelFlagActive
		}
		records = append(records, wc)
	}

	return BuildFrame(Header{
		ProtocolID:    p.ProtocolID,
		TransactionID: txID,
		Opcode:        OpcodeReceiverQuery,
		Status:        status,
	}, p.codec.receiverPageBody(records))
}

// GenerateTransactionID returns the next transaction ID. Zero is never returned.
func GenerateTransactionID() uint16 {
	for {
		id := uint16(atomic.AddUint32(&transactionCounter, 1))
		if id != 0 {
			return id
		}
	}
}
