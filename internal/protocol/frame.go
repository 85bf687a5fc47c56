package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame layout constants
const (
	HeaderSize   = 10
	MaxFrameSize = 1400 // Keep a single datagram below a typical Ethernet MTU

	// MaxNameLength is the longest device or channel name Dante accepts
	MaxNameLength = 31
)

// Opcodes
const (
	OpcodeReceiverQuery uint16 = 0x3000
	OpcodeSubscribe     uint16 = 0x3010
	OpcodeClear         uint16 = 0x3014
)

// Reply status codes
const (
	StatusOK                   uint16 = 0x0001
	StatusChannelOutOfRange    uint16 = 0x0022
	StatusUnknownTransmitter   uint16 = 0x0023
	StatusSubscriptionRejected uint16 = 0x0024
	StatusChannelBusy          uint16 = 0x0025
)

// ErrMalformed wraps every decoding failure caused by a bad frame.
var ErrMalformed = errors.New("malformed frame")

// Header is the fixed 10-byte prefix of every frame
type Header struct {
	ProtocolID    uint16
	Length        uint16
	TransactionID uint16
	Opcode        uint16
	Status        uint16
}

// String returns a debug representation of the header
func (h Header) String() string {
	return fmt.Sprintf("Header{proto=0x%04x, len=%d, txid=%d, op=%s, status=0x%04x}",
		h.ProtocolID, h.Length, h.TransactionID, OpcodeName(h.Opcode), h.Status)
}

func (h Header) put(b []byte) {
	binary.BigEndian.PutUint16(b[0:2], h.ProtocolID)
	binary.BigEndian.PutUint16(b[2:4], h.Length)
	binary.BigEndian.PutUint16(b[4:6], h.TransactionID)
	binary.BigEndian.PutUint16(b[6:8], h.Opcode)
	binary.BigEndian.PutUint16(b[8:10], h.Status)
}

// ParseHeader decodes the header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes (minimum %d)", ErrMalformed, len(data), HeaderSize)
	}
	return Header{
		ProtocolID:    binary.BigEndian.Uint16(data[0:2]),
		Length:        binary.BigEndian.Uint16(data[2:4]),
		TransactionID: binary.BigEndian.Uint16(data[4:6]),
		Opcode:        binary.BigEndian.Uint16(data[6:8]),
		Status:        binary.BigEndian.Uint16(data[8:10]),
	}, nil
}

// BuildFrame prepends a header to body. The Length field is filled in.
func BuildFrame(h Header, body []byte) ([]byte, error) {
	size := HeaderSize + len(body)
	if size > MaxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes (max %d)", size, MaxFrameSize)
	}
	h.Length = uint16(size)

	frame := make([]byte, size)
	h.put(frame)
	copy(frame[HeaderSize:], body)
	return frame, nil
}

// ValidateFrame checks that frame carries the protocol ID of v and that its
// length field agrees with the number of bytes received.
func ValidateFrame(v Version, frame []byte) error {
	p, err := v.Profile()
	if err != nil {
		return err
	}

	h, err := ParseHeader(frame)
	if err != nil {
		return err
	}

	if h.ProtocolID != p.ProtocolID {
		return fmt.Errorf("%w: protocol id 0x%04x (expected 0x%04x for %s)", ErrMalformed, h.ProtocolID, p.ProtocolID, v)
	}

	if int(h.Length) != len(frame) {
		return fmt.Errorf("%w: length field %d does not match frame size %d", ErrMalformed, h.Length, len(frame))
	}

	if !isKnownOpcode(h.Opcode) {
		return fmt.Errorf("%w: unknown opcode 0x%04x", ErrMalformed, h.Opcode)
	}

	return nil
}

func isKnownOpcode(op uint16) bool {
	switch op {
	case OpcodeReceiverQuery, OpcodeSubscribe, OpcodeClear:
		return true
	default:
		return false
	}
}

// OpcodeName returns a human-readable name for an opcode
func OpcodeName(op uint16) string {
	switch op {
	case OpcodeReceiverQuery:
		return "receiver-query"
	case OpcodeSubscribe:
		return "subscribe"
	case OpcodeClear:
		return "clear"
	default:
		return fmt.Sprintf("unknown(0x%04x)", op)
	}
}

// StatusText returns the reason a device reports for a status code
func StatusText(code uint16) string {
	switch code {
	case StatusOK:
		return "ok"
	case StatusChannelOutOfRange:
		return "receiver channel out of range"
	case StatusUnknownTransmitter:
		return "unknown transmitter device or channel"
	case StatusSubscriptionRejected:
		return "subscription rejected"
	case StatusChannelBusy:
		return "receiver channel busy"
	default:
		return fmt.Sprintf("device error 0x%04x", code)
	}
}

// readString returns the NUL-terminated string at off. An offset of zero means
// the field is absent.
func readString(frame []byte, off uint16) (string, error) {
	if off == 0 {
		return "", nil
	}
	if int(off) < HeaderSize || int(off) >= len(frame) {
		return "", fmt.Errorf("%w: string offset %d outside frame of %d bytes", ErrMalformed, off, len(frame))
	}
	end := bytes.IndexByte(frame[off:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrMalformed, off)
	}
	return string(frame[int(off) : int(off)+end]), nil
}

// stringTable accumulates NUL-terminated strings after a fixed body region and
// hands out their frame offsets.
type stringTable struct {
	base int
	buf  []byte
}

func newStringTable(bodyFixed int) *stringTable {
	return &stringTable{base: HeaderSize + bodyFixed}
}

func (t *stringTable) add(s string) uint16 {
	if s == "" {
		return 0
	}
	off := t.base + len(t.buf)
	t.buf = append(t.buf, s...)
	t.buf = append(t.buf, 0)
	return uint16(off)
}
