package protocol

import (
	"encoding/binary"
	"fmt"
)

// Reply is a decoded frame received from a device
type Reply struct {
	Header Header
	Raw    []byte
}

// OK reports whether the device acknowledged the request
func (r *Reply) OK() bool {
	return r.Header.Status == StatusOK
}

// String returns a human-readable representation of the reply
func (r *Reply) String() string {
	return fmt.Sprintf("Reply{%s, reason=%q}", r.Header, StatusText(r.Header.Status))
}

// Decode validates a frame received from a device speaking version v.
func Decode(v Version, data []byte) (*Reply, error) {
	if err := ValidateFrame(v, data); err != nil {
		return nil, err
	}
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	return &Reply{Header: h, Raw: data}, nil
}

// DecodeReceiverChannels extracts the receiver channel records of a query reply.
func DecodeReceiverChannels(v Version, reply *Reply) ([]ReceiverChannel, error) {
	p, err := v.Profile()
	if err != nil {
		return nil, err
	}
	if reply.Header.Opcode != OpcodeReceiverQuery {
		return nil, fmt.Errorf("%w: expected receiver query reply, got %s", ErrMalformed, OpcodeName(reply.Header.Opcode))
	}

	records, err := p.codec.parseReceiverPage(reply.Raw)
	if err != nil {
		return nil, err
	}

	channels := make([]ReceiverChannel, 0, len(records))
	for _, r := range records {
		if r.number == 0 {
			return nil, fmt.Errorf("%w: receiver channel number 0", ErrMalformed)
		}
		channels = append(channels, ReceiverChannel{
			Index:     p.CallerIndex(r.number),
			Name:      r.name,
			TxChannel: r.txChannel,
			TxDevice:  r.txDevice,
			Active:    r.flags&channelFlagActive != 0,
		})
	}
	return channels, nil
}

// DecodeRequest parses a request frame as a receiver would. It is the inverse
// of Encode and is used by device simulators and diagnostics.
func DecodeRequest(v Version, data []byte) (Header, Request, error) {
	if err := ValidateFrame(v, data); err != nil {
		return Header{}, nil, err
	}
	h, err := ParseHeader(data)
	if err != nil {
		return Header{}, nil, err
	}
	p, _ := v.Profile()

	switch h.Opcode {
	case OpcodeSubscribe:
		rx, txChannel, txDevice, err := p.codec.parseSubscribe(data)
		if err != nil {
			return h, nil, err
		}
		if rx == 0 {
			return h, nil, fmt.Errorf("%w: receiver channel number 0", ErrMalformed)
		}
		return h, &SubscribeRequest{
			RxChannel: p.CallerIndex(rx),
			TxDevice:  txDevice,
			TxChannel: txChannel,
		}, nil

	case OpcodeClear:
		rx, err := p.codec.parseClear(data)
		if err != nil {
			return h, nil, err
		}
		if rx == 0 {
			return h, nil, fmt.Errorf("%w: receiver channel number 0", ErrMalformed)
		}
		return h, &ClearRequest{RxChannel: p.CallerIndex(rx)}, nil

	case OpcodeReceiverQuery:
		if err := needBody(data, 2, "receiver query"); err != nil {
			return h, nil, err
		}
		start := binary.BigEndian.Uint16(body(data)[0:2])
		if start == 0 {
			return h, nil, fmt.Errorf("%w: receiver query start 0", ErrMalformed)
		}
		return h, &ReceiverQuery{Start: p.CallerIndex(start)}, nil

	default:
		return h, nil, fmt.Errorf("%w: unknown opcode 0x%04x", ErrMalformed, h.Opcode)
	}
}
