package protocol

import (
	"encoding/binary"
	"fmt"
)

// codec isolates the version-specific body layouts. Header handling is shared.
type codec interface {
	subscribeBody(rx uint16, txChannel, txDevice string) []byte
	parseSubscribe(frame []byte) (rx uint16, txChannel, txDevice string, err error)
	clearBody(rx uint16) []byte
	parseClear(frame []byte) (rx uint16, err error)
	receiverPageBody(channels []wireChannel) []byte
	parseReceiverPage(frame []byte) ([]wireChannel, error)
}

// wireChannel is one receiver table record with its 1-based wire number.
type wireChannel struct {
	number    uint16
	flags     uint16
	name      string
	txChannel string
	txDevice  string
}

const channelFlagActive = 0x0001

func body(frame []byte) []byte {
	return frame[HeaderSize:]
}

func needBody(frame []byte, n int, what string) error {
	if len(frame) < HeaderSize+n {
		return fmt.Errorf("%w: %s body needs %d bytes, got %d", ErrMalformed, what, n, len(frame)-HeaderSize)
	}
	return nil
}

// codec4213 lays out the 4.2.1.3 bodies. Subscription names always start at
// frame offset 52, after a zero-filled record area.
//
// Subscribe: [0-1] count=1 [2-3] rx [4-5] tx channel off [6-7] tx device off [8-41] zero
// Clear:     [0-1] count=1 [2-3] rx [4-7] reserved
// Page:      [0-1] count, then per channel: number, name off, tx channel off, tx device off
type codec4213 struct{}

const (
	subscribeFixed4213 = 42
	clearFixed4213     = 8
	pageRecord4213     = 8
)

func (codec4213) subscribeBody(rx uint16, txChannel, txDevice string) []byte {
	strs := newStringTable(subscribeFixed4213)
	b := make([]byte, subscribeFixed4213)
	binary.BigEndian.PutUint16(b[0:2], 1)
	binary.BigEndian.PutUint16(b[2:4], rx)
	binary.BigEndian.PutUint16(b[4:6], strs.add(txChannel))
	binary.BigEndian.PutUint16(b[6:8], strs.add(txDevice))
	return append(b, strs.buf...)
}

func (codec4213) parseSubscribe(frame []byte) (uint16, string, string, error) {
	if err := needBody(frame, subscribeFixed4213, "subscribe"); err != nil {
		return 0, "", "", err
	}
	b := body(frame)
	if n := binary.BigEndian.Uint16(b[0:2]); n != 1 {
		return 0, "", "", fmt.Errorf("%w: subscribe record count %d", ErrMalformed, n)
	}
	return parseSubscribeFields(frame, b[2:4], b[4:6], b[6:8])
}

func (codec4213) clearBody(rx uint16) []byte {
	b := make([]byte, clearFixed4213)
	binary.BigEndian.PutUint16(b[0:2], 1)
	binary.BigEndian.PutUint16(b[2:4], rx)
	return b
}

func (codec4213) parseClear(frame []byte) (uint16, error) {
	if err := needBody(frame, clearFixed4213, "clear"); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(body(frame)[2:4]), nil
}

func (codec4213) receiverPageBody(channels []wireChannel) []byte {
	fixed := 2 + pageRecord4213*len(channels)
	strs := newStringTable(fixed)
	b := make([]byte, fixed)
	binary.BigEndian.PutUint16(b[0:2], uint16(len(channels)))
	for i, ch := range channels {
		r := b[2+i*pageRecord4213:]
		binary.BigEndian.PutUint16(r[0:2], ch.number)
		binary.BigEndian.PutUint16(r[2:4], strs.add(ch.name))
		binary.BigEndian.PutUint16(r[4:6], strs.add(ch.txChannel))
		binary.BigEndian.PutUint16(r[6:8], strs.add(ch.txDevice))
	}
	return append(b, strs.buf...)
}

func (codec4213) parseReceiverPage(frame []byte) ([]wireChannel, error) {
	if err := needBody(frame, 2, "receiver page"); err != nil {
		return nil, err
	}
	count := int(binary.BigEndian.Uint16(body(frame)[0:2]))
	if err := needBody(frame, 2+count*pageRecord4213, "receiver page"); err != nil {
		return nil, err
	}

	channels := make([]wireChannel, 0, count)
	for i := 0; i < count; i++ {
		r := body(frame)[2+i*pageRecord4213:]
		ch := wireChannel{number: binary.BigEndian.Uint16(r[0:2])}
		var err error
		if ch.name, err = readString(frame, binary.BigEndian.Uint16(r[2:4])); err != nil {
			return nil, err
		}
		if ch.txChannel, err = readString(frame, binary.BigEndian.Uint16(r[4:6])); err != nil {
			return nil, err
		}
		if ch.txDevice, err = readString(frame, binary.BigEndian.Uint16(r[6:8])); err != nil {
			return nil, err
		}
		// 4.2.1.3 carries no status flags; a named transmitter implies an active route
		if ch.txDevice != "" {
			ch.flags = channelFlagActive
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// codec4413 lays out the 4.4.1.3 bodies. Names follow the record area directly.
//
// Subscribe: [0-1] count=1 [2-3] flags=1 [4-5] rx [6-7] tx channel off [8-9] tx device off
// Clear:     [0-1] count=1 [2-3] flags=0 [4-5] rx
// Page:      [0-1] count, then per channel: number, flags, name off, tx channel off, tx device off
type codec4413 struct{}

const (
	subscribeFixed4413 = 10
	clearFixed4413     = 6
	pageRecord4413     = 10
)

func (codec4413) subscribeBody(rx uint16, txChannel, txDevice string) []byte {
	strs := newStringTable(subscribeFixed4413)
	b := make([]byte, subscribeFixed4413)
	binary.BigEndian.PutUint16(b[0:2], 1)
	binary.BigEndian.PutUint16(b[2:4], 1)
	binary.BigEndian.PutUint16(b[4:6], rx)
	binary.BigEndian.PutUint16(b[6:8], strs.add(txChannel))
	binary.BigEndian.PutUint16(b[8:10], strs.add(txDevice))
	return append(b, strs.buf...)
}

func (codec4413) parseSubscribe(frame []byte) (uint16, string, string, error) {
	if err := needBody(frame, subscribeFixed4413, "subscribe"); err != nil {
		return 0, "", "", err
	}
	b := body(frame)
	if n := binary.BigEndian.Uint16(b[0:2]); n != 1 {
		return 0, "", "", fmt.Errorf("%w: subscribe record count %d", ErrMalformed, n)
	}
	return parseSubscribeFields(frame, b[4:6], b[6:8], b[8:10])
}

func (codec4413) clearBody(rx uint16) []byte {
	b := make([]byte, clearFixed4413)
	binary.BigEndian.PutUint16(b[0:2], 1)
	binary.BigEndian.PutUint16(b[4:6], rx)
	return b
}

func (codec4413) parseClear(frame []byte) (uint16, error) {
	if err := needBody(frame, clearFixed4413, "clear"); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(body(frame)[4:6]), nil
}

func (codec4413) receiverPageBody(channels []wireChannel) []byte {
	fixed := 2 + pageRecord4413*len(channels)
	strs := newStringTable(fixed)
	b := make([]byte, fixed)
	binary.BigEndian.PutUint16(b[0:2], uint16(len(channels)))
	for i, ch := range channels {
		r := b[2+i*pageRecord4413:]
		binary.BigEndian.PutUint16(r[0:2], ch.number)
		binary.BigEndian.PutUint16(r[2:4], ch.flags)
		binary.BigEndian.PutUint16(r[4:6], strs.add(ch.name))
		binary.BigEndian.PutUint16(r[6:8], strs.add(ch.txChannel))
		binary.BigEndian.PutUint16(r[8:10], strs.add(ch.txDevice))
	}
	return append(b, strs.buf...)
}

func (codec4413) parseReceiverPage(frame []byte) ([]wireChannel, error) {
	if err := needBody(frame, 2, "receiver page"); err != nil {
		return nil, err
	}
	count := int(binary.BigEndian.Uint16(body(frame)[0:2]))
	if err := needBody(frame, 2+count*pageRecord4413, "receiver page"); err != nil {
		return nil, err
	}

	channels := make([]wireChannel, 0, count)
	for i := 0; i < count; i++ {
		r := body(frame)[2+i*pageRecord4413:]
		ch := wireChannel{
			number: binary.BigEndian.Uint16(r[0:2]),
			flags:  binary.BigEndian.Uint16(r[2:4]),
		}
		var err error
		if ch.name, err = readString(frame, binary.BigEndian.Uint16(r[4:6])); err != nil {
			return nil, err
		}
		if ch.txChannel, err = readString(frame, binary.BigEndian.Uint16(r[6:8])); err != nil {
			return nil, err
		}
		if ch.txDevice, err = readString(frame, binary.BigEndian.Uint16(r[8:10])); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func parseSubscribeFields(frame, rx, chanOff, devOff []byte) (uint16, string, string, error) {
	txChannel, err := readString(frame, binary.BigEndian.Uint16(chanOff))
	if err != nil {
		return 0, "", "", err
	}
	txDevice, err := readString(frame, binary.BigEndian.Uint16(devOff))
	if err != nil {
		return 0, "", "", err
	}
	return binary.BigEndian.Uint16(rx), txChannel, txDevice, nil
}
