package protocol

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecode(t *testing.T) {
	ok, err := EncodeReply(Version4413, 42, OpcodeSubscribe, StatusOK)
	if err != nil {
		t.Fatalf("EncodeReply() error = %v", err)
	}
	rejected, err := EncodeReply(Version4213, 43, OpcodeSubscribe, StatusUnknownTransmitter)
	if err != nil {
		t.Fatalf("EncodeReply() error = %v", err)
	}

	tests := []struct {
		name       string
		version    Version
		data       []byte
		wantErr    bool
		wantOK     bool
		wantTxID   uint16
		wantStatus uint16
	}{
		{
			name:       "acknowledgement",
			version:    Version4413,
			data:       ok,
			wantOK:     true,
			wantTxID:   42,
			wantStatus: StatusOK,
		},
		{
			name:       "negative acknowledgement",
			version:    Version4213,
			data:       rejected,
			wantOK:     false,
			wantTxID:   43,
			wantStatus: StatusUnknownTransmitter,
		},
		{
			name:    "wrong protocol id for version",
			version: Version4213,
			data:    ok,
			wantErr: true,
		},
		{
			name:    "truncated",
			version: Version4413,
			data:    ok[:6],
			wantErr: true,
		},
		{
			name:    "length mismatch",
			version: Version4413,
			data:    append(append([]byte{}, ok...), 0x00),
			wantErr: true,
		},
		{
			name:    "unknown version",
			version: VersionUnknown,
			data:    ok,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := Decode(tt.version, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if reply.OK() != tt.wantOK {
				t.Errorf("reply.OK() = %v, want %v", reply.OK(), tt.wantOK)
			}
			if reply.Header.TransactionID != tt.wantTxID {
				t.Errorf("transaction id = %d, want %d", reply.Header.TransactionID, tt.wantTxID)
			}
			if reply.Header.Status != tt.wantStatus {
				t.Errorf("status = 0x%04x, want 0x%04x", reply.Header.Status, tt.wantStatus)
			}
		})
	}
}

func TestDecodeRequest_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		version Version
		req     Request
	}{
		{"subscribe 4.2.1.3", Version4213, &SubscribeRequest{RxChannel: 0, TxDevice: "Mixer1", TxChannel: "Out1"}},
		{"subscribe 4.4.1.3", Version4413, &SubscribeRequest{RxChannel: 2, TxDevice: "Mixer1", TxChannel: "Out3"}},
		{"clear 4.2.1.3", Version4213, &ClearRequest{RxChannel: 5}},
		{"clear 4.4.1.3", Version4413, &ClearRequest{RxChannel: 64}},
		{"query 4.4.1.3", Version4413, &ReceiverQuery{Start: 17}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.version, 11, tt.req)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			h, got, err := DecodeRequest(tt.version, frame)
			if err != nil {
				t.Fatalf("DecodeRequest() error = %v", err)
			}
			if h.TransactionID != 11 {
				t.Errorf("transaction id = %d, want 11", h.TransactionID)
			}
			if !reflect.DeepEqual(got, tt.req) {
				t.Errorf("DecodeRequest() = %#v, want %#v", got, tt.req)
			}
		})
	}
}

func TestDecodeRequest_Malformed(t *testing.T) {
	frame, err := Encode(Version4413, 1, &SubscribeRequest{RxChannel: 1, TxDevice: "Mixer1", TxChannel: "Out1"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// point the device name past the end of the frame
	bad := append([]byte{}, frame...)
	bad[18], bad[19] = 0x00, 0xF0

	if _, _, err := DecodeRequest(Version4413, bad); !errors.Is(err, ErrMalformed) {
		t.Errorf("DecodeRequest() error = %v, want ErrMalformed", err)
	}

	// drop the terminating NUL of the last string and fix up the length
	cut := append([]byte{}, frame[:len(frame)-1]...)
	cut[3] = byte(len(cut))
	if _, _, err := DecodeRequest(Version4413, cut); !errors.Is(err, ErrMalformed) {
		t.Errorf("DecodeRequest() unterminated error = %v, want ErrMalformed", err)
	}
}

func TestDecodeReceiverChannels(t *testing.T) {
	channels := []ReceiverChannel{
		{Index: 1, Name: "In1", TxChannel: "Out3", TxDevice: "Mixer1", Active: true},
		{Index: 2, Name: "In2"},
		{Index: 3, Name: "Vocal", TxChannel: "Out1", TxDevice: "StageBox"},
	}

	for _, v := range Versions() {
		t.Run(v.String(), func(t *testing.T) {
			p, _ := v.Profile()
			in := make([]ReceiverChannel, len(channels))
			copy(in, channels)
			for i := range in {
				in[i].Index = in[i].Index - 1 + p.IndexBase
			}

			frame, err := EncodeReceiverPage(v, 5, StatusOK, in)
			if err != nil {
				t.Fatalf("EncodeReceiverPage() error = %v", err)
			}
			reply, err := Decode(v, frame)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			got, err := DecodeReceiverChannels(v, reply)
			if err != nil {
				t.Fatalf("DecodeReceiverChannels() error = %v", err)
			}

			want := make([]ReceiverChannel, len(in))
			copy(want, in)
			if v == Version4213 {
				// no flags on the wire: a named transmitter reads back as active
				want[2].Active = true
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("DecodeReceiverChannels() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestDecodeReceiverChannels_WrongOpcode(t *testing.T) {
	frame, _ := EncodeReply(Version4413, 1, OpcodeClear, StatusOK)
	reply, err := Decode(Version4413, frame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, err := DecodeReceiverChannels(Version4413, reply); !errors.Is(err, ErrMalformed) {
		t.Errorf("DecodeReceiverChannels() error = %v, want ErrMalformed", err)
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		code uint16
		want string
	}{
		{StatusOK, "ok"},
		{StatusUnknownTransmitter, "unknown transmitter device or channel"},
		{StatusChannelBusy, "receiver channel busy"},
		{0x0099, "device error 0x0099"},
	}
	for _, tt := range tests {
		if got := StatusText(tt.code); got != tt.want {
			t.Errorf("StatusText(0x%04x) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
