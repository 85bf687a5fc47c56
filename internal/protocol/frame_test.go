package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestBuildFrame(t *testing.T) {
	h := Header{ProtocolID: 0x2809, TransactionID: 0xBEEF, Opcode: OpcodeClear, Status: StatusOK}
	frame, err := BuildFrame(h, []byte{0xAA, 0xBB})
	if err != nil {
		t.Fatalf("BuildFrame() error = %v", err)
	}

	want := []byte{0x28, 0x09, 0x00, 0x0C, 0xBE, 0xEF, 0x30, 0x14, 0x00, 0x01, 0xAA, 0xBB}
	if !bytes.Equal(frame, want) {
		t.Errorf("BuildFrame() = % x, want % x", frame, want)
	}

	got, err := ParseHeader(frame)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	h.Length = 12
	if got != h {
		t.Errorf("ParseHeader() = %v, want %v", got, h)
	}
}

func TestBuildFrame_TooLarge(t *testing.T) {
	_, err := BuildFrame(Header{ProtocolID: 0x2809, Opcode: OpcodeSubscribe}, make([]byte, MaxFrameSize))
	if err == nil {
		t.Fatal("BuildFrame() expected error for oversize body")
	}
}

func TestParseHeader_Short(t *testing.T) {
	_, err := ParseHeader([]byte{0x28, 0x09, 0x00})
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("ParseHeader() error = %v, want ErrMalformed", err)
	}
}

func TestValidateFrame(t *testing.T) {
	good, _ := BuildFrame(Header{ProtocolID: 0x27FF, Opcode: OpcodeSubscribe}, nil)
	unknownOp, _ := BuildFrame(Header{ProtocolID: 0x27FF, Opcode: 0x4000}, nil)

	tests := []struct {
		name    string
		version Version
		frame   []byte
		wantErr error
	}{
		{"valid 4.2.1.3", Version4213, good, nil},
		{"wrong version", Version4413, good, ErrMalformed},
		{"unknown opcode", Version4213, unknownOp, ErrMalformed},
		{"truncated", Version4213, good[:4], ErrMalformed},
		{"unknown version", VersionUnknown, good, ErrVersionParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFrame(tt.version, tt.frame)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFrame() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFrame() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadString(t *testing.T) {
	frame := append(make([]byte, HeaderSize), []byte("In1\x00Out\x00tail")...)

	tests := []struct {
		name    string
		off     uint16
		want    string
		wantErr bool
	}{
		{"absent", 0, "", false},
		{"first", 10, "In1", false},
		{"second", 14, "Out", false},
		{"inside header", 4, "", true},
		{"past end", uint16(len(frame)), "", true},
		{"unterminated", 18, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readString(frame, tt.off)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpcodeName(t *testing.T) {
	if got := OpcodeName(OpcodeSubscribe); got != "subscribe" {
		t.Errorf("OpcodeName(subscribe) = %q", got)
	}
	if got := OpcodeName(0x1234); !strings.HasPrefix(got, "unknown") {
		t.Errorf("OpcodeName(0x1234) = %q, want unknown(...)", got)
	}
}
