package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrVersionParse is returned for version strings that match no known release line.
var ErrVersionParse = errors.New("unrecognized Dante protocol version")

// ErrChannelIndex is returned when a receiver channel index is outside the range
// allowed by the version's index base.
var ErrChannelIndex = errors.New("receiver channel index out of range")

// Version identifies a Dante control protocol release line.
type Version int

const (
	// VersionUnknown is the zero value and never valid on the wire.
	VersionUnknown Version = iota
	// Version4213 is the 4.2.1.3 release line.
	Version4213
	// Version4413 is the 4.4.1.3 release line.
	Version4413
)

// DefaultControlPort is the UDP port Dante devices accept ARC requests on.
const DefaultControlPort = 4440

// Profile describes the per-version wire conventions.
type Profile struct {
	Version     Version
	ProtocolID  uint16
	ControlPort int

	// IndexBase is the first valid caller-facing receiver channel index.
	IndexBase int

	codec codec
}

var profiles = map[Version]*Profile{
	Version4213: {
		Version:     Version4213,
		ProtocolID:  0x27FF,
		ControlPort: DefaultControlPort,
		IndexBase:   0,
		codec:       codec4213{},
	},
	Version4413: {
		Version:     Version4413,
		ProtocolID:  0x2809,
		ControlPort: DefaultControlPort,
		IndexBase:   1,
		codec:       codec4413{},
	},
}

// ParseVersion maps a version string such as "4.4.1.3" to a Version.
func ParseVersion(s string) (Version, error) {
	switch strings.TrimSpace(s) {
	case "4.2.1.3":
		return Version4213, nil
	case "4.4.1.3":
		return Version4413, nil
	default:
		return VersionUnknown, fmt.Errorf("%w: %q", ErrVersionParse, s)
	}
}

// Versions returns every supported version in release order.
func Versions() []Version {
	return []Version{Version4213, Version4413}
}

// String returns the dotted release string
func (v Version) String() string {
	switch v {
	case Version4213:
		return "4.2.1.3"
	case Version4413:
		return "4.4.1.3"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// Valid reports whether v is a supported version.
func (v Version) Valid() bool {
	_, ok := profiles[v]
	return ok
}

// Profile returns the wire profile for v.
func (v Version) Profile() (*Profile, error) {
	p, ok := profiles[v]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVersionParse, v)
	}
	return p, nil
}

// WireChannel converts a caller-facing receiver index to the 1-based wire number.
func (p *Profile) WireChannel(index int) (uint16, error) {
	n := index - p.IndexBase + 1
	if n < 1 || n > 0xFFFF {
		return 0, fmt.Errorf("%w: %d (version %s counts from %d)", ErrChannelIndex, index, p.Version, p.IndexBase)
	}
	return uint16(n), nil
}

// CallerIndex converts a 1-based wire channel number to the caller-facing index.
func (p *Profile) CallerIndex(wire uint16) int {
	return int(wire) - 1 + p.IndexBase
}
