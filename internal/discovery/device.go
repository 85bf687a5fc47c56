package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/dante-control/internal/registry"
)

// ErrMalformedEntry is returned for service entries that cannot describe a device.
var ErrMalformedEntry = errors.New("malformed service entry")

// TXT keys mapped onto DeviceRecord fields
const (
	txtServerVersion = "server_vers"
	txtManufacturer  = "mf"
	txtModel         = "model"
)

// parseServiceEntry converts a zeroconf service entry of family into a fact
// about the advertising device.
func parseServiceEntry(family registry.Family, entry *zeroconf.ServiceEntry) (*registry.Fact, error) {
	if entry == nil {
		return nil, fmt.Errorf("%w: nil entry", ErrMalformedEntry)
	}

	instance := unescapeInstance(entry.Instance)
	if instance == "" {
		return nil, fmt.Errorf("%w: empty instance name", ErrMalformedEntry)
	}

	var addrs []string
	for _, ip := range entry.AddrIPv4 {
		if v4 := ip.To4(); v4 != nil {
			addrs = append(addrs, v4.String())
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %q has no IPv4 address", ErrMalformedEntry, instance)
	}

	fact := &registry.Fact{
		Family:    family,
		Name:      instance,
		Hostname:  entry.HostName,
		Addresses: addrs,
		Port:      entry.Port,
		Text:      parseText(entry.Text),
		SeenAt:    time.Now(),
	}

	if family == registry.FamilyCHAN {
		at := strings.LastIndex(instance, "@")
		if at <= 0 || at == len(instance)-1 {
			return nil, fmt.Errorf("%w: channel instance %q is not Channel@Device", ErrMalformedEntry, instance)
		}
		fact.TransmitterChannel = instance[:at]
		fact.Name = instance[at+1:]
	}

	fact.SoftwareVersion = fact.Text[txtServerVersion]
	fact.Manufacturer = fact.Text[txtManufacturer]
	fact.Model = fact.Text[txtModel]

	return fact, nil
}

// parseText splits TXT records in "key=value" format. A bare key maps to "".
func parseText(txt []string) map[string]string {
	if len(txt) == 0 {
		return nil
	}
	metadata := make(map[string]string, len(txt))
	for _, t := range txt {
		parts := strings.SplitN(t, "=", 2)
		if parts[0] == "" {
			continue
		}
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// unescapeInstance undoes DNS presentation escapes ("\ " and "\DDD") in
// instance names as handed over by the resolver.
func unescapeInstance(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			if n, err := strconv.Atoi(s[i+1 : i+4]); err == nil && n < 256 {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i+1])
		i++
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
