package discovery

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/dante-control/internal/registry"
)

// Record is one raw mDNS service record as seen on the wire, for diagnostics
type Record struct {
	Family   registry.Family
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     int
	IPv4     []string
	IPv6     []string
	Text     []string
	TTL      uint32
}

// String returns a one-line summary of the record
func (r Record) String() string {
	return fmt.Sprintf("%s.%s%s host=%s port=%d ipv4=%v ttl=%d",
		r.Instance, r.Service, r.Domain, r.Host, r.Port, r.IPv4, r.TTL)
}

// Dump browses one family for window and calls fn for every record received.
// Nothing is merged into the registry.
func (e *Engine) Dump(ctx context.Context, family registry.Family, window time.Duration, fn func(Record)) error {
	service := ServiceType(family)
	if service == "" {
		return fmt.Errorf("unknown service family %v", family)
	}

	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, entryBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			fn(recordFromEntry(family, entry))
		}
	}()

	if err := e.Browse(ctx, service, e.domain(), entries); err != nil {
		cancel()
		<-done
		return err
	}

	<-ctx.Done()
	<-done
	return nil
}

// PrintRecords browses one family for window and writes every record to w in
// a multi-line human-readable form.
func (e *Engine) PrintRecords(family registry.Family, window time.Duration, w io.Writer) error {
	count := 0
	err := e.Dump(context.Background(), family, window, func(r Record) {
		count++
		fmt.Fprintf(w, "%s\n", r.Instance)
		fmt.Fprintf(w, "  service: %s%s\n", r.Service, r.Domain)
		fmt.Fprintf(w, "  host:    %s\n", r.Host)
		fmt.Fprintf(w, "  port:    %d\n", r.Port)
		if len(r.IPv4) > 0 {
			fmt.Fprintf(w, "  ipv4:    %s\n", strings.Join(r.IPv4, ", "))
		}
		if len(r.IPv6) > 0 {
			fmt.Fprintf(w, "  ipv6:    %s\n", strings.Join(r.IPv6, ", "))
		}
		fmt.Fprintf(w, "  ttl:     %d\n", r.TTL)
		for _, txt := range r.Text {
			fmt.Fprintf(w, "  txt:     %s\n", txt)
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d %s record(s) in %s\n", count, ServiceType(family), window)
	return nil
}

func recordFromEntry(family registry.Family, entry *zeroconf.ServiceEntry) Record {
	r := Record{
		Family:   family,
		Instance: entry.Instance,
		Service:  entry.Service,
		Domain:   entry.Domain,
		Host:     entry.HostName,
		Port:     entry.Port,
		Text:     append([]string(nil), entry.Text...),
		TTL:      entry.TTL,
	}
	if r.Service != "" && !strings.HasSuffix(r.Service, ".") {
		r.Service += "."
	}
	for _, ip := range entry.AddrIPv4 {
		r.IPv4 = append(r.IPv4, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		r.IPv6 = append(r.IPv6, ip.String())
	}
	return r
}
