package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/dante-control/internal/protocol"
	"github.com/muurk/dante-control/internal/registry"
)

// ListOptions controls how device lists are printed
type ListOptions struct {
	Details bool // include the full description of each device
	Plain   bool // no colors or boxes
	Width   int  // 0 uses the terminal width
}

// DescribeDevice returns a plain multi-line description of a device
func DescribeDevice(rec registry.DeviceRecord) string {
	var b strings.Builder
	line := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%-14s %s\n", key+":", value)
		}
	}

	line("Address", formatAddresses(rec))
	line("Host", rec.Hostname)
	line("Model", formatModel(rec))
	line("Software", rec.SoftwareVersion)
	line("Routing", rec.GetMetadata(registry.FamilyARC, "arcp_vers"))
	line("Ports", formatPorts(rec.Ports))
	line("Tx channels", strings.Join(rec.TransmitterChannels, ", "))

	if channels := rec.ReceiverChannelList(); len(channels) > 0 {
		b.WriteString("Rx channels:\n")
		for _, ch := range channels {
			fmt.Fprintf(&b, "  %3d %-12s %s\n", ch.Index, ch.Name, formatRoute(ch))
		}
	}

	if !rec.LastSeen.IsZero() {
		line("Last seen", rec.LastSeen.Format(time.DateTime))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderDevice renders one device as a bordered box
func RenderDevice(rec registry.DeviceRecord, width int, details bool) string {
	var lines []string
	lines = append(lines, DeviceNameStyle.Render(rec.Name))

	kv := func(key, value string) {
		if value != "" {
			lines = append(lines, KeyStyle.Render(key+":")+" "+ValueStyle.Render(value))
		}
	}
	kv("Address", formatAddresses(rec))

	if details {
		kv("Host", rec.Hostname)
		kv("Model", formatModel(rec))
		kv("Software", rec.SoftwareVersion)
		kv("Ports", formatPorts(rec.Ports))
		kv("Tx channels", strings.Join(rec.TransmitterChannels, ", "))

		for _, ch := range rec.ReceiverChannelList() {
			lines = append(lines, renderReceiverChannel(ch))
		}
	}

	return BoxStyle(width).Render(strings.Join(lines, "\n"))
}

func renderReceiverChannel(ch protocol.ReceiverChannel) string {
	label := fmt.Sprintf("  %3d %-12s ", ch.Index, ch.Name)
	switch {
	case !ch.Subscribed():
		return IdleStyle.Render(label + IdleMarker + " " + formatRoute(ch))
	case ch.Active:
		return SubscribedStyle.Render(label + SubscribedMarker + " " + formatRoute(ch))
	default:
		return UnresolvedStyle.Render(label + SubscribedMarker + " " + formatRoute(ch))
	}
}

// PrintDeviceList writes every device in records
func PrintDeviceList(w io.Writer, records []registry.DeviceRecord, opts ListOptions) {
	if opts.Plain {
		for _, rec := range records {
			_, _ = fmt.Fprintln(w, rec.Name)
			if opts.Details {
				_, _ = fmt.Fprintln(w, DescribeDevice(rec))
				_, _ = fmt.Fprintln(w, Separator)
			}
		}
		return
	}

	width := opts.Width
	if width == 0 {
		width = GetTerminalWidth()
	}
	for _, rec := range records {
		_, _ = fmt.Fprintln(w, RenderDevice(rec, width, opts.Details))
	}
}

// RenderDeviceListTitle renders the heading above a device list
func RenderDeviceListTitle(count int, plain bool) string {
	if plain {
		return "Devices Found:\n"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render("DEVICES FOUND"),
		SubtitleStyle.Render(fmt.Sprintf("%d device(s)", count)),
	) + "\n"
}

func formatAddresses(rec registry.DeviceRecord) string {
	if len(rec.Addresses) <= 1 {
		return rec.PrimaryIP
	}
	return fmt.Sprintf("%s (%s)", rec.PrimaryIP, strings.Join(rec.Addresses, ", "))
}

func formatModel(rec registry.DeviceRecord) string {
	switch {
	case rec.Model != "" && rec.Manufacturer != "":
		return fmt.Sprintf("%s (%s)", rec.Model, rec.Manufacturer)
	case rec.Model != "":
		return rec.Model
	default:
		return rec.Manufacturer
	}
}

func formatPorts(ports map[registry.Family]int) string {
	if len(ports) == 0 {
		return ""
	}
	families := make([]registry.Family, 0, len(ports))
	for f := range ports {
		families = append(families, f)
	}
	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })

	parts := make([]string, len(families))
	for i, f := range families {
		parts[i] = fmt.Sprintf("%s=%d", f, ports[f])
	}
	return strings.Join(parts, " ")
}

func formatRoute(ch protocol.ReceiverChannel) string {
	if !ch.Subscribed() {
		return "(none)"
	}
	route := "<- " + ch.TxChannel + "@" + ch.TxDevice
	if !ch.Active {
		route += " (unresolved)"
	}
	return route
}
