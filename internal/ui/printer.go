package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muurk/dante-control/internal/control"
	"github.com/muurk/dante-control/internal/registry"
)

// Detail is one key/value line of a result box
type Detail struct {
	Key   string
	Value string
}

// Printer writes styled or plain output for CLI commands.
type Printer struct {
	out   io.Writer
	width int
	plain bool
}

// NewPrinter creates a Printer. If w is nil, os.Stdout is used. Plain output
// is selected when plain is set or stdout is not a terminal.
func NewPrinter(w io.Writer, plain bool) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
		plain: plain || !IsTerminal(),
	}
}

// Plain reports whether the printer writes unstyled text
func (p *Printer) Plain() bool {
	return p.plain
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintDevices prints a titled device list
func (p *Printer) PrintDevices(records []registry.DeviceRecord, details bool) {
	_, _ = fmt.Fprint(p.out, RenderDeviceListTitle(len(records), p.plain))
	PrintDeviceList(p.out, records, ListOptions{Details: details, Plain: p.plain, Width: p.width})
}

// PrintSuccess prints the outcome of a successful operation
func (p *Printer) PrintSuccess(title string, details ...Detail) {
	p.Println(RenderSuccess(title, details, p.width, p.plain))
}

// PrintError prints a failed operation with a troubleshooting hint
func (p *Printer) PrintError(title string, err error) {
	p.Println(RenderFailure(title, err, p.width, p.plain))
}

// RenderSuccess renders a success result
func RenderSuccess(title string, details []Detail, width int, plain bool) string {
	lines := []string{SuccessMarker + "  " + title}
	for _, d := range details {
		lines = append(lines, fmt.Sprintf("   %-14s %s", d.Key+":", d.Value))
	}
	if plain {
		return strings.Join(lines, "\n")
	}

	lines[0] = SuccessTitleStyle.Render(lines[0])
	return ResultBoxStyle(width, SuccessColor).Render(strings.Join(lines, "\n"))
}

// RenderFailure renders a failed result with the short error message and,
// for control errors, a troubleshooting hint
func RenderFailure(title string, err error, width int, plain bool) string {
	head := FailureMarker + "  " + title
	msg := "Error: " + control.GetShortErrorMessage(err)
	hint := control.GetTroubleshootingHint(err)

	if plain {
		out := head + "\n   " + msg
		if hint != "" {
			out += "\n   " + hint
		}
		return out
	}

	lines := []string{
		ErrorTitleStyle.Render(head),
		ErrorMessageStyle.Render("   " + msg),
	}
	if hint != "" {
		lines = append(lines, "", HintStyle.Render("   "+hint))
	}
	return ResultBoxStyle(width, ErrorColor).Render(strings.Join(lines, "\n"))
}
