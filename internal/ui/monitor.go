package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/dante-control/internal/registry"
)

// Snapshotter is the read side of the device registry
type Snapshotter interface {
	All() []registry.DeviceRecord
	Generation() uint64
}

// SpinnerStyle is for the activity spinner
var SpinnerStyle = lipgloss.NewStyle().Foreground(PrimaryColor)

const scanTickInterval = 100 * time.Millisecond

type scanTickMsg time.Time

type monitorTickMsg time.Time

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return s
}

// ScanModel shows a progress bar while discovery runs for a fixed time
type ScanModel struct {
	source    Snapshotter
	duration  time.Duration
	start     time.Time
	spinner   spinner.Model
	bar       progress.Model
	found     int
	done      bool
	cancelled bool
}

// NewScanModel creates a scan progress model for the given wait
func NewScanModel(source Snapshotter, duration time.Duration) ScanModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40
	return ScanModel{
		source:   source,
		duration: duration,
		start:    time.Now(),
		spinner:  newSpinner(),
		bar:      bar,
	}
}

func scanTick() tea.Cmd {
	return tea.Tick(scanTickInterval, func(t time.Time) tea.Msg { return scanTickMsg(t) })
}

// Init implements tea.Model
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, scanTick())
}

// Update implements tea.Model
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			return m, tea.Quit
		}

	case scanTickMsg:
		m.found = len(m.source.All())
		if time.Time(msg).Sub(m.start) >= m.duration {
			m.done = true
			return m, tea.Quit
		}
		return m, scanTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m ScanModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	percent := 1.0
	if m.duration > 0 {
		percent = min(1.0, float64(time.Since(m.start))/float64(m.duration))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		TitleStyle.Render(m.spinner.View()+" DISCOVERING DEVICES"),
		"",
		lipgloss.NewStyle().PaddingLeft(2).Render(m.bar.ViewAs(percent)),
		"",
		SubtitleStyle.Render(fmt.Sprintf("%d device(s) found", m.found)),
		"",
	)
}

// Cancelled reports whether the user quit before the scan finished
func (m ScanModel) Cancelled() bool {
	return m.cancelled
}

// RunScan shows scan progress until duration has passed. It returns true if
// the user cancelled.
func RunScan(source Snapshotter, duration time.Duration) (bool, error) {
	final, err := tea.NewProgram(NewScanModel(source, duration)).Run()
	if err != nil {
		return false, err
	}
	return final.(ScanModel).Cancelled(), nil
}

// monitorKeyMap defines key bindings for the monitor screen
type monitorKeyMap struct {
	Details key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Details, k.Refresh, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Details, k.Refresh, k.Quit}}
}

// MonitorModel redraws the device list every interval while discovery runs
type MonitorModel struct {
	source     Snapshotter
	interval   time.Duration
	details    bool
	spinner    spinner.Model
	help       help.Model
	keys       monitorKeyMap
	devices    []registry.DeviceRecord
	generation uint64
	loaded     bool
	updated    time.Time
	width      int
}

// NewMonitorModel creates the interactive monitor view
func NewMonitorModel(source Snapshotter, interval time.Duration, details bool) MonitorModel {
	return MonitorModel{
		source:   source,
		interval: interval,
		details:  details,
		spinner:  newSpinner(),
		help:     help.New(),
		keys: monitorKeyMap{
			Details: key.NewBinding(
				key.WithKeys("d"),
				key.WithHelp("d", "toggle details"),
			),
			Refresh: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "refresh"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
		width: GetTerminalWidth(),
	}
}

func monitorTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return monitorTickMsg(t) })
}

// Init implements tea.Model
func (m MonitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return monitorTickMsg(time.Now()) })
}

// refresh reloads the device list if the registry changed
func (m *MonitorModel) refresh(now time.Time) {
	gen := m.source.Generation()
	if m.loaded && gen == m.generation {
		return
	}
	m.devices = m.source.All()
	m.generation = gen
	m.loaded = true
	m.updated = now
}

// Update implements tea.Model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Details):
			m.details = !m.details
		case key.Matches(msg, m.keys.Refresh):
			m.loaded = false
			m.refresh(time.Now())
		}

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)

	case monitorTickMsg:
		m.refresh(time.Time(msg))
		return m, monitorTick(m.interval)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m MonitorModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.spinner.View() + " MONITORING DANTE DEVICES"))
	b.WriteString("\n")

	status := fmt.Sprintf("%d device(s)", len(m.devices))
	if !m.updated.IsZero() {
		status += " · updated " + m.updated.Format(time.TimeOnly)
	}
	b.WriteString(SubtitleStyle.Render(status))
	b.WriteString("\n\n")

	if len(m.devices) == 0 {
		b.WriteString(SubtitleStyle.Render("Waiting for devices..."))
		b.WriteString("\n")
	}
	for _, rec := range m.devices {
		b.WriteString(RenderDevice(rec, m.width, m.details))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StatusBarStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// Devices returns the devices currently shown
func (m MonitorModel) Devices() []registry.DeviceRecord {
	return m.devices
}

// RunMonitor runs the interactive monitor in the alternate screen until the
// user quits
func RunMonitor(source Snapshotter, interval time.Duration, details bool) error {
	_, err := tea.NewProgram(NewMonitorModel(source, interval, details), tea.WithAltScreen()).Run()
	return err
}
