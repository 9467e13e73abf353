// Package tui renders the optional --tui live dashboard: a
// read-only bubbletea program that polls internal/session.Snapshot and
// draws breakpoint hit counts, the thread count and the busiest logpoint's
// hit plot, grounded on the teacher's tui_model.go tick-driven Update loop
// but reduced to a single view (no tabs, no process selection; the only
// input handled is the quit key).
package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/jdiag-bridge/internal/session"
	"github.com/mabhi256/jdiag-bridge/utils"
)

var quitKey = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))

// SnapshotFunc is polled on every tick; kept as a closure so the dashboard
// never imports the session package's mutex directly.
type SnapshotFunc func() session.Snapshot

type tickMsg time.Time

// Model is the dashboard's bubbletea state.
type Model struct {
	snapshot SnapshotFunc
	interval time.Duration

	width, height int

	started time.Time
}

func NewModel(snapshot SnapshotFunc, interval time.Duration) Model {
	return Model{
		snapshot: snapshot,
		interval: interval,
		started:  time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.scheduleTick()
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tickMsg:
		return m, m.scheduleTick()
	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	snap := m.snapshot()
	width := m.width
	if width <= 0 {
		width = 80
	}

	status := StatusDisconnected
	if snap.Attached {
		status = StatusAttached
	}
	if snap.Disconnected {
		status = StatusVMDisconnected
	}

	header := TitleStyle.Render("jdiag-bridge dashboard") + "  " + renderStatus(status, snap)
	uptime := MutedStyle.Render(fmt.Sprintf("uptime %s", utils.FormatDuration(time.Since(m.started))))

	sections := []string{header, uptime, ""}

	if !snap.Attached {
		sections = append(sections, InfoStyle.Render("waiting for attach()..."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections = append(sections, fmt.Sprintf("threads: %d    breakpoints: %d", snap.ThreadCount, snap.BreakpointCount))
	sections = append(sections, "")
	sections = append(sections, renderBreakpointBars(snap, width)...)

	if plot := renderLogpointRate(snap, width); plot != "" {
		sections = append(sections, "", plot)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type dashboardStatus int

const (
	StatusDisconnected dashboardStatus = iota
	StatusAttached
	StatusVMDisconnected
)

func renderStatus(s dashboardStatus, snap session.Snapshot) string {
	switch s {
	case StatusAttached:
		return GoodStyle.Render("● attached " + snap.VMName)
	case StatusVMDisconnected:
		return CriticalStyle.Render("● vm disconnected")
	default:
		return MutedStyle.Render("○ not attached")
	}
}

// styleRenderer adapts lipgloss.Style's variadic Render to the single-string
// utils.Renderer interface the chart package expects.
type styleRenderer struct{ style lipgloss.Style }

func (r styleRenderer) Render(text string) string { return r.style.Render(text) }

// renderLogpointRate plots the hit-count-over-time sparkline for the
// logpoint with the most recorded hits, reusing the ring entries
// session.Snapshot already copies out of the breakpoint registry.
func renderLogpointRate(snap session.Snapshot, width int) string {
	var busiestID int
	var hits int
	for id, recent := range snap.RecentLogHits {
		if len(recent) > hits {
			busiestID, hits = id, len(recent)
		}
	}
	if hits < 2 {
		return ""
	}

	recent := snap.RecentLogHits[busiestID]
	values := make([]float64, len(recent))
	timestamps := make([]time.Time, len(recent))
	for i, h := range recent {
		values[i] = float64(h.HitCount)
		timestamps[i] = time.UnixMilli(h.TimestampMs)
	}

	config := utils.ChartConfig{
		Width:  max(utils.MinChartWidth, width),
		Height: 8,
		Styles: utils.ChartStyles{
			Muted:    styleRenderer{MutedStyle},
			Good:     styleRenderer{GoodStyle},
			Info:     styleRenderer{InfoStyle},
			Critical: styleRenderer{CriticalStyle},
			Warning:  styleRenderer{WarningStyle},
		},
		Legend: fmt.Sprintf("logpoint #%d hit count over time", busiestID),
	}

	return utils.CreateSimplePlot(values, timestamps, "hits", config)
}

func renderBreakpointBars(snap session.Snapshot, width int) []string {
	ids := make([]int, 0, len(snap.BreakpointHits))
	for id := range snap.BreakpointHits {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	if len(ids) == 0 {
		return []string{MutedStyle.Render("no breakpoints set")}
	}

	maxHits := 1
	for _, id := range ids {
		if h := snap.BreakpointHits[id]; h > maxHits {
			maxHits = h
		}
	}

	config := DefaultBarConfig(width - DefaultLabelWidth - 20)
	var lines []string
	for _, id := range ids {
		hits := snap.BreakpointHits[id]
		pct := float64(hits) / float64(maxHits) * 100
		bar := CreateHorizontalBar(BarData{
			Label:      fmt.Sprintf("bp #%d", id),
			Value:      float64(hits),
			Percentage: pct,
			Style:      lipgloss.NewStyle().Foreground(InfoColor),
			Suffix:     "hits",
		}, config)
		lines = append(lines, bar)
	}
	return lines
}
