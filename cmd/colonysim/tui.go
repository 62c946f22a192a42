package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ftahirops/colonysim/evaluator"
	"github.com/ftahirops/colonysim/kernel"
	"github.com/ftahirops/colonysim/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
)

type tickMsg time.Time

// consoleModel is the live console's bubbletea.Model: every tickMsg
// drives one kernel.Tick() call and re-renders the latest KPI sample,
// mirroring the teacher's ui.App (tickMsg -> collect -> re-render) with
// "collect real metrics" replaced by "advance the simulation."
type consoleModel struct {
	k        *kernel.Kernel
	interval time.Duration
	history  []model.KPISample
}

func runConsole(k *kernel.Kernel, interval time.Duration) error {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	p := tea.NewProgram(consoleModel{k: k, interval: interval}, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.k.Tick()
		if sample, ok := m.k.History.Latest(); ok {
			m.history = append(m.history, sample)
			if len(m.history) > 20 {
				m.history = m.history[len(m.history)-20:]
			}
		}
		if outcome, _ := m.k.Outcome(); outcome != evaluator.None {
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
	}
	return m, nil
}

func (m consoleModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("colonysim — tick %d", m.k.TickNumber())))
	b.WriteString("\n\n")

	if len(m.history) == 0 {
		b.WriteString(labelStyle.Render("warming up...\n"))
		return b.String()
	}
	latest := m.history[len(m.history)-1]

	b.WriteString(kpiLine("uptime", fmt.Sprintf("%.1f%%", latest.Uptime*100), latest.Uptime >= 0.9))
	b.WriteString(kpiLine("deadline hit rate", fmt.Sprintf("%.1f%%", latest.DeadlineHitRate*100), latest.DeadlineHitRate >= 0.9))
	b.WriteString(kpiLine("corruption field", fmt.Sprintf("%.3f", latest.CorruptionField), latest.CorruptionField < 0.5))
	b.WriteString(kpiLine("sticky workers", fmt.Sprintf("%d", latest.StickyWorkers), latest.StickyWorkers == 0))
	b.WriteString(kpiLine("power deficit this tick", fmt.Sprintf("%v", latest.PowerDeficitTick), !latest.PowerDeficitTick))
	b.WriteString(kpiLine("black swans fired (window)", fmt.Sprintf("%d", sumBlackSwans(m.history)), true))

	res := m.k.Store.Resources
	b.WriteString(kpiLine("power draw", powerLine(res.PowerDraw, res.PowerCapacity), res.PowerDraw <= res.PowerCapacity))
	b.WriteString(kpiLine("bandwidth used", bandwidthLine(res.BandwidthUsed, res.BandwidthCapacity), res.BandwidthUsed <= res.BandwidthCapacity))

	if outcome, tick := m.k.Outcome(); outcome != evaluator.None {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("run ended at tick %d: %s", tick, outcome)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

func kpiLine(label, value string, healthy bool) string {
	style := okStyle
	if !healthy {
		style = warnStyle
	}
	return fmt.Sprintf("%-28s %s\n", labelStyle.Render(label+":"), style.Render(value))
}

// powerLine renders a draw/capacity pair with thousands separators —
// colony power draw runs into the thousands of units even on modest
// scenarios, and bare digit runs are hard to eyeball at a glance.
func powerLine(draw, capacity float64) string {
	return fmt.Sprintf("%s / %s", humanize.Commaf(draw), humanize.Commaf(capacity))
}

// bandwidthLine renders a used/capacity pair as byte-rate strings (§4.5
// bandwidth is tracked in bytes/tick), the same unit humanize.Bytes
// formats host telemetry in.
func bandwidthLine(used, capacity float64) string {
	return fmt.Sprintf("%s/tick / %s/tick", humanize.Bytes(uint64(used)), humanize.Bytes(uint64(capacity)))
}

func sumBlackSwans(history []model.KPISample) int {
	total := 0
	for _, s := range history {
		total += s.BlackSwansFired
	}
	return total
}
