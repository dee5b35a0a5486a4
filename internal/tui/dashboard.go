// Package tui renders a read-only live dashboard over the watchdog store:
// open incidents, per-target uptime and response times. It runs no probes;
// the check job owns all writes.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Cortado-Group/website-watchdog/internal/storage"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Padding(0, 1).
			MarginBottom(1)

	metricLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	metricValueStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("255"))

	upStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42"))

	downStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	graphUpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	graphDownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("170"))

	sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
)

const recentChecksWindow = 60

type targetState struct {
	target   storage.Target
	incident *storage.Incident
	checks   []storage.Check
}

type DashboardModel struct {
	db            *storage.Database
	states        []targetState
	incidentTable table.Model
	openIncidents int
	width         int
	height        int
	lastUpdate    time.Time
	loadErr       error
}

type tickMsg time.Time

func NewDashboard(db *storage.Database) DashboardModel {
	columns := []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Target", Width: 20},
		{Title: "Started", Width: 20},
		{Title: "Failures", Width: 9},
		{Title: "Alerted", Width: 18},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(6),
	)

	m := DashboardModel{
		db:            db,
		incidentTable: t,
	}
	m.loadData()
	return m
}

func (m *DashboardModel) loadData() {
	targets, err := m.db.ListTargets()
	if err != nil {
		m.loadErr = err
		return
	}

	targetsByID := make(map[uint]storage.Target, len(targets))
	states := make([]targetState, 0, len(targets))
	for _, t := range targets {
		targetsByID[t.ID] = t

		st := targetState{target: t}
		if checks, err := m.db.GetRecentTargetChecks(t.ID, recentChecksWindow); err == nil {
			st.checks = checks
		}
		if open, err := m.db.GetOpenIncident(t.ID); err == nil {
			st.incident = open
		}
		states = append(states, st)
	}
	m.states = states

	incidents, err := m.db.ListOpenIncidents()
	if err != nil {
		m.loadErr = err
		return
	}
	m.openIncidents = len(incidents)

	rows := make([]table.Row, 0, len(incidents))
	for _, inc := range incidents {
		name := fmt.Sprintf("target %d", inc.TargetID)
		if t, ok := targetsByID[inc.TargetID]; ok {
			name = t.Name
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("#%d", inc.ID),
			name,
			inc.StartedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", inc.FailureCount),
			alertedSummary(&inc),
		})
	}
	m.incidentTable.SetRows(rows)

	m.loadErr = nil
	m.lastUpdate = time.Now()
}

func alertedSummary(inc *storage.Incident) string {
	var parts []string
	for _, ch := range []storage.AlertChannel{storage.ChannelSlack, storage.ChannelEmail, storage.ChannelSMS} {
		if inc.Alerted(ch) {
			parts = append(parts, string(ch))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func (m DashboardModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			m.loadData()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.loadData()
		return m, tickCmd()
	}

	var cmd tea.Cmd
	m.incidentTable, cmd = m.incidentTable.Update(msg)
	return m, cmd
}

func (m DashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := headerStyle.Width(m.width - 2).Render(
		fmt.Sprintf("Website Watchdog • %d targets • %d open incidents • Updated: %s",
			len(m.states), m.openIncidents, m.lastUpdate.Format("15:04:05")))
	b.WriteString(header)
	b.WriteString("\n\n")

	if m.loadErr != nil {
		b.WriteString(downStyle.Render(fmt.Sprintf("store error: %v", m.loadErr)))
		b.WriteString("\n")
		return b.String()
	}

	if len(m.states) == 0 {
		b.WriteString(metricLabelStyle.Render(
			"No targets configured. Run 'watchdog init' to load them from config."))
		return b.String()
	}

	if m.openIncidents > 0 {
		b.WriteString(sectionTitleStyle.Render("Active Incidents"))
		b.WriteString("\n")
		b.WriteString(m.incidentTable.View())
		b.WriteString("\n\n")
	} else {
		b.WriteString(upStyle.Render("✓ No active incidents"))
		b.WriteString("\n\n")
	}

	for _, st := range m.states {
		b.WriteString(m.renderTargetCard(st))
		b.WriteString("\n")
	}

	help := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(
		"r: refresh • q: quit")
	b.WriteString("\n")
	b.WriteString(help)

	return b.String()
}

func (m DashboardModel) renderTargetCard(st targetState) string {
	var successCount int
	var avgResponse float64
	var sampled int
	for _, c := range st.checks {
		if c.Success() {
			successCount++
			if c.ResponseTime != nil {
				avgResponse += *c.ResponseTime
				sampled++
			}
		}
	}
	if sampled > 0 {
		avgResponse /= float64(sampled)
	}

	uptime := float64(0)
	if len(st.checks) > 0 {
		uptime = float64(successCount) / float64(len(st.checks)) * 100
	}

	statusIcon := "?"
	statusStyle := metricLabelStyle
	switch {
	case st.incident != nil:
		statusIcon = "●"
		statusStyle = downStyle
	case len(st.checks) > 0 && st.checks[0].Success():
		statusIcon = "●"
		statusStyle = upStyle
	case len(st.checks) > 0:
		statusIcon = "●"
		statusStyle = downStyle
	}

	var content strings.Builder

	nameRow := fmt.Sprintf("%s %s  %s",
		statusStyle.Render(statusIcon),
		metricValueStyle.Render(st.target.Name),
		metricLabelStyle.Render(truncateURL(st.target.URL, 40)))
	content.WriteString(nameRow)
	content.WriteString("\n\n")

	content.WriteString(metricLabelStyle.Render(
		fmt.Sprintf("Response Time (last %d checks):", recentChecksWindow)))
	content.WriteString("\n")
	content.WriteString(renderSparkline(st.checks, 50))
	content.WriteString("\n\n")

	metricsRow := lipgloss.JoinHorizontal(lipgloss.Top,
		renderMetric("Uptime", fmt.Sprintf("%.1f%%", uptime), uptime >= 99),
		"   ",
		renderMetric("Avg", fmt.Sprintf("%.0fms", avgResponse), true),
		"   ",
		renderMetric("Checks", fmt.Sprintf("%d", len(st.checks)), true),
	)
	if st.incident != nil {
		metricsRow = lipgloss.JoinHorizontal(lipgloss.Top,
			metricsRow,
			"   ",
			renderMetric("Down for", fmt.Sprintf("%d checks", st.incident.FailureCount), false),
		)
	}
	content.WriteString(metricsRow)

	borderColor := lipgloss.Color("240")
	if st.incident != nil {
		borderColor = lipgloss.Color("196")
	} else if len(st.checks) > 0 && st.checks[0].Success() {
		borderColor = lipgloss.Color("42")
	}

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2).
		Width(m.width - 4)

	return card.Render(content.String())
}

func renderSparkline(checks []storage.Check, width int) string {
	if len(checks) == 0 {
		return metricLabelStyle.Render("No data yet")
	}

	// Checks arrive newest-first; flip to draw oldest to newest.
	reversed := make([]storage.Check, len(checks))
	for i, c := range checks {
		reversed[len(checks)-1-i] = c
	}

	var maxTime float64 = 1
	for _, c := range reversed {
		if c.ResponseTime != nil && *c.ResponseTime > maxTime {
			maxTime = *c.ResponseTime
		}
	}

	startIdx := 0
	if len(reversed) > width {
		startIdx = len(reversed) - width
	}

	var spark strings.Builder
	for i := startIdx; i < len(reversed); i++ {
		c := reversed[i]
		if !c.Success() {
			spark.WriteString(graphDownStyle.Render("▄"))
			continue
		}

		var rt float64
		if c.ResponseTime != nil {
			rt = *c.ResponseTime
		}
		blockIdx := int(rt / maxTime * float64(len(sparkBlocks)-1))
		if blockIdx >= len(sparkBlocks) {
			blockIdx = len(sparkBlocks) - 1
		}
		if blockIdx < 0 {
			blockIdx = 0
		}
		spark.WriteString(graphUpStyle.Render(string(sparkBlocks[blockIdx])))
	}

	scale := fmt.Sprintf(" (0-%.0fms)", maxTime)
	return spark.String() + metricLabelStyle.Render(scale)
}

func renderMetric(label, value string, good bool) string {
	valueStyle := metricValueStyle
	if !good {
		valueStyle = downStyle
	}
	return fmt.Sprintf("%s\n%s",
		valueStyle.Render(value),
		metricLabelStyle.Render(label))
}

func truncateURL(url string, maxLen int) string {
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen-3] + "..."
}
