package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/table"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"tasnim.dev/workshop-infra/internal/aws/cloudformation"
	"tasnim.dev/workshop-infra/internal/deploy"
	"tasnim.dev/workshop-infra/internal/tui/theme"
	"tasnim.dev/workshop-infra/internal/utils"
)

const maxEvents = 8

// Messages
type progressMsg struct{ p deploy.Progress }
type progressClosedMsg struct{}

// waitForProgress reads one update off the channel.
func waitForProgress(ch <-chan deploy.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return progressClosedMsg{}
		}
		return progressMsg{p: p}
	}
}

type stackRow struct {
	name     string
	phase    deploy.Phase
	status   string
	finished int
	err      error
}

// Header identifies where the run happens.
type Header struct {
	Action    string
	Profile   string
	Region    string
	AccountID string
}

// Model shows a deploy or destroy run as it streams progress.
type Model struct {
	header  Header
	updates <-chan deploy.Progress
	cancel  context.CancelFunc

	rows   []stackRow
	events []cloudformation.Event

	spinner    spinner.Model
	table      table.Model
	started    time.Time
	now        func() time.Time
	done       bool
	cancelling bool
	width      int
	height     int
}

// NewModel creates a model reading from updates. cancel is called when the
// user quits before the run finishes.
func NewModel(header Header, updates <-chan deploy.Progress, cancel context.CancelFunc) Model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
		table.WithHeight(4),
		table.WithWidth(80),
	)
	t.SetStyles(theme.DefaultTableStyles())

	return Model{
		header:  header,
		updates: updates,
		cancel:  cancel,
		spinner: theme.NewSpinner(),
		table:   t,
		started: time.Now(),
		now:     time.Now,
		width:   80,
		height:  24,
	}
}

func columns(width int) []table.Column {
	statusWidth := 28
	phaseWidth := 10
	countWidth := 9
	nameWidth := max(width-statusWidth-phaseWidth-countWidth-8, 26)
	return []table.Column{
		{Title: "Stack", Width: nameWidth},
		{Title: "Phase", Width: phaseWidth},
		{Title: "Status", Width: statusWidth},
		{Title: "Resources", Width: countWidth},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForProgress(m.updates))
}

// Failed reports whether any stack ended in failure.
func (m Model) Failed() bool {
	for _, r := range m.rows {
		if r.phase == deploy.Failed {
			return true
		}
	}
	return false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		if m.done {
			return m, tea.Quit
		}
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancelling {
				return m, tea.Quit
			}
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}

	case progressMsg:
		m = m.apply(msg.p)
		m.table.SetRows(m.buildRows())
		return m, waitForProgress(m.updates)

	case progressClosedMsg:
		m.done = true
		// Keep a failure on screen until a key is pressed.
		if m.Failed() {
			return m, nil
		}
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columns(m.width - 4))
		m.table.SetWidth(m.width - 4)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) apply(p deploy.Progress) Model {
	i := -1
	for j := range m.rows {
		if m.rows[j].name == p.Stack {
			i = j
			break
		}
	}
	if i < 0 {
		m.rows = append(m.rows, stackRow{name: p.Stack})
		i = len(m.rows) - 1
	}

	row := m.rows[i]
	row.phase = p.Phase
	if p.Status != "" {
		row.status = p.Status
	}
	if p.Err != nil {
		row.err = p.Err
	}
	if e := p.Event; e != nil {
		if e.LogicalID != p.Stack && strings.HasSuffix(e.Status, "_COMPLETE") {
			row.finished++
		}
		m.events = append(m.events, *e)
		if len(m.events) > maxEvents {
			m.events = m.events[len(m.events)-maxEvents:]
		}
	}
	m.rows[i] = row
	return m
}

func (m Model) buildRows() []table.Row {
	rows := make([]table.Row, 0, len(m.rows))
	for _, r := range m.rows {
		status := r.status
		if status == "" {
			status = "—"
		}
		count := "—"
		if r.finished > 0 {
			count = fmt.Sprintf("%d", r.finished)
		}
		rows = append(rows, table.Row{r.name, string(r.phase), status, count})
	}
	return rows
}

func (m Model) active() (stackRow, bool) {
	for _, r := range m.rows {
		if r.phase == deploy.Deploying || r.phase == deploy.Deleting {
			return r, true
		}
	}
	return stackRow{}, false
}

func (m Model) renderHeader() string {
	profile := "default"
	if m.header.Profile != "" {
		profile = m.header.Profile
	}
	parts := []string{
		titleStyle.Render("Coder workshop · " + m.header.Action),
		"   ",
	}
	if m.header.AccountID != "" {
		parts = append(parts,
			labelStyle.Render("account: ")+profileStyle.Render(m.header.AccountID),
			"   ",
		)
	}
	if m.header.Region != "" {
		parts = append(parts,
			labelStyle.Render("region: ")+profileStyle.Render(m.header.Region),
			"   ",
		)
	}
	parts = append(parts, labelStyle.Render("profile: ")+profileStyle.Render(profile))
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderEvents() string {
	if len(m.events) == 0 {
		return labelStyle.Render("Waiting for stack events...") + "\n"
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render("Recent events") + "\n")
	for _, e := range m.events {
		line := eventTimeStyle.Render(utils.TimeOrDash(e.Timestamp, utils.TimeOnly)) + "  " +
			eventIDStyle.Render(e.LogicalID) + " " +
			theme.RenderStatus(e.Status)
		if e.Reason != "" {
			line += "  " + reasonStyle.Render(e.Reason)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) renderFooter() string {
	elapsed := utils.Elapsed(m.now().Sub(m.started))
	switch {
	case m.done && m.Failed():
		var msgs []string
		for _, r := range m.rows {
			if r.err != nil {
				msgs = append(msgs, fmt.Sprintf("%s: %v", r.name, r.err))
			}
		}
		return errorStyle.Render("Failed after "+elapsed) + "\n" + errorStyle.Render(strings.Join(msgs, "\n"))
	case m.done:
		return successStyle.Render("Finished in " + elapsed)
	case m.cancelling:
		return m.spinner.View() + " " + errorStyle.Render("Cancelling, waiting for the current call to return...")
	}
	if r, ok := m.active(); ok {
		return m.spinner.View() + fmt.Sprintf(" %s %s (%s)", strings.ToLower(string(r.phase)), r.name, elapsed)
	}
	return m.spinner.View() + " Starting..."
}

func (m Model) View() tea.View {
	help := "q cancel"
	switch {
	case m.done:
		help = "press any key to exit"
	case m.cancelling:
		help = "q quit"
	}

	content := dashboardStyle.Render(
		headerStyle.Render(m.renderHeader()) + "\n\n" +
			m.table.View() + "\n\n" +
			m.renderEvents() + "\n" +
			m.renderFooter() + "\n" +
			helpStyle.Render(help),
	)

	v := tea.NewView(content)
	v.AltScreen = true
	return v
}
