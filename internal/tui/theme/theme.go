package theme

import (
	"image/color"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/table"
	"charm.land/lipgloss/v2"
)

// Colors
var (
	Primary   = lipgloss.Color("#33A8FF")
	Secondary = lipgloss.Color("#163047")
	Muted     = lipgloss.Color("#6B7280")
	Success   = lipgloss.Color("#10B981")
	Warning   = lipgloss.Color("#F59E0B")
	Error     = lipgloss.Color("#EF4444")
)

// Shared styles
var (
	HeaderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Muted).
			Padding(0, 1)

	DashboardStyle = lipgloss.NewStyle().
			Padding(1, 2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(1, 0, 0, 0)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(Primary)

	CommandBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted).
			Padding(0, 1)
)

// StatusColor maps CloudFormation, EKS and check statuses to theme colors.
func StatusColor(status string) color.Color {
	s := strings.ToLower(status)
	switch {
	case s == "active", s == "available", s == "pass",
		s == "create_complete", s == "update_complete", s == "delete_complete",
		s == "unchanged", s == "done", s == "absent":
		return Success
	case s == "fail", strings.HasSuffix(s, "_failed"), strings.Contains(s, "rollback"),
		s == "failed", s == "create_failed", s == "degraded":
		return Error
	case strings.HasSuffix(s, "_in_progress"), s == "pending", s == "creating",
		s == "updating", s == "deleting", s == "deploying":
		return Warning
	default:
		return Muted
	}
}

// RenderStatus renders a status string with a colored bullet.
func RenderStatus(status string) string {
	c := StatusColor(status)
	bullet := lipgloss.NewStyle().Foreground(c).Render("●")
	return bullet + " " + status
}

// DefaultTableStyles returns styled table styles using theme colors.
func DefaultTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Muted).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}

// SpinnerStyle returns a spinner configured with the primary color.
func SpinnerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(Primary)
}

// NewSpinner returns a new spinner with the theme style.
func NewSpinner() spinner.Model {
	return spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(SpinnerStyle()),
	)
}
