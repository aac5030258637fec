package tui

import (
	"charm.land/lipgloss/v2"

	"tasnim.dev/workshop-infra/internal/tui/theme"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary)

	headerStyle = theme.HeaderStyle

	labelStyle = theme.MutedStyle

	profileStyle = lipgloss.NewStyle().
			Foreground(theme.Secondary)

	eventTimeStyle = theme.MutedStyle

	eventIDStyle = lipgloss.NewStyle().
			Bold(true).
			Width(22)

	reasonStyle = lipgloss.NewStyle().
			Foreground(theme.Warning).
			Italic(true)

	helpStyle = theme.HelpStyle

	errorStyle = theme.ErrorStyle

	successStyle = theme.SuccessStyle

	dashboardStyle = theme.DashboardStyle
)
