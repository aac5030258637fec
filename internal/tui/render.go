package tui

import (
	"fmt"
	"strings"

	"tasnim.dev/workshop-infra/internal/aws/cloudformation"
	"tasnim.dev/workshop-infra/internal/tui/theme"
	"tasnim.dev/workshop-infra/internal/utils"
	"tasnim.dev/workshop-infra/internal/verify"
)

const labelWidth = 22

// RenderOutputs renders a deployed stack and its outputs. Multi-line values
// are boxed so they can be copied as a whole.
func RenderOutputs(s cloudformation.Stack) string {
	db := utils.NewDetailBuilder(labelWidth, theme.SectionStyle)
	db.Section(s.Name)
	db.Row("Status", theme.RenderStatus(s.Status))
	if s.StatusReason != "" {
		db.Row("Reason", s.StatusReason)
	}
	db.Row("Updated", utils.TimeOrDash(s.UpdatedAt, utils.DateTimeSec))

	if len(s.Outputs) == 0 {
		db.Row("Outputs", theme.MutedStyle.Render("none"))
		return db.String()
	}

	db.Blank()
	for _, o := range s.Outputs {
		if strings.Contains(o.Value, "\n") {
			db.Block(o.Key, theme.CommandBoxStyle.Render(o.Value))
			continue
		}
		db.Row(o.Key, o.Value)
	}
	return db.String()
}

// RenderReport renders verification checks followed by a one-line tally.
func RenderReport(r verify.Report) string {
	db := utils.NewDetailBuilder(labelWidth, theme.SectionStyle)
	db.Section("Verify " + r.Stack)

	counts := map[verify.Status]int{}
	for _, c := range r.Checks {
		counts[c.Status]++
		line := theme.RenderStatus(string(c.Status))
		if c.Detail != "" {
			line += "  " + c.Detail
		}
		db.Row(c.Name, line)
	}

	db.Blank()
	tally := fmt.Sprintf("  %d passed, %d failed, %d skipped",
		counts[verify.Pass], counts[verify.Fail], counts[verify.Skip])
	if r.Failed() {
		db.WriteString(theme.ErrorStyle.Render(tally) + "\n")
	} else {
		db.WriteString(theme.SuccessStyle.Render(tally) + "\n")
	}
	return db.String()
}
