package utils

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// DetailBuilder builds labeled key-value views for terminal output.
type DetailBuilder struct {
	b            strings.Builder
	labelWidth   int
	labelStyle   lipgloss.Style
	sectionStyle lipgloss.Style
}

// NewDetailBuilder creates a builder with a fixed-width label column.
// sectionStyle controls the rendering of section headings.
func NewDetailBuilder(labelWidth int, sectionStyle lipgloss.Style) *DetailBuilder {
	return &DetailBuilder{
		labelWidth:   labelWidth,
		labelStyle:   sectionStyle.Width(labelWidth),
		sectionStyle: sectionStyle,
	}
}

// Row writes a labeled key-value row.
func (d *DetailBuilder) Row(label, value string) {
	fmt.Fprintf(&d.b, "  %s %s\n", d.labelStyle.Render(label), value)
}

// Block writes a label on its own line followed by a multi-line value,
// indented past the label column.
func (d *DetailBuilder) Block(label, value string) {
	fmt.Fprintf(&d.b, "  %s\n", d.labelStyle.Render(label))
	d.b.WriteString(Indent(value, strings.Repeat(" ", 4)))
	d.b.WriteString("\n")
}

// Section writes a section heading like "── title ──────...".
func (d *DetailBuilder) Section(title string) {
	pad := max(d.labelWidth+24-len(title), 4)
	heading := fmt.Sprintf("  ── %s %s", title, strings.Repeat("─", pad))
	d.b.WriteString(d.sectionStyle.Render(heading) + "\n")
}

// Blank writes an empty line.
func (d *DetailBuilder) Blank() {
	d.b.WriteString("\n")
}

// WriteString appends arbitrary text.
func (d *DetailBuilder) WriteString(s string) {
	d.b.WriteString(s)
}

func (d *DetailBuilder) String() string {
	return d.b.String()
}
