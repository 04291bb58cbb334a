package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const barWidth = 24

var (
	accent  = lipgloss.Color("#fbbf24")
	primary = lipgloss.Color("#8b5cf6")
	muted   = lipgloss.Color("#9ca3af")

	badgeStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true).Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 2)
	quoteStyle   = lipgloss.NewStyle().Bold(true).Italic(true)
	headingStyle = lipgloss.NewStyle().Foreground(primary).Bold(true).MarginTop(1)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	barStyle     = lipgloss.NewStyle().Foreground(accent)
	footerStyle  = lipgloss.NewStyle().Foreground(muted).Faint(true).MarginTop(1)
)

// RenderTerminal renders the reading for a terminal. Without a TTY lipgloss
// drops the colours and the plain text stays readable.
func RenderTerminal(d Data) string {
	a := d.Analysis
	if a == nil {
		return ""
	}
	var b strings.Builder
	line := func(s string) { b.WriteString(s + "\n") }

	line(badgeStyle.Render(a.ArchetypeName()))
	line(quoteStyle.Render("“" + a.Overall + "”"))
	if a.Archetype.Description != "" {
		line(mutedStyle.Render(a.Archetype.Description))
	}
	line(mutedStyle.Render(fmt.Sprintf("age %d · %s", d.Profile.Age, d.Profile.Gender)))

	for _, l := range a.Lines() {
		if l.Line.Observation == "" && l.Line.Meaning == "" {
			continue
		}
		line(headingStyle.Foreground(lipgloss.Color(l.Color)).Render("● " + l.Label + " line"))
		line(l.Line.Observation)
		line(mutedStyle.Render(l.Line.Meaning))
	}

	if a.Element.Type != "" {
		line(headingStyle.Render("Element: " + a.Element.Type))
		line(mutedStyle.Render(a.Element.Description))
		if len(a.Element.Traits) > 0 {
			line("#" + strings.Join(a.Element.Traits, "  #"))
		}
	}

	if len(a.Talents) > 0 {
		line(headingStyle.Render("Innate Potentials"))
		for _, t := range a.Talents {
			line(fmt.Sprintf("%-18s %s %3.0f%%", t.Field, Bar(t.Score, barWidth), t.Score))
			if t.Description != "" {
				line(mutedStyle.Render("  " + t.Description))
			}
		}
	}

	if len(a.Mounts) > 0 {
		line(headingStyle.Render("Mounts"))
		for _, m := range a.Mounts {
			line(fmt.Sprintf("%s: %s", m.Name, m.Status))
			line(mutedStyle.Render("  " + m.Meaning))
		}
	}

	if len(a.LifeStages) > 0 {
		line(headingStyle.Render("Life Cycle Progression"))
		for _, s := range a.LifeStages {
			line(s.Period)
			line(mutedStyle.Render("  " + s.Insight))
		}
	}

	if len(a.SpecialMarkings) > 0 {
		line(headingStyle.Render("Special Markings"))
		for _, m := range a.SpecialMarkings {
			line("* " + m)
		}
	}

	line(headingStyle.Render("Oracle's Final Blessing"))
	line(quoteStyle.Render("“" + a.SummaryAdvice + "”"))
	line(footerStyle.Render("AI analysis is for self-reflection only"))
	return b.String()
}

// Bar draws score (0..100) as a fixed-width bar.
func Bar(score float64, width int) string {
	if math.IsNaN(score) || score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	filled := int(math.Round(score / 100 * float64(width)))
	return barStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
}
