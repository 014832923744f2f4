// Package ui provides terminal styling for foundry CLI output, with
// adaptive light/dark colors.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors (GitHub Primer palette, adaptive light/dark).
var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#2da44e", Dark: "#3fb950"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#bf8700", Dark: "#d29922"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#6e7781", Dark: "#8b949e"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}
)

// Styles shared across all commands.
var (
	Header = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	Pass   = lipgloss.NewStyle().Foreground(ColorPass)
	Hint   = lipgloss.NewStyle().Foreground(ColorWarn)
	Err    = lipgloss.NewStyle().Foreground(ColorFail)
	Subtle = lipgloss.NewStyle().Foreground(ColorMuted)
)

// Status icons.
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
)

// RenderHeader renders a section header.
func RenderHeader(s string) string {
	return Header.Render(s)
}

// RenderSubtle renders secondary detail like timestamps and paths.
func RenderSubtle(s string) string {
	return Subtle.Render(s)
}

// RenderStatus renders a validation status line: a green check for
// complete, a yellow warning for anything else. Incomplete is guidance,
// not failure, so it never renders red.
func RenderStatus(status string) string {
	if status == "complete" {
		return Pass.Render(IconPass + " " + status)
	}
	return Hint.Render(IconWarn + " " + status)
}

// RenderNextSteps renders next steps as an indented arrow list.
func RenderNextSteps(steps []string) string {
	if len(steps) == 0 {
		return ""
	}
	var b strings.Builder
	for i, s := range steps {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("  ")
		b.WriteString(Subtle.Render("→ " + s))
	}
	return b.String()
}

// RenderHints renders workflow hints beneath the next steps.
func RenderHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	var b strings.Builder
	for i, h := range hints {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("  ")
		b.WriteString(Hint.Render(IconWarn + " " + h))
	}
	return b.String()
}

// RenderError renders a failure line, with candidate names beneath when
// the failure carries them.
func RenderError(msg string, candidates []string) string {
	var b strings.Builder
	b.WriteString(Err.Render(IconFail + " " + msg))
	if len(candidates) > 0 {
		b.WriteByte('\n')
		b.WriteString("  ")
		b.WriteString(Subtle.Render("did you mean: " + strings.Join(candidates, ", ")))
	}
	return b.String()
}
