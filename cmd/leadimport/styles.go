package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPass = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorWarn = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorFail = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMute = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorHead = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	passStyle     = lipgloss.NewStyle().Foreground(colorPass)
	warnStyle     = lipgloss.NewStyle().Foreground(colorWarn)
	failStyle     = lipgloss.NewStyle().Foreground(colorFail)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMute)
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(colorHead)
)

const (
	iconPass = "✓"
	iconWarn = "⚠"
	iconFail = "✗"

	treeLast  = "└─ "
	separator = "──────────────────────────────────────────"
)

func renderPass(s string) string { return passStyle.Render(s) }
func renderWarn(s string) string { return warnStyle.Render(s) }
func renderFail(s string) string { return failStyle.Render(s) }
func renderMuted(s string) string { return mutedStyle.Render(s) }

// renderCategory renders a section header in uppercase
func renderCategory(s string) string {
	return categoryStyle.Render(strings.ToUpper(s))
}

func renderSeparator() string {
	return mutedStyle.Render(separator)
}
