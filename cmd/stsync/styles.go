package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	red       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellow    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cyan      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	lightGray = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))

	titleStyle = cyan.Bold(true)
	labelStyle = lightGray.Width(14)
)

// kv renders an aligned "label value" line
func kv(label string, value any) string {
	return labelStyle.Render(label) + " " + fmt.Sprint(value)
}
