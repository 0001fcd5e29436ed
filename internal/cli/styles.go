package cli

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	persona lipgloss.Style
	detail  lipgloss.Style
	choice  lipgloss.Style
	warning lipgloss.Style
	ok      lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
	winner  lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		persona: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		choice:  lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
		winner:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
	}
}
