package preview

import "github.com/charmbracelet/lipgloss"

// theme groups reusable styles for rendered replies.
type theme struct {
	userBox    lipgloss.Style
	userTitle  lipgloss.Style
	replyBox   lipgloss.Style
	replyTitle lipgloss.Style
	button     lipgloss.Style
	buttonMeta lipgloss.Style
	empty      lipgloss.Style
}

// defaultTheme mirrors the platform's chat bubbles in terminal colors.
func defaultTheme() theme {
	return theme{
		userBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1),
		userTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("214")).
			Padding(0, 1),
		replyBox: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1),
		replyTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("33")).
			Padding(0, 1),
		button: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Foreground(lipgloss.Color("39")).
			Bold(true).
			Padding(0, 1),
		buttonMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		empty: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("244")),
	}
}
