package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmDialog is a yes/no prompt.
type ConfirmDialog struct {
	title   string
	message string
	theme   *Theme

	selectedYes bool
	confirmed   bool
	cancelled   bool

	width  int
	height int
}

// NewConfirmDialog creates a confirmation prompt defaulting to "No".
func NewConfirmDialog(title, message string, theme *Theme) *ConfirmDialog {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &ConfirmDialog{
		title:   title,
		message: message,
		theme:   theme,
	}
}

// Confirmed reports whether the user chose yes.
func (c *ConfirmDialog) Confirmed() bool {
	return c.confirmed
}

// Cancelled reports whether the user dismissed the prompt.
func (c *ConfirmDialog) Cancelled() bool {
	return c.cancelled
}

// Init implements tea.Model.
func (c *ConfirmDialog) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (c *ConfirmDialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c", "n":
			c.cancelled = true
			return c, tea.Quit
		case "y":
			c.confirmed = true
			return c, tea.Quit
		case "left", "right", "tab":
			c.selectedYes = !c.selectedYes
		case "enter":
			c.confirmed = c.selectedYes
			return c, tea.Quit
		}
	}
	return c, nil
}

// View implements tea.Model.
func (c *ConfirmDialog) View() string {
	dialogWidth := 50

	var content strings.Builder

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(c.theme.Error)).
		Bold(true).
		Align(lipgloss.Center).
		Width(dialogWidth - 4)
	content.WriteString(titleStyle.Render(c.title))
	content.WriteString("\n\n")

	messageStyle := lipgloss.NewStyle().
		Width(dialogWidth - 4).
		Align(lipgloss.Center)
	content.WriteString(messageStyle.Render(c.message))
	content.WriteString("\n\n")

	yes := "  Yes  "
	no := "  No  "
	selectedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(c.theme.Accent)).
		Bold(true).
		Underline(true)
	if c.selectedYes {
		yes = selectedStyle.Render(yes)
	} else {
		no = selectedStyle.Render(no)
	}

	buttons := lipgloss.NewStyle().
		Width(dialogWidth - 4).
		Align(lipgloss.Center).
		Render(yes + "   " + no)
	content.WriteString(buttons)
	content.WriteString("\n\n")

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(c.theme.Muted)).
		Italic(true).
		Width(dialogWidth - 4).
		Align(lipgloss.Center)
	content.WriteString(helpStyle.Render("[y/n] Choose  [Enter] Confirm  [Esc] Cancel"))

	dialogStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(c.theme.Error)).
		Padding(1, 2).
		Width(dialogWidth)

	dialog := dialogStyle.Render(content.String())

	return lipgloss.NewStyle().
		Width(max(c.width, dialogWidth)).
		Height(c.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(dialog)
}
