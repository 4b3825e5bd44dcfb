package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harbor-chat/harbor/internal/servers"
)

const validateTimeout = 15 * time.Second

// validationMsg carries the outcome of a URL validation back into the form.
type validationMsg struct {
	result servers.ValidationResult
}

// ServerForm is the dialog that collects a server's name, URL and pre-auth
// secret. Submitting validates the URL against the remote before accepting.
type ServerForm struct {
	title     string
	theme     *Theme
	validator *servers.Validator
	currentID uuid.UUID

	// Predefined servers keep their name and URL; only the secret is open.
	secretOnly bool

	nameInput   textinput.Model
	urlInput    textinput.Model
	secretInput textinput.Model
	focus       int

	statusText    string
	statusIsError bool
	validating    bool

	// pendingResult holds a result the user must confirm because validation
	// raised a warning rather than an error.
	pendingResult *servers.ServerData

	done      bool
	cancelled bool
	result    servers.ServerData

	width  int
	height int
}

// NewServerForm creates a server dialog prefilled with the given data.
func NewServerForm(title string, theme *Theme, validator *servers.Validator, currentID uuid.UUID, prefill servers.ServerData, secretOnly bool) *ServerForm {
	if theme == nil {
		theme = DefaultTheme()
	}
	f := &ServerForm{
		title:      title,
		theme:      theme,
		validator:  validator,
		currentID:  currentID,
		secretOnly: secretOnly,
	}

	f.nameInput = textinput.New()
	f.nameInput.Placeholder = "e.g., My Team"
	f.nameInput.CharLimit = 50
	f.nameInput.Width = 50
	f.nameInput.SetValue(prefill.Name)

	f.urlInput = textinput.New()
	f.urlInput.Placeholder = "e.g., https://chat.example.com"
	f.urlInput.CharLimit = 255
	f.urlInput.Width = 50
	f.urlInput.SetValue(prefill.URL)

	f.secretInput = textinput.New()
	f.secretInput.Placeholder = "optional"
	f.secretInput.CharLimit = 255
	f.secretInput.Width = 50
	f.secretInput.EchoMode = textinput.EchoPassword
	f.secretInput.SetValue(prefill.PreAuthSecret)

	if secretOnly {
		f.focus = 2
		f.secretInput.Focus()
	} else {
		f.nameInput.Focus()
	}

	return f
}

// Cancelled reports whether the user backed out of the form.
func (f *ServerForm) Cancelled() bool {
	return f.cancelled
}

// Result returns the confirmed server data.
func (f *ServerForm) Result() servers.ServerData {
	return f.result
}

// Init implements tea.Model.
func (f *ServerForm) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (f *ServerForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.width = msg.Width
		f.height = msg.Height
		return f, nil

	case validationMsg:
		f.validating = false
		return f, f.applyValidation(msg.result)

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			f.cancelled = true
			return f, tea.Quit

		case "tab", "down":
			f.cycleFocus(1)
			return f, nil

		case "shift+tab", "up":
			f.cycleFocus(-1)
			return f, nil

		case "enter":
			return f, f.submit()
		}

		if f.validating {
			return f, nil
		}

		// An edit invalidates a pending warning confirmation. Non-key
		// messages (cursor blinks) must leave it alone.
		f.pendingResult = nil
		return f, f.updateFocused(msg)
	}

	if f.validating {
		return f, nil
	}
	return f, f.updateFocused(msg)
}

func (f *ServerForm) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case 0:
		f.nameInput, cmd = f.nameInput.Update(msg)
	case 1:
		f.urlInput, cmd = f.urlInput.Update(msg)
	case 2:
		f.secretInput, cmd = f.secretInput.Update(msg)
	}
	return cmd
}

// submit starts validation, or accepts a pending warning result.
func (f *ServerForm) submit() tea.Cmd {
	if f.validating {
		return nil
	}

	if f.pendingResult != nil {
		f.result = *f.pendingResult
		f.done = true
		return tea.Quit
	}

	name := strings.TrimSpace(f.nameInput.Value())
	rawURL := strings.TrimSpace(f.urlInput.Value())
	secret := strings.TrimSpace(f.secretInput.Value())

	if f.secretOnly {
		f.result = servers.ServerData{Name: name, URL: rawURL, PreAuthSecret: secret}
		f.done = true
		return tea.Quit
	}

	if name == "" {
		f.statusText = "Server name is required"
		f.statusIsError = true
		return nil
	}

	f.validating = true
	f.statusText = "Checking server..."
	f.statusIsError = false

	validator := f.validator
	currentID := f.currentID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()
		return validationMsg{result: validator.Validate(ctx, rawURL, currentID, secret)}
	}
}

// applyValidation turns a validation result into form state, accepting the
// URL when validation passed.
func (f *ServerForm) applyValidation(result servers.ValidationResult) tea.Cmd {
	name := strings.TrimSpace(f.nameInput.Value())
	secret := strings.TrimSpace(f.secretInput.Value())
	if name == "" {
		name = result.ServerName
	}

	accepted := servers.ServerData{
		Name:          name,
		URL:           result.ValidatedURL,
		PreAuthSecret: secret,
	}

	switch result.Status {
	case servers.StatusOK, servers.StatusURLUpdated:
		f.result = accepted
		f.done = true
		return tea.Quit

	case servers.StatusMissing:
		f.statusText = "Server URL is required"
		f.statusIsError = true

	case servers.StatusInvalid:
		f.statusText = "That does not look like a valid URL"
		f.statusIsError = true

	case servers.StatusURLExists:
		f.statusText = fmt.Sprintf("Already added as %q", result.ExistingServerName)
		f.statusIsError = true

	case servers.StatusPreAuthRequired:
		f.statusText = "This server requires a pre-auth secret"
		f.statusIsError = true
		f.setFocus(2)
		f.urlInput.SetValue(result.ValidatedURL)

	case servers.StatusNotAServer:
		f.statusText = "Could not reach a server there. Press Enter again to add it anyway."
		f.statusIsError = false
		f.pendingResult = &accepted

	case servers.StatusInsecure:
		f.statusText = "Only an insecure (http) connection worked. Press Enter again to continue."
		f.statusIsError = false
		f.pendingResult = &accepted

	case servers.StatusURLNotMatched:
		f.statusText = "The server reports a different URL than the one reached. Press Enter again to keep this one."
		f.statusIsError = false
		f.pendingResult = &accepted

	default:
		f.statusText = fmt.Sprintf("Unexpected validation status %s", result.Status)
		f.statusIsError = true
	}
	return nil
}

// cycleFocus moves keyboard focus between the form fields.
func (f *ServerForm) cycleFocus(delta int) {
	if f.secretOnly {
		return
	}

	f.focus = (f.focus + delta + 3) % 3
	f.nameInput.Blur()
	f.urlInput.Blur()
	f.secretInput.Blur()
	f.setFocus(f.focus)
}

func (f *ServerForm) setFocus(idx int) {
	f.focus = idx
	switch idx {
	case 0:
		f.nameInput.Focus()
	case 1:
		f.urlInput.Focus()
	case 2:
		f.secretInput.Focus()
	}
}

// View implements tea.Model.
func (f *ServerForm) View() string {
	dialogWidth := 60

	var content strings.Builder

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(f.theme.Accent)).
		Bold(true).
		Align(lipgloss.Center).
		Width(dialogWidth - 4)
	content.WriteString(titleStyle.Render(f.title))
	content.WriteString("\n\n")

	if f.statusText != "" {
		color := f.theme.Warning
		if f.statusIsError {
			color = f.theme.Error
		}
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(color)).
			Width(dialogWidth - 4).
			Align(lipgloss.Center)
		content.WriteString(statusStyle.Render(f.statusText))
		content.WriteString("\n\n")
	}

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(f.theme.Accent)).
		Bold(true).
		Width(dialogWidth - 4)

	fieldStyle := lipgloss.NewStyle().
		Padding(0, 1).
		Width(dialogWidth - 6)

	content.WriteString(labelStyle.Render("Name:"))
	content.WriteString("\n")
	content.WriteString(fieldStyle.Render(f.nameInput.View()))
	content.WriteString("\n\n")

	content.WriteString(labelStyle.Render("URL:"))
	content.WriteString("\n")
	content.WriteString(fieldStyle.Render(f.urlInput.View()))
	content.WriteString("\n\n")

	content.WriteString(labelStyle.Render("Pre-auth secret:"))
	content.WriteString("\n")
	content.WriteString(fieldStyle.Render(f.secretInput.View()))
	content.WriteString("\n\n")

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(f.theme.Muted)).
		Italic(true).
		Width(dialogWidth - 4).
		Align(lipgloss.Center)
	content.WriteString(helpStyle.Render("[Tab] Next  [Enter] Save  [Esc] Cancel"))

	dialogStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(f.theme.Accent)).
		Padding(1, 2).
		Width(dialogWidth)

	dialog := dialogStyle.Render(content.String())

	return lipgloss.NewStyle().
		Width(max(f.width, dialogWidth)).
		Height(f.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(dialog)
}
