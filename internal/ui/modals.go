package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/harbor-chat/harbor/internal/hub"
	"github.com/harbor-chat/harbor/internal/servers"
)

// TerminalModals implements the hub's modal prompts as full-screen
// Bubble Tea dialogs, run one at a time.
type TerminalModals struct {
	validator *servers.Validator
	theme     *Theme
}

// NewTerminalModals creates the terminal modal runner.
func NewTerminalModals(validator *servers.Validator, theme *Theme) *TerminalModals {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &TerminalModals{validator: validator, theme: theme}
}

// NewServer prompts for a new server.
func (m *TerminalModals) NewServer(prefillURL string) (servers.ServerData, error) {
	form := NewServerForm("Add Server", m.theme, m.validator, uuid.Nil,
		servers.ServerData{URL: prefillURL}, false)
	return m.runForm(form)
}

// EditServer prompts with a server's current data.
func (m *TerminalModals) EditServer(serverID uuid.UUID, current servers.ServerData, isPredefined bool) (servers.ServerData, error) {
	title := "Edit Server"
	if isPredefined {
		title = "Edit Server Secret"
	}
	form := NewServerForm(title, m.theme, m.validator, serverID, current, isPredefined)
	return m.runForm(form)
}

// ConfirmRemoveServer asks the user to confirm removal.
func (m *TerminalModals) ConfirmRemoveServer(name string) (bool, error) {
	dialog := NewConfirmDialog("Remove Server",
		fmt.Sprintf("Remove %q? Its views and stored secret will be deleted.", name), m.theme)

	final, err := tea.NewProgram(dialog, tea.WithAltScreen()).Run()
	if err != nil {
		return false, fmt.Errorf("failed to run confirm dialog: %w", err)
	}
	d := final.(*ConfirmDialog)
	if d.Cancelled() {
		return false, hub.ErrCancelled
	}
	return d.Confirmed(), nil
}

// Welcome shows the first-run screen, which collects the first server.
func (m *TerminalModals) Welcome(prefillURL string) (servers.ServerData, error) {
	form := NewServerForm("Welcome to Harbor: add your first server", m.theme, m.validator, uuid.Nil,
		servers.ServerData{URL: prefillURL}, false)
	return m.runForm(form)
}

func (m *TerminalModals) runForm(form *ServerForm) (servers.ServerData, error) {
	final, err := tea.NewProgram(form, tea.WithAltScreen()).Run()
	if err != nil {
		return servers.ServerData{}, fmt.Errorf("failed to run server form: %w", err)
	}
	f := final.(*ServerForm)
	if f.Cancelled() {
		return servers.ServerData{}, hub.ErrCancelled
	}
	return f.Result(), nil
}
