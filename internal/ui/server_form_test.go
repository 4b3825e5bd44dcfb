package ui

import (
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbor-chat/harbor/internal/servers"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func newForm(prefill servers.ServerData, secretOnly bool) *ServerForm {
	validator := servers.NewValidator(servers.NewManager(nil), nil)
	return NewServerForm("Add Server", nil, validator, uuid.Nil, prefill, secretOnly)
}

func TestServerFormCancel(t *testing.T) {
	form := newForm(servers.ServerData{}, false)

	_, cmd := form.Update(keyMsg("esc"))

	assert.True(t, form.Cancelled())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestServerFormRequiresName(t *testing.T) {
	form := newForm(servers.ServerData{URL: "https://chat.example.com"}, false)

	_, cmd := form.Update(keyMsg("enter"))

	assert.Nil(t, cmd)
	assert.Equal(t, "Server name is required", form.statusText)
	assert.True(t, form.statusIsError)
}

func TestServerFormAcceptsOnValidationOK(t *testing.T) {
	form := newForm(servers.ServerData{Name: "Team", URL: "https://chat.example.com"}, false)

	_, cmd := form.Update(validationMsg{result: servers.ValidationResult{
		Status:       servers.StatusOK,
		ValidatedURL: "https://chat.example.com/",
	}})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.False(t, form.Cancelled())
	assert.Equal(t, servers.ServerData{
		Name: "Team",
		URL:  "https://chat.example.com/",
	}, form.Result())
}

func TestServerFormFallsBackToRemoteName(t *testing.T) {
	form := newForm(servers.ServerData{URL: "https://chat.example.com"}, false)
	form.nameInput.SetValue("")

	form.Update(validationMsg{result: servers.ValidationResult{
		Status:       servers.StatusOK,
		ValidatedURL: "https://chat.example.com/",
		ServerName:   "Crew HQ",
	}})

	assert.Equal(t, "Crew HQ", form.Result().Name)
}

func TestServerFormWarningNeedsSecondEnter(t *testing.T) {
	form := newForm(servers.ServerData{Name: "Team", URL: "http://chat.example.com"}, false)

	_, cmd := form.Update(validationMsg{result: servers.ValidationResult{
		Status:       servers.StatusInsecure,
		ValidatedURL: "http://chat.example.com/",
	}})

	assert.Nil(t, cmd)
	assert.False(t, form.statusIsError)
	require.NotNil(t, form.pendingResult)

	_, cmd = form.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, "http://chat.example.com/", form.Result().URL)
}

func TestServerFormPendingWarningSurvivesBlink(t *testing.T) {
	form := newForm(servers.ServerData{Name: "Team", URL: "http://chat.example.com"}, false)

	form.Update(validationMsg{result: servers.ValidationResult{
		Status:       servers.StatusInsecure,
		ValidatedURL: "http://chat.example.com/",
	}})
	require.NotNil(t, form.pendingResult)

	form.Update(cursor.BlinkMsg{})
	require.NotNil(t, form.pendingResult)

	_, cmd := form.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, "http://chat.example.com/", form.Result().URL)
}

func TestServerFormEditClearsPendingWarning(t *testing.T) {
	form := newForm(servers.ServerData{Name: "Team", URL: "http://chat.example.com"}, false)

	form.Update(validationMsg{result: servers.ValidationResult{
		Status:       servers.StatusInsecure,
		ValidatedURL: "http://chat.example.com/",
	}})
	require.NotNil(t, form.pendingResult)

	form.Update(keyMsg("x"))
	assert.Nil(t, form.pendingResult)
}

func TestServerFormPreAuthRequiredFocusesSecret(t *testing.T) {
	form := newForm(servers.ServerData{Name: "Team", URL: "https://chat.example.com"}, false)

	form.Update(validationMsg{result: servers.ValidationResult{
		Status:       servers.StatusPreAuthRequired,
		ValidatedURL: "https://chat.example.com",
	}})

	assert.Equal(t, 2, form.focus)
	assert.True(t, form.secretInput.Focused())
	assert.Equal(t, "https://chat.example.com", form.urlInput.Value())
}

func TestServerFormDuplicateReportsExisting(t *testing.T) {
	form := newForm(servers.ServerData{Name: "Team", URL: "https://chat.example.com"}, false)

	form.Update(validationMsg{result: servers.ValidationResult{
		Status:             servers.StatusURLExists,
		ExistingServerName: "Crew HQ",
	}})

	assert.True(t, form.statusIsError)
	assert.Contains(t, form.statusText, "Crew HQ")
}

func TestServerFormSecretOnlySkipsValidation(t *testing.T) {
	form := newForm(servers.ServerData{
		Name: "Pinned",
		URL:  "https://pinned.example.com/",
	}, true)

	assert.True(t, form.secretInput.Focused())

	form.Update(keyMsg("s"))
	_, cmd := form.Update(keyMsg("enter"))

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, "Pinned", form.Result().Name)
	assert.Equal(t, "https://pinned.example.com/", form.Result().URL)
	assert.Equal(t, "s", form.Result().PreAuthSecret)
}

func TestServerFormTabCyclesFocus(t *testing.T) {
	form := newForm(servers.ServerData{}, false)
	assert.True(t, form.nameInput.Focused())

	form.Update(keyMsg("tab"))
	assert.True(t, form.urlInput.Focused())
	form.Update(keyMsg("tab"))
	assert.True(t, form.secretInput.Focused())
	form.Update(keyMsg("tab"))
	assert.True(t, form.nameInput.Focused())
}

func TestConfirmDialogKeys(t *testing.T) {
	d := NewConfirmDialog("Remove Server", "Remove it?", nil)
	_, cmd := d.Update(keyMsg("y"))
	require.NotNil(t, cmd)
	assert.True(t, d.Confirmed())

	d = NewConfirmDialog("Remove Server", "Remove it?", nil)
	d.Update(keyMsg("n"))
	assert.False(t, d.Confirmed())
	assert.True(t, d.Cancelled())

	// Enter with the default selection declines.
	d = NewConfirmDialog("Remove Server", "Remove it?", nil)
	d.Update(keyMsg("enter"))
	assert.False(t, d.Confirmed())
	assert.False(t, d.Cancelled())
}
