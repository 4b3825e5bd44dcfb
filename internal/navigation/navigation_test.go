package navigation

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbor-chat/harbor/internal/servers"
	"github.com/harbor-chat/harbor/internal/views"
)

type fakePrompter struct {
	newServerPrefill []string
	welcomePrefill   []string
}

func (f *fakePrompter) ShowNewServerModal(prefillURL string) {
	f.newServerPrefill = append(f.newServerPrefill, prefillURL)
}

func (f *fakePrompter) ShowWelcomeScreen(prefillURL string) {
	f.welcomePrefill = append(f.welcomePrefill, prefillURL)
}

func newTestEnv(t *testing.T) (*Manager, *servers.Manager, *views.Manager, *fakePrompter) {
	t.Helper()
	registry := servers.NewManager(nil)
	viewManager := views.NewManager()
	viewManager.BindRegistry(registry)
	prompter := &fakePrompter{}
	m := NewManager(registry, viewManager, prompter)
	m.SetReady()
	return m, registry, viewManager, prompter
}

func addServer(t *testing.T, registry *servers.Manager, name, rawURL string) *servers.Server {
	t.Helper()
	server, err := registry.AddServer(servers.ServerData{Name: name, URL: rawURL}, nil)
	require.NoError(t, err)
	return server
}

func TestOpenDeepLinkQueuedUntilReady(t *testing.T) {
	registry := servers.NewManager(nil)
	prompter := &fakePrompter{}
	m := NewManager(registry, views.NewManager(), prompter)

	m.OpenDeepLink("harbor://lonely.example.com/channels/town-square")
	assert.Empty(t, prompter.welcomePrefill)

	m.SetReady()
	require.Len(t, prompter.welcomePrefill, 1)
	assert.Equal(t, "https://lonely.example.com/channels/town-square", prompter.welcomePrefill[0])
}

func TestOpenDeepLinkMalformed(t *testing.T) {
	m, _, _, prompter := newTestEnv(t)

	m.OpenDeepLink("https://not-a-deep-link.example.com")
	m.OpenDeepLink("harbor://")

	assert.Empty(t, prompter.newServerPrefill)
	assert.Empty(t, prompter.welcomePrefill)
}

func TestOpenDeepLinkUnknownServerPrompts(t *testing.T) {
	m, registry, _, prompter := newTestEnv(t)
	addServer(t, registry, "known", "https://known.example.com")

	m.OpenDeepLink("harbor://unknown.example.com/channels/dev")

	require.Len(t, prompter.newServerPrefill, 1)
	assert.Equal(t, "https://unknown.example.com/channels/dev", prompter.newServerPrefill[0])
	assert.Empty(t, prompter.welcomePrefill)
}

func TestOpenDeepLinkUnknownServerPrefillKeepsQuery(t *testing.T) {
	m, registry, _, prompter := newTestEnv(t)
	addServer(t, registry, "known", "https://known.example.com")

	m.OpenDeepLink("harbor://unknown.example.com/channels/dev?message=42")

	require.Len(t, prompter.newServerPrefill, 1)
	assert.Equal(t, "https://unknown.example.com/channels/dev?message=42", prompter.newServerPrefill[0])
}

func TestOpenDeepLinkSlowPathLoadsAndSwitches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, registry, viewManager, _ := newTestEnv(t)
	first := addServer(t, registry, "first", srv.URL)
	second := addServer(t, registry, "second", "https://second.example.com")
	require.Equal(t, second.ID, registry.CurrentServerID())

	switched := make(chan uuid.UUID, 1)
	m.SetViewSwitcher(func(viewID uuid.UUID) {
		switched <- viewID
	})

	m.OpenDeepLink("harbor://" + first.URL.Host + "/channels/town-square")

	view, ok := viewManager.PrimaryView(first.ID)
	require.True(t, ok)

	select {
	case viewID := <-switched:
		assert.Equal(t, view.ID, viewID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for view switch")
	}
	assert.Equal(t, first.ID, registry.CurrentServerID())

	surface, ok := viewManager.GetSurface(view.ID)
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/channels/town-square", surface.CurrentURL())
}

func TestOpenDeepLinkFastPathPushesHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, registry, viewManager, _ := newTestEnv(t)
	server := addServer(t, registry, "fast", srv.URL)
	registry.UpdateRemoteInfo(server.ID, &servers.RemoteInfo{ServerVersion: "7.8.0"}, false)

	view, ok := viewManager.PrimaryView(server.ID)
	require.True(t, ok)
	surface, ok := viewManager.GetSurface(view.ID)
	require.True(t, ok)

	var pushed []string
	surface.SetHandlers(func(path string) {
		pushed = append(pushed, path)
	}, nil)

	res := <-surface.Load(srv.URL + "/")
	require.NoError(t, res.Err)

	var switchedTo uuid.UUID
	m.SetViewSwitcher(func(viewID uuid.UUID) { switchedTo = viewID })

	m.OpenDeepLink("harbor://" + server.URL.Host + "/channels/dev?message=42")

	require.Equal(t, []string{"/channels/dev?message=42"}, pushed)
	assert.Equal(t, view.ID, switchedTo)
}

func TestOpenDeepLinkOldServerReloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, registry, viewManager, _ := newTestEnv(t)
	server := addServer(t, registry, "old", srv.URL)
	registry.UpdateRemoteInfo(server.ID, &servers.RemoteInfo{ServerVersion: "5.9.0"}, false)

	view, ok := viewManager.PrimaryView(server.ID)
	require.True(t, ok)
	surface, ok := viewManager.GetSurface(view.ID)
	require.True(t, ok)

	var pushed []string
	surface.SetHandlers(func(path string) {
		pushed = append(pushed, path)
	}, nil)

	res := <-surface.Load(srv.URL + "/")
	require.NoError(t, res.Err)

	switched := make(chan uuid.UUID, 1)
	m.SetViewSwitcher(func(viewID uuid.UUID) { switched <- viewID })

	m.OpenDeepLink("harbor://" + server.URL.Host + "/channels/dev")

	select {
	case <-switched:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	assert.Empty(t, pushed)
	assert.Equal(t, srv.URL+"/channels/dev", surface.CurrentURL())
}

func TestHandleHistoryPushPrimaryView(t *testing.T) {
	m, registry, viewManager, _ := newTestEnv(t)
	server := addServer(t, registry, "main", "https://main.example.com")

	view, ok := viewManager.PrimaryView(server.ID)
	require.True(t, ok)
	surface, ok := viewManager.GetSurface(view.ID)
	require.True(t, ok)

	var pushed []string
	surface.SetHandlers(func(path string) {
		pushed = append(pushed, path)
	}, nil)

	m.HandleHistoryPush(surface.ID(), "/channels/town-square")

	assert.Equal(t, []string{"/channels/town-square"}, pushed)
}

func TestHandleHistoryPushStripsServerSubpath(t *testing.T) {
	m, registry, viewManager, _ := newTestEnv(t)
	server := addServer(t, registry, "mounted", "https://main.example.com/chat")

	view, ok := viewManager.PrimaryView(server.ID)
	require.True(t, ok)
	surface, ok := viewManager.GetSurface(view.ID)
	require.True(t, ok)

	var pushed []string
	surface.SetHandlers(func(path string) {
		pushed = append(pushed, path)
	}, nil)

	m.HandleHistoryPush(surface.ID(), "/chat/channels/dev")

	assert.Equal(t, []string{"/channels/dev"}, pushed)
}

func TestHandleHistoryPushLoggedOutSecondaryViewDropped(t *testing.T) {
	m, registry, viewManager, _ := newTestEnv(t)
	server := addServer(t, registry, "main", "https://main.example.com")

	secondary, err := viewManager.CreateView(server.ID, views.ViewTypeWindow)
	require.NoError(t, err)
	surface, ok := viewManager.GetSurface(secondary.ID)
	require.True(t, ok)

	var pushed []string
	surface.SetHandlers(func(path string) {
		pushed = append(pushed, path)
	}, nil)

	m.HandleHistoryPush(surface.ID(), "/channels/dev")
	assert.Empty(t, pushed)

	registry.SetLoggedIn(server.ID, true)
	m.HandleHistoryPush(surface.ID(), "/channels/dev")
	assert.Equal(t, []string{"/channels/dev"}, pushed)
}

func TestHandleHistoryPushUnknownSurface(t *testing.T) {
	m, _, _, _ := newTestEnv(t)

	// Must not panic.
	m.HandleHistoryPush(uuid.New(), "/channels/dev")
}
