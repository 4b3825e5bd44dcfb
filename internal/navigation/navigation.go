package navigation

import (
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/harbor-chat/harbor/internal/servers"
	"github.com/harbor-chat/harbor/internal/urlutil"
	"github.com/harbor-chat/harbor/internal/views"
)

// DeepLinkScheme is the custom URL scheme the app registers with the OS.
const DeepLinkScheme = "harbor"

// historyPushMinVersion is the lowest server version whose web app accepts
// an in-page history push for navigation. Older servers need a full reload.
var historyPushMinVersion = semver.MustParse("6.0.0")

// ServerPrompter opens the flows that collect a new server from the user.
// Satisfied by the server hub.
type ServerPrompter interface {
	ShowNewServerModal(prefillURL string)
	ShowWelcomeScreen(prefillURL string)
}

// Manager routes deep links and in-page navigations to the right view.
// Links arriving before the app is ready are queued and replayed.
type Manager struct {
	registry *servers.Manager
	views    *views.Manager
	prompter ServerPrompter

	switchToView func(viewID uuid.UUID)

	mu     sync.Mutex
	ready  bool
	queued []string
}

// NewManager creates a navigation manager.
func NewManager(registry *servers.Manager, viewManager *views.Manager, prompter ServerPrompter) *Manager {
	return &Manager{
		registry: registry,
		views:    viewManager,
		prompter: prompter,
	}
}

// SetViewSwitcher installs the callback that brings a view to the front.
func (m *Manager) SetViewSwitcher(fn func(viewID uuid.UUID)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.switchToView = fn
}

// SetReady marks the app as ready and replays any queued deep links in
// arrival order.
func (m *Manager) SetReady() {
	m.mu.Lock()
	m.ready = true
	queued := m.queued
	m.queued = nil
	m.mu.Unlock()

	for _, link := range queued {
		m.openDeepLink(link)
	}
}

// OpenDeepLink routes a harbor:// link to the matching server's primary
// view, queueing it when the app is not ready yet.
func (m *Manager) OpenDeepLink(rawLink string) {
	m.mu.Lock()
	if !m.ready {
		m.queued = append(m.queued, rawLink)
		m.mu.Unlock()
		log.Printf("[Navigation] queued deep link %s", rawLink)
		return
	}
	m.mu.Unlock()

	m.openDeepLink(rawLink)
}

func (m *Manager) openDeepLink(rawLink string) {
	parsed, ok := parseDeepLink(rawLink)
	if !ok {
		log.Printf("[Navigation] ignoring malformed deep link %s", rawLink)
		return
	}

	server := m.registry.LookupServerByURL(parsed, true)
	if server == nil {
		m.promptForServer(parsed)
		return
	}

	view, ok := m.views.PrimaryView(server.ID)
	if !ok {
		log.Printf("[Navigation] server %s has no primary view for deep link %s", server.ID, rawLink)
		return
	}
	surface, ok := m.views.GetSurface(view.ID)
	if !ok {
		log.Printf("[Navigation] view %s has no surface for deep link %s", view.ID, rawLink)
		return
	}

	target := *server.URL
	target.Path = parsed.Path
	target.RawQuery = parsed.RawQuery

	if surface.IsReady() && m.supportsHistoryPush(server.ID) {
		path := urlutil.CleanPath(server.URL.Path, parsed.Path)
		if parsed.RawQuery != "" {
			path += "?" + parsed.RawQuery
		}
		surface.SendHistoryPush(path)
		m.bringToFront(server.ID, view.ID)
		return
	}

	surface.ResetLoadingStatus()
	result := surface.Load(target.String())
	go func() {
		res := <-result
		if res.Err != nil {
			log.Printf("[Navigation] failed to load deep link target %s: %v", res.URL, res.Err)
			return
		}
		m.bringToFront(server.ID, view.ID)
	}()
}

// promptForServer offers to add the unknown server a deep link pointed at.
func (m *Manager) promptForServer(parsed *url.URL) {
	prefill := "https://" + parsed.Host + parsed.Path
	if parsed.RawQuery != "" {
		prefill += "?" + parsed.RawQuery
	}
	if m.registry.HasServers() {
		m.prompter.ShowNewServerModal(prefill)
	} else {
		m.prompter.ShowWelcomeScreen(prefill)
	}
}

// bringToFront switches the current server and raises its view.
func (m *Manager) bringToFront(serverID, viewID uuid.UUID) {
	m.registry.SetCurrentServer(serverID)

	m.mu.Lock()
	switchFn := m.switchToView
	m.mu.Unlock()
	if switchFn != nil {
		switchFn(viewID)
	}
}

// supportsHistoryPush reports whether the server's web app is new enough for
// an in-page history push. Unknown or unparseable versions take the reload
// path.
func (m *Manager) supportsHistoryPush(serverID uuid.UUID) bool {
	info := m.registry.GetRemoteInfo(serverID)
	if info == nil || info.ServerVersion == "" {
		return false
	}
	v, err := semver.NewVersion(info.ServerVersion)
	if err != nil {
		log.Printf("[Navigation] unparseable server version %q: %v", info.ServerVersion, err)
		return false
	}
	return !v.LessThan(historyPushMinVersion)
}

// HandleHistoryPush processes an in-page navigation reported by a surface.
// Only logged-in servers and primary views may steer navigation.
func (m *Manager) HandleHistoryPush(surfaceID uuid.UUID, path string) {
	view, ok := m.views.GetViewBySurfaceID(surfaceID)
	if !ok {
		log.Printf("[Navigation] history push from unknown surface %s", surfaceID)
		return
	}
	server := m.registry.GetServer(view.ServerID)
	if server == nil {
		log.Printf("[Navigation] history push for unknown server %s", view.ServerID)
		return
	}
	if !server.IsLoggedIn && !m.views.IsPrimaryView(view.ID) {
		log.Printf("[Navigation] dropping history push %s for logged-out secondary view %s", path, view.ID)
		return
	}

	surface, ok := m.views.GetSurface(view.ID)
	if !ok {
		return
	}
	surface.SendHistoryPush(urlutil.CleanPath(server.URL.Path, path))
}

// GoBack navigates a view one step back in its history.
func (m *Manager) GoBack(viewID uuid.UUID) {
	m.goToOffset(viewID, -1)
}

// GoForward navigates a view one step forward in its history.
func (m *Manager) GoForward(viewID uuid.UUID) {
	m.goToOffset(viewID, 1)
}

func (m *Manager) goToOffset(viewID uuid.UUID, offset int) {
	surface, ok := m.views.GetSurface(viewID)
	if !ok {
		return
	}
	if _, err := surface.GoToOffset(offset); err != nil {
		log.Printf("[Navigation] history navigation failed for view %s: %v", viewID, err)
	}
}

// parseDeepLink turns a harbor:// link into a URL the registry understands.
func parseDeepLink(rawLink string) (*url.URL, bool) {
	prefix := DeepLinkScheme + "://"
	if !strings.HasPrefix(strings.ToLower(rawLink), prefix) {
		return nil, false
	}
	parsed, err := urlutil.ParseURL("https://" + rawLink[len(prefix):])
	if err != nil {
		return nil, false
	}
	return parsed, true
}
