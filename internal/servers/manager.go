package servers

import (
	"fmt"
	"log"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/harbor-chat/harbor/internal/urlutil"
)

// EventType identifies a registry change event.
type EventType int

const (
	EventAdded EventType = iota
	EventRemoved
	EventURLChanged
	EventNameChanged
	EventSwitched
	EventLoggedInChanged
	EventOrderUpdated
)

// String returns a human-readable string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "Added"
	case EventRemoved:
		return "Removed"
	case EventURLChanged:
		return "URLChanged"
	case EventNameChanged:
		return "NameChanged"
	case EventSwitched:
		return "Switched"
	case EventLoggedInChanged:
		return "LoggedInChanged"
	case EventOrderUpdated:
		return "OrderUpdated"
	default:
		return "Unknown"
	}
}

// Event is delivered to subscribers on every registry mutation.
type Event struct {
	Type     EventType
	ServerID uuid.UUID
}

// StoredServer is the persistence shape of a user-added server. Predefined
// servers come from the app config and are never written back.
type StoredServer struct {
	ID    uuid.UUID
	Name  string
	URL   string
	Order int
}

// Store persists the user-added server list. Implemented by the sqlite store;
// a nil Store means an in-memory registry (tests).
type Store interface {
	SaveServers(servers []StoredServer, currentIndex int) error
}

// Manager holds the ordered collection of configured servers and their
// remote info. All mutation happens behind a single mutex so that exactly
// one mutation completes at a time.
type Manager struct {
	mu              sync.RWMutex
	servers         map[uuid.UUID]*Server
	remoteInfo      map[uuid.UUID]*RemoteInfo
	serverOrder     []uuid.UUID
	predefinedOrder []uuid.UUID
	currentServerID uuid.UUID
	store           Store
	subscribers     []func(Event)
}

// NewManager creates an empty registry backed by the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		servers:    make(map[uuid.UUID]*Server),
		remoteInfo: make(map[uuid.UUID]*RemoteInfo),
		store:      store,
	}
}

// Subscribe registers a callback for registry change events. Callbacks run
// synchronously on the mutating goroutine and must not call back into the
// Manager's mutators.
func (m *Manager) Subscribe(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *Manager) emit(e Event) {
	m.mu.RLock()
	subs := make([]func(Event), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

// HasServers reports whether any server is configured.
func (m *Manager) HasServers() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.servers) > 0
}

// GetServer returns the server with the given id, or nil.
func (m *Manager) GetServer(id uuid.UUID) *Server {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.servers[id]
}

// GetAllServers returns all servers in unspecified order.
func (m *Manager) GetAllServers() []*Server {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allServersLocked()
}

func (m *Manager) allServersLocked() []*Server {
	all := make([]*Server, 0, len(m.servers))
	for _, srv := range m.servers {
		all = append(all, srv)
	}
	return all
}

// GetOrderedServers returns predefined servers first, then user-added
// servers in their configured order.
func (m *Manager) GetOrderedServers() []*Server {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ordered := make([]*Server, 0, len(m.servers))
	for _, id := range m.predefinedOrder {
		if srv, ok := m.servers[id]; ok {
			ordered = append(ordered, srv)
		}
	}
	for _, id := range m.serverOrder {
		if srv, ok := m.servers[id]; ok {
			ordered = append(ordered, srv)
		}
	}
	return ordered
}

// CurrentServerID returns the id of the current server, or uuid.Nil.
func (m *Manager) CurrentServerID() uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentServerID
}

// SetCurrentServer switches the current server and notifies subscribers.
func (m *Manager) SetCurrentServer(id uuid.UUID) {
	m.mu.Lock()
	if m.currentServerID == id {
		m.mu.Unlock()
		return
	}
	if _, ok := m.servers[id]; !ok {
		m.mu.Unlock()
		return
	}
	m.currentServerID = id
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventSwitched, ServerID: id})
}

// GetRemoteInfo returns the last probed remote info for a server, or nil.
func (m *Manager) GetRemoteInfo(id uuid.UUID) *RemoteInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.remoteInfo[id]
}

// UpdateRemoteInfo stores freshly probed remote info. When the info was
// produced by a validated probe and the server reports a different Site URL,
// the stored server URL is updated to the canonical one.
func (m *Manager) UpdateRemoteInfo(id uuid.UUID, info *RemoteInfo, siteURLValidated bool) {
	m.mu.Lock()
	srv, ok := m.servers[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.remoteInfo[id] = info

	urlChanged := false
	if siteURLValidated && info.SiteURL != "" {
		if siteURL, err := urlutil.ParseURL(info.SiteURL); err == nil && srv.URL.String() != siteURL.String() {
			srv.URL = siteURL
			urlChanged = true
			m.persistLocked()
		}
	}
	m.mu.Unlock()

	if urlChanged {
		m.emit(Event{Type: EventURLChanged, ServerID: id})
	}
}

// SetLoggedIn records the session state for a server.
func (m *Manager) SetLoggedIn(id uuid.UUID, loggedIn bool) {
	m.mu.Lock()
	srv, ok := m.servers[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	srv.IsLoggedIn = loggedIn
	m.mu.Unlock()

	m.emit(Event{Type: EventLoggedInChanged, ServerID: id})
}

// LookupServerByURL finds the server whose URL contains the given URL,
// matching host (and scheme unless ignoreScheme) and path prefix.
func (m *Manager) LookupServerByURL(input *url.URL, ignoreScheme bool) *Server {
	if input == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, srv := range m.allServersLocked() {
		if urlutil.EqualIgnoringSubpath(srv.URL, input, ignoreScheme) &&
			hasPathPrefix(input.Path, srv.URL.Path) {
			return srv
		}
	}
	return nil
}

func hasPathPrefix(inputPath, serverPath string) bool {
	formatted := urlutil.FormattedPathName(inputPath)
	base := urlutil.FormattedPathName(serverPath)
	return len(formatted) >= len(base) && formatted[:len(base)] == base
}

// AddServer creates a server from modal data and registers it as the new
// current server. An initial load URL (deep-link prefill) is attached when
// provided.
func (m *Manager) AddServer(data ServerData, initialLoadURL *url.URL) (*Server, error) {
	srv, err := NewServer(data.Name, data.URL, false)
	if err != nil {
		return nil, err
	}
	srv.InitialLoadURL = initialLoadURL

	m.mu.Lock()
	m.servers[srv.ID] = srv
	m.serverOrder = append(m.serverOrder, srv.ID)
	m.currentServerID = srv.ID
	m.persistLocked()
	m.mu.Unlock()

	log.Printf("[ServerManager] added server %s", srv.ID)
	m.emit(Event{Type: EventAdded, ServerID: srv.ID})
	return srv, nil
}

// EditServer updates the name and URL of a user-added server. Predefined
// servers are immutable and returned unchanged.
func (m *Manager) EditServer(id uuid.UUID, data ServerData) (*Server, error) {
	m.mu.Lock()
	srv, ok := m.servers[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("server %s not found", id)
	}
	if srv.IsPredefined {
		m.mu.Unlock()
		log.Printf("[ServerManager] cannot edit predefined server %s", id)
		return srv, nil
	}

	var events []EventType
	newURL, err := urlutil.ParseURL(data.URL)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if srv.URL.String() != newURL.String() {
		events = append(events, EventURLChanged)
	}
	if srv.Name != data.Name {
		events = append(events, EventNameChanged)
	}

	srv.Name = data.Name
	srv.URL = newURL
	m.persistLocked()
	m.mu.Unlock()

	for _, t := range events {
		m.emit(Event{Type: t, ServerID: id})
	}
	return srv, nil
}

// RemoveServer deletes a server and its remote info. When the removed server
// was current, a neighbouring server becomes current.
func (m *Manager) RemoveServer(id uuid.UUID) error {
	m.mu.Lock()
	srv, ok := m.servers[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("server %s not found", id)
	}

	idx := -1
	for i, orderedID := range m.serverOrder {
		if orderedID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		m.serverOrder = append(m.serverOrder[:idx], m.serverOrder[idx+1:]...)
	}
	for i, predefinedID := range m.predefinedOrder {
		if predefinedID == id {
			m.predefinedOrder = append(m.predefinedOrder[:i], m.predefinedOrder[i+1:]...)
			break
		}
	}
	delete(m.remoteInfo, id)
	delete(m.servers, id)

	var switched uuid.UUID
	if m.currentServerID == id {
		m.currentServerID = uuid.Nil
		if len(m.serverOrder) > 0 {
			next := idx - 1
			if next < 0 {
				next = 0
			}
			if next >= len(m.serverOrder) {
				next = len(m.serverOrder) - 1
			}
			m.currentServerID = m.serverOrder[next]
			switched = m.currentServerID
		}
	}
	m.persistLocked()
	m.mu.Unlock()

	log.Printf("[ServerManager] removed server %s (%s)", srv.ID, srv.Name)
	m.emit(Event{Type: EventRemoved, ServerID: id})
	if switched != uuid.Nil {
		m.emit(Event{Type: EventSwitched, ServerID: switched})
	}
	return nil
}

// UpdateServerOrder reorders the user-added servers. Unknown and predefined
// ids are dropped from the new order.
func (m *Manager) UpdateServerOrder(order []uuid.UUID) {
	m.mu.Lock()
	filtered := make([]uuid.UUID, 0, len(order))
	for _, id := range order {
		if srv, ok := m.servers[id]; ok && !srv.IsPredefined {
			filtered = append(filtered, id)
		}
	}
	m.serverOrder = filtered
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventOrderUpdated})
}

// Init seeds the registry from predefined and stored servers, dropping
// duplicates by name+URL, and restores the current server.
func (m *Manager) Init(predefined []*Server, stored []StoredServer, currentIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.servers = make(map[uuid.UUID]*Server)
	m.remoteInfo = make(map[uuid.UUID]*RemoteInfo)
	m.serverOrder = nil
	m.predefinedOrder = nil
	m.currentServerID = uuid.Nil

	seen := make(map[string]bool)
	add := func(srv *Server) bool {
		key := srv.Name + ":" + srv.URL.String()
		if seen[key] {
			return false
		}
		seen[key] = true
		m.servers[srv.ID] = srv
		if srv.IsPredefined {
			m.predefinedOrder = append(m.predefinedOrder, srv.ID)
		} else {
			m.serverOrder = append(m.serverOrder, srv.ID)
		}
		return true
	}

	for _, srv := range predefined {
		add(srv)
	}
	for _, rec := range stored {
		u, err := urlutil.ParseURL(rec.URL)
		if err != nil {
			log.Printf("[ServerManager] dropping stored server %s: %v", rec.ID, err)
			continue
		}
		id := rec.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		add(&Server{ID: id, Name: rec.Name, URL: u})
	}

	if currentIndex >= 0 && currentIndex < len(m.serverOrder) {
		m.currentServerID = m.serverOrder[currentIndex]
	} else if len(m.serverOrder) > 0 {
		m.currentServerID = m.serverOrder[0]
	} else if len(m.predefinedOrder) > 0 {
		m.currentServerID = m.predefinedOrder[0]
	}
}

// persistLocked writes the user-added servers through the store. Persistence
// failures are logged, never propagated; the in-memory registry stays
// authoritative.
func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	records := make([]StoredServer, 0, len(m.serverOrder))
	currentIndex := -1
	for i, id := range m.serverOrder {
		srv, ok := m.servers[id]
		if !ok {
			continue
		}
		records = append(records, StoredServer{ID: srv.ID, Name: srv.Name, URL: srv.URL.String(), Order: i})
		if id == m.currentServerID {
			currentIndex = i
		}
	}
	if err := m.store.SaveServers(records, currentIndex); err != nil {
		log.Printf("[ServerManager] failed to persist servers: %v", err)
	}
}
