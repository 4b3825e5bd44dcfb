package views

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/harbor-chat/harbor/internal/servers"
)

// maxViewsPerServer caps how many tabs and windows one server can hold.
const maxViewsPerServer = 15

// ErrViewLimitReached is returned when a server already has the maximum
// number of views.
var ErrViewLimitReached = fmt.Errorf("view limit of %d reached", maxViewsPerServer)

// Manager tracks every view and its surface, and knows which view is the
// primary one for each server.
type Manager struct {
	views     map[uuid.UUID]*View
	surfaces  map[uuid.UUID]*Surface  // keyed by view ID
	bySurface map[uuid.UUID]uuid.UUID // surface ID -> view ID
	primary   map[uuid.UUID]uuid.UUID // server ID -> primary view ID

	mu sync.RWMutex
}

// NewManager creates an empty view manager.
func NewManager() *Manager {
	return &Manager{
		views:     make(map[uuid.UUID]*View),
		surfaces:  make(map[uuid.UUID]*Surface),
		bySurface: make(map[uuid.UUID]uuid.UUID),
		primary:   make(map[uuid.UUID]uuid.UUID),
	}
}

// BindRegistry subscribes to registry events so that servers get a primary
// view when added and lose all views when removed.
func (m *Manager) BindRegistry(registry *servers.Manager) {
	registry.Subscribe(func(ev servers.Event) {
		switch ev.Type {
		case servers.EventAdded:
			if _, err := m.CreateView(ev.ServerID, ViewTypeTab); err != nil {
				log.Printf("[ViewManager] failed to create view for server %s: %v", ev.ServerID, err)
			}
		case servers.EventRemoved:
			m.RemoveViewsForServer(ev.ServerID)
		}
	})
}

// CreateView creates a view and its surface for a server. The first view
// created for a server becomes its primary view.
func (m *Manager) CreateView(serverID uuid.UUID, viewType ViewType) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, v := range m.views {
		if v.ServerID == serverID {
			count++
		}
	}
	if count >= maxViewsPerServer {
		return nil, ErrViewLimitReached
	}

	view := NewView(serverID, viewType, count)
	surface := NewSurface(view.ID)

	m.views[view.ID] = view
	m.surfaces[view.ID] = surface
	m.bySurface[surface.ID()] = view.ID
	if _, ok := m.primary[serverID]; !ok {
		m.primary[serverID] = view.ID
	}

	log.Printf("[ViewManager] created %s", view)
	return view, nil
}

// GetView returns the view with the given ID.
func (m *Manager) GetView(viewID uuid.UUID) (*View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.views[viewID]
	return v, ok
}

// GetSurface returns the surface backing a view.
func (m *Manager) GetSurface(viewID uuid.UUID) (*Surface, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.surfaces[viewID]
	return s, ok
}

// GetViewBySurfaceID resolves a surface ID back to its view.
func (m *Manager) GetViewBySurfaceID(surfaceID uuid.UUID) (*View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	viewID, ok := m.bySurface[surfaceID]
	if !ok {
		return nil, false
	}
	v, ok := m.views[viewID]
	return v, ok
}

// PrimaryView returns the primary view for a server, if any.
func (m *Manager) PrimaryView(serverID uuid.UUID) (*View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	viewID, ok := m.primary[serverID]
	if !ok {
		return nil, false
	}
	v, ok := m.views[viewID]
	return v, ok
}

// IsPrimaryView reports whether the given view is its server's primary view.
func (m *Manager) IsPrimaryView(viewID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.views[viewID]
	if !ok {
		return false
	}
	return m.primary[v.ServerID] == viewID
}

// SetViewIsOpen toggles whether a view is currently open.
func (m *Manager) SetViewIsOpen(viewID uuid.UUID, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.views[viewID]; ok {
		v.IsOpen = open
	}
}

// OrderedViewsForServer returns a server's views sorted by their order.
func (m *Manager) OrderedViewsForServer(serverID uuid.UUID) []*View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*View
	for _, v := range m.views {
		if v.ServerID == serverID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// CloseView removes a view and shuts down its surface. Closing the primary
// view promotes the next ordered view, if one exists.
func (m *Manager) CloseView(viewID uuid.UUID) {
	m.mu.Lock()
	v, ok := m.views[viewID]
	if !ok {
		m.mu.Unlock()
		return
	}

	surface := m.surfaces[viewID]
	delete(m.views, viewID)
	delete(m.surfaces, viewID)
	if surface != nil {
		delete(m.bySurface, surface.ID())
	}

	if m.primary[v.ServerID] == viewID {
		delete(m.primary, v.ServerID)
		var next *View
		for _, other := range m.views {
			if other.ServerID != v.ServerID {
				continue
			}
			if next == nil || other.Order < next.Order {
				next = other
			}
		}
		if next != nil {
			m.primary[v.ServerID] = next.ID
		}
	}
	m.mu.Unlock()

	if surface != nil {
		surface.Close()
	}
	log.Printf("[ViewManager] closed %s", v)
}

// RemoveViewsForServer closes every view belonging to a server.
func (m *Manager) RemoveViewsForServer(serverID uuid.UUID) {
	m.mu.RLock()
	var ids []uuid.UUID
	for id, v := range m.views {
		if v.ServerID == serverID {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.CloseView(id)
	}
}
