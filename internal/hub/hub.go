package hub

import (
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/google/uuid"
	"github.com/harbor-chat/harbor/internal/secrets"
	"github.com/harbor-chat/harbor/internal/servers"
	"github.com/harbor-chat/harbor/internal/urlutil"
)

// ErrCancelled is returned by a Modals implementation when the user backs
// out of a prompt without completing it.
var ErrCancelled = errors.New("cancelled")

// Modals presents interactive prompts and blocks until the user completes
// or cancels them.
type Modals interface {
	// NewServer prompts for a new server, optionally prefilled with a URL.
	NewServer(prefillURL string) (servers.ServerData, error)
	// EditServer prompts with a server's current data. For predefined
	// servers only the pre-auth secret may change.
	EditServer(serverID uuid.UUID, current servers.ServerData, isPredefined bool) (servers.ServerData, error)
	// ConfirmRemoveServer asks the user to confirm removal.
	ConfirmRemoveServer(name string) (bool, error)
	// Welcome shows the first-run screen, which ends in adding a server.
	Welcome(prefillURL string) (servers.ServerData, error)
}

// Hub drives the add, edit and remove server flows, connecting modal
// results to the registry and the secret store.
type Hub struct {
	registry *servers.Manager
	secrets  secrets.Store
	modals   Modals
}

// New creates a hub around the given registry, secret store and modals.
func New(registry *servers.Manager, secretStore secrets.Store, modals Modals) *Hub {
	return &Hub{
		registry: registry,
		secrets:  secretStore,
		modals:   modals,
	}
}

// ShowNewServerModal runs the add-server flow. prefillURL seeds the URL
// field, and when the add succeeds it doubles as the first page to load.
func (h *Hub) ShowNewServerModal(prefillURL string) {
	data, err := h.modals.NewServer(prefillURL)
	if err != nil {
		if !errors.Is(err, ErrCancelled) {
			log.Printf("[ServerHub] new server modal failed: %v", err)
		}
		return
	}

	if _, err := h.addServer(data, prefillURL); err != nil {
		log.Printf("[ServerHub] failed to add server: %v", err)
	}
}

// ShowWelcomeScreen runs the first-run flow, which collects the first
// server the same way the add flow does.
func (h *Hub) ShowWelcomeScreen(prefillURL string) {
	data, err := h.modals.Welcome(prefillURL)
	if err != nil {
		if !errors.Is(err, ErrCancelled) {
			log.Printf("[ServerHub] welcome screen failed: %v", err)
		}
		return
	}

	if _, err := h.addServer(data, prefillURL); err != nil {
		log.Printf("[ServerHub] failed to add server: %v", err)
	}
}

// ShowWelcomeScreenIfNeeded shows the welcome screen when no servers are
// configured yet.
func (h *Hub) ShowWelcomeScreenIfNeeded() {
	if h.registry.HasServers() {
		return
	}
	h.ShowWelcomeScreen("")
}

// addServer registers a server and stores its pre-auth secret.
func (h *Hub) addServer(data servers.ServerData, prefillURL string) (*servers.Server, error) {
	// The prefill contributes only its path and query. Its host may differ
	// from the confirmed server URL, after a typo fix or a Site URL update.
	var initialLoadURL *url.URL
	if prefillURL != "" {
		if base, err := urlutil.ParseURL(data.URL); err == nil {
			if prefill, err := urlutil.ParseURL(prefillURL); err == nil {
				target := *base
				target.Path = prefill.Path
				target.RawQuery = prefill.RawQuery
				initialLoadURL = &target
			}
		}
	}

	server, err := h.registry.AddServer(data, initialLoadURL)
	if err != nil {
		return nil, fmt.Errorf("failed to register server: %w", err)
	}

	if err := h.secrets.Set(server.URL.String(), data.PreAuthSecret); err != nil {
		log.Printf("[ServerHub] failed to store pre-auth secret for %s: %v", server.URL, err)
	}

	return server, nil
}

// SwitchServer makes the given server the active one.
func (h *Hub) SwitchServer(serverID uuid.UUID) {
	if h.registry.GetServer(serverID) == nil {
		log.Printf("[ServerHub] cannot switch to unknown server %s", serverID)
		return
	}
	h.registry.SetCurrentServer(serverID)
}

// ShowEditServerModal runs the edit flow for an existing server.
func (h *Hub) ShowEditServerModal(serverID uuid.UUID) {
	server := h.registry.GetServer(serverID)
	if server == nil {
		log.Printf("[ServerHub] cannot edit unknown server %s", serverID)
		return
	}

	oldURL := server.URL.String()
	currentSecret, err := h.secrets.Get(oldURL)
	if err != nil && !errors.Is(err, secrets.ErrNotFound) {
		log.Printf("[ServerHub] failed to read pre-auth secret for %s: %v", oldURL, err)
	}

	current := servers.ServerData{
		Name:          server.Name,
		URL:           oldURL,
		PreAuthSecret: currentSecret,
	}

	data, err := h.modals.EditServer(serverID, current, server.IsPredefined)
	if err != nil {
		if !errors.Is(err, ErrCancelled) {
			log.Printf("[ServerHub] edit server modal failed: %v", err)
		}
		return
	}

	// Name and URL of predefined servers are fixed by configuration. The
	// pre-auth secret is still the user's to change.
	if !server.IsPredefined {
		if _, err := h.registry.EditServer(serverID, data); err != nil {
			log.Printf("[ServerHub] failed to edit server %s: %v", serverID, err)
			return
		}
	}

	updated := h.registry.GetServer(serverID)
	if updated == nil {
		return
	}
	newURL := updated.URL.String()

	if newURL != oldURL {
		if err := h.secrets.Delete(oldURL); err != nil && !errors.Is(err, secrets.ErrNotFound) {
			log.Printf("[ServerHub] failed to remove pre-auth secret for %s: %v", oldURL, err)
		}
	}
	if err := h.secrets.Set(newURL, data.PreAuthSecret); err != nil {
		log.Printf("[ServerHub] failed to store pre-auth secret for %s: %v", newURL, err)
	}
}

// ShowRemoveServerModal runs the remove flow for an existing server.
func (h *Hub) ShowRemoveServerModal(serverID uuid.UUID) {
	server := h.registry.GetServer(serverID)
	if server == nil {
		log.Printf("[ServerHub] cannot remove unknown server %s", serverID)
		return
	}

	confirmed, err := h.modals.ConfirmRemoveServer(server.Name)
	if err != nil {
		if !errors.Is(err, ErrCancelled) {
			log.Printf("[ServerHub] remove server modal failed: %v", err)
		}
		return
	}
	if !confirmed {
		return
	}

	serverURL := server.URL.String()
	if err := h.registry.RemoveServer(serverID); err != nil {
		log.Printf("[ServerHub] failed to remove server %s: %v", serverID, err)
		return
	}

	// Secret cleanup is best effort; the server itself is already gone.
	if err := h.secrets.Delete(serverURL); err != nil && !errors.Is(err, secrets.ErrNotFound) {
		log.Printf("[ServerHub] failed to remove pre-auth secret for %s: %v", serverURL, err)
	}
}
