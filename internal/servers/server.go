package servers

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/harbor-chat/harbor/internal/urlutil"
)

// Server represents a configured connection endpoint: a remote chat server
// the hub can host views for. The URL is always stored in normalized form
// (scheme present, empty path collapsed to "/").
type Server struct {
	ID             uuid.UUID
	Name           string
	URL            *url.URL
	IsPredefined   bool
	IsLoggedIn     bool
	InitialLoadURL *url.URL
}

// ServerData is the payload of an add/edit flow: what the user confirmed in
// the modal. The pre-auth secret never touches the registry's persistence;
// it is handed to the secret store keyed by the server URL.
type ServerData struct {
	Name          string
	URL           string
	PreAuthSecret string
}

// NewServer creates a Server with a generated ID and a normalized URL.
func NewServer(name, rawURL string, isPredefined bool) (*Server, error) {
	u, err := urlutil.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	return &Server{
		ID:           uuid.New(),
		Name:         name,
		URL:          u,
		IsPredefined: isPredefined,
	}, nil
}

// UpdateURL replaces the server URL, re-normalizing the input.
func (s *Server) UpdateURL(rawURL string) error {
	u, err := urlutil.ParseURL(rawURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	s.URL = u
	return nil
}

// String returns a human-readable string representation.
func (s *Server) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.URL)
}
