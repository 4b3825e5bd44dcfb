package servers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RemoteInfo is what a reachable server reports about itself.
type RemoteInfo struct {
	ServerVersion string
	SiteName      string
	SiteURL       string
}

// StatusError is returned by the prober when a server answers with a
// non-success HTTP status. The validator keys off the code (403 means the
// server is gated behind a pre-auth secret).
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d for %s", e.Code, e.URL)
}

// Prober determines reachability and identity of a candidate server URL.
type Prober interface {
	Probe(ctx context.Context, serverURL *url.URL, preAuthSecret string) (*RemoteInfo, error)
}

// preAuthHeader carries the pre-auth secret on probe requests for servers
// sitting behind a gated proxy.
const preAuthHeader = "X-Harbor-Preauth"

// clientConfig is the wire shape of GET /api/client/config.
type clientConfig struct {
	Version  string `json:"version"`
	SiteName string `json:"site_name"`
	SiteURL  string `json:"site_url"`
}

// HTTPProber probes candidate servers over plain HTTP(S): a cheap health
// ping first, then the client config endpoint.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber creates a prober with a bounded request timeout.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Probe pings the server and fetches its client config. Any transport error
// or non-2xx status is returned as an error; the caller decides what each
// failure means.
func (p *HTTPProber) Probe(ctx context.Context, serverURL *url.URL, preAuthSecret string) (*RemoteInfo, error) {
	base := strings.TrimSuffix(serverURL.String(), "/")

	// The health endpoint may be whitelisted on pre-auth gateways, so ping
	// first and only then fetch the config.
	if _, err := p.get(ctx, base+"/api/health", preAuthSecret); err != nil {
		return nil, err
	}

	body, err := p.get(ctx, base+"/api/client/config", preAuthSecret)
	if err != nil {
		return nil, err
	}

	var cfg clientConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	return &RemoteInfo{
		ServerVersion: cfg.Version,
		SiteName:      cfg.SiteName,
		SiteURL:       cfg.SiteURL,
	}, nil
}

func (p *HTTPProber) get(ctx context.Context, rawURL, preAuthSecret string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if preAuthSecret != "" {
		req.Header.Set(preAuthHeader, preAuthSecret)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
