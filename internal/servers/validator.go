package servers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/harbor-chat/harbor/internal/urlutil"
)

// ValidationStatus classifies the outcome of validating a candidate server
// URL. Every call produces exactly one status.
type ValidationStatus string

const (
	// StatusMissing means the input was empty.
	StatusMissing ValidationStatus = "Missing"

	// StatusInvalid means the input could not be parsed as a URL.
	StatusInvalid ValidationStatus = "Invalid"

	// StatusURLExists means another configured server already claims the URL.
	StatusURLExists ValidationStatus = "URLExists"

	// StatusPreAuthRequired means the server answered 403 and needs a
	// pre-auth secret before it will talk to us.
	StatusPreAuthRequired ValidationStatus = "PreAuthRequired"

	// StatusNotAServer means nothing compatible answered at the URL or any
	// parent path of it.
	StatusNotAServer ValidationStatus = "NotAServer"

	// StatusInsecure means only the plain-HTTP variant was reachable.
	StatusInsecure ValidationStatus = "Insecure"

	// StatusURLNotMatched means the server reported a Site URL that itself
	// is unreachable; the reached URL is kept.
	StatusURLNotMatched ValidationStatus = "URLNotMatched"

	// StatusURLUpdated means the server reported a different, reachable
	// Site URL which becomes the canonical URL.
	StatusURLUpdated ValidationStatus = "URLUpdated"

	// StatusOK means the URL is reachable, unique and canonical.
	StatusOK ValidationStatus = "OK"
)

// ValidationResult is the verdict for a single validation call.
type ValidationResult struct {
	Status             ValidationStatus
	ValidatedURL       string
	ServerName         string
	ServerVersion      string
	ExistingServerName string
}

// Validator turns arbitrary user-entered text into a verdict about whether
// it identifies a reachable, unique server, and the canonical URL to store.
// Network failures are converted into statuses, never returned as errors.
type Validator struct {
	registry *Manager
	prober   Prober
}

// NewValidator creates a validator over the given registry and prober.
func NewValidator(registry *Manager, prober Prober) *Validator {
	return &Validator{registry: registry, prober: prober}
}

// Validate runs the full validation state machine. currentID, when not
// uuid.Nil, excludes that server from duplicate checks (the edit-self case).
// When the URL carries a path and nothing answers, validation retries with
// the path trimmed one segment at a time until the root is reached.
func (v *Validator) Validate(ctx context.Context, rawURL string, currentID uuid.UUID, preAuthSecret string) ValidationResult {
	if rawURL == "" {
		return ValidationResult{Status: StatusMissing}
	}

	input := rawURL
	for {
		result, retry := v.validateOnce(ctx, input, currentID, preAuthSecret)
		if retry == "" {
			return result
		}
		log.Printf("[Validator] retrying with trimmed path: %s", retry)
		input = retry
	}
}

// validateOnce validates a single candidate. A non-empty retry return asks
// the caller to run again with a shorter path.
func (v *Validator) validateOnce(ctx context.Context, rawURL string, currentID uuid.UUID, preAuthSecret string) (ValidationResult, string) {
	httpURL := rawURL
	if !urlutil.IsValidURL(rawURL) {
		switch {
		case urlutil.IsValidURI(rawURL) && !strings.HasPrefix(strings.ToLower(rawURL), "http"):
			// A full URI with some other scheme: force it to HTTPS.
			httpURL = urlutil.ForceHTTPS(rawURL)
		case urlutil.IsTypingProtocol(rawURL):
			// Still typing http(s)://; let the well-formedness check fail
			// below rather than guessing a URL out from under the user.
		default:
			httpURL = "https://" + rawURL
		}
	}

	parsed, err := urlutil.ParseURL(httpURL)
	if err != nil {
		return ValidationResult{Status: StatusInvalid}, ""
	}

	// Prefer the secure variant as the primary candidate.
	secureURL := parsed
	if parsed.Scheme == "http" {
		secure := *parsed
		secure.Scheme = "https"
		secureURL = &secure
	}

	// Tell the user if they already have a server at this URL.
	if existing := v.registry.LookupServerByURL(secureURL, true); existing != nil && existing.ID != currentID {
		return ValidationResult{
			Status:             StatusURLExists,
			ExistingServerName: existing.Name,
			ValidatedURL:       existing.URL.String(),
		}, ""
	}

	insecure := *secureURL
	insecure.Scheme = "http"
	insecureURL := &insecure

	// Probe HTTPS first, fall back to HTTP. A 403 on either marks the
	// server as pre-auth gated, preferring the HTTPS URL when both are.
	remoteURL := secureURL
	var remoteInfo *RemoteInfo
	preAuthRequired := false

	remoteInfo, httpsErr := v.testRemote(ctx, secureURL, preAuthSecret)
	if httpsErr != nil {
		httpsNeedsPreAuth := isForbidden(httpsErr)

		info, httpErr := v.testRemote(ctx, insecureURL, preAuthSecret)
		if httpErr == nil {
			remoteInfo = info
			remoteURL = insecureURL
		} else if httpsNeedsPreAuth || isForbidden(httpErr) {
			preAuthRequired = true
			if httpsNeedsPreAuth {
				remoteURL = secureURL
			} else {
				remoteURL = insecureURL
			}
		}
	}

	if preAuthRequired {
		return ValidationResult{
			Status:       StatusPreAuthRequired,
			ValidatedURL: urlutil.StripTrailingSlash(remoteURL.String()),
		}, ""
	}

	if remoteInfo == nil {
		// Nothing answered. The server may be mounted on a parent path, so
		// trim one segment and retry; at the root, give up.
		if parsed.Path != "/" {
			s := parsed.String()
			return ValidationResult{}, s[:strings.LastIndex(s, "/")]
		}
		return ValidationResult{
			Status:       StatusNotAServer,
			ValidatedURL: urlutil.StripTrailingSlash(parsed.String()),
		}, ""
	}

	serverName := displayName(remoteInfo.SiteName, remoteURL)

	// Reachable over HTTP only: report it, never silently upgrade.
	if remoteURL.Scheme == "http" {
		return ValidationResult{
			Status:        StatusInsecure,
			ServerVersion: remoteInfo.ServerVersion,
			ServerName:    serverName,
			ValidatedURL:  remoteURL.String(),
		}, ""
	}

	// Reconcile against the server's self-reported Site URL.
	if remoteInfo.SiteURL != "" {
		if result, ok := v.reconcileSiteURL(ctx, remoteURL, remoteInfo, serverName, currentID, preAuthSecret); ok {
			return result, ""
		}
	}

	return ValidationResult{
		Status:        StatusOK,
		ServerVersion: remoteInfo.ServerVersion,
		ServerName:    serverName,
		ValidatedURL:  remoteURL.String(),
	}, ""
}

// reconcileSiteURL handles the case where the reached URL differs from the
// Site URL the server reports about itself. Returns ok=false when the two
// agree (or the Site URL is unparseable) and the caller should report OK.
func (v *Validator) reconcileSiteURL(ctx context.Context, remoteURL *url.URL, remoteInfo *RemoteInfo, serverName string, currentID uuid.UUID, preAuthSecret string) (ValidationResult, bool) {
	siteURL, err := urlutil.ParseURL(remoteInfo.SiteURL)
	if err != nil {
		// An unparseable Site URL is a remote misconfiguration; keep the
		// URL that actually worked.
		log.Printf("[Validator] server reported unparseable site URL %q: %v", remoteInfo.SiteURL, err)
		return ValidationResult{}, false
	}
	if remoteURL.String() == siteURL.String() {
		return ValidationResult{}, false
	}

	// The Site URL may itself already be configured as another server.
	if existing := v.registry.LookupServerByURL(siteURL, true); existing != nil && existing.ID != currentID {
		return ValidationResult{
			Status:             StatusURLExists,
			ExistingServerName: existing.Name,
			ValidatedURL:       existing.URL.String(),
		}, true
	}

	// An unreachable Site URL is probably a configuration issue on the
	// server; don't adopt it.
	if _, err := v.testRemote(ctx, siteURL, preAuthSecret); err != nil {
		return ValidationResult{
			Status:        StatusURLNotMatched,
			ServerVersion: remoteInfo.ServerVersion,
			ServerName:    serverName,
			ValidatedURL:  remoteURL.String(),
		}, true
	}

	return ValidationResult{
		Status:        StatusURLUpdated,
		ServerVersion: remoteInfo.ServerVersion,
		ServerName:    serverName,
		ValidatedURL:  remoteInfo.SiteURL,
	}, true
}

func (v *Validator) testRemote(ctx context.Context, u *url.URL, preAuthSecret string) (*RemoteInfo, error) {
	info, err := v.prober.Probe(ctx, u, preAuthSecret)
	if err != nil {
		log.Printf("[Validator] probe of %s failed: %v", u, err)
		return nil, err
	}
	return info, nil
}

func isForbidden(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusForbidden
}

// displayName prefers the server's reported site name; a blank or default
// name falls back to the first label of the host.
func displayName(siteName string, remoteURL *url.URL) string {
	if siteName != "" && siteName != "Harbor" {
		return siteName
	}
	host := remoteURL.Hostname()
	if i := strings.Index(host, "."); i > 0 {
		return host[:i]
	}
	return host
}
