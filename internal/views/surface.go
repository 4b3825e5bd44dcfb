package views

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// LoadResult is delivered exactly once for each Load call.
type LoadResult struct {
	URL string
	Err error
}

// HistoryState describes whether the surface can navigate back or forward.
type HistoryState struct {
	CanGoBack    bool
	CanGoForward bool
}

// Surface is the renderable unit behind a view. It loads server pages over
// HTTP, keeps an in-surface history stack, and holds an optional WebSocket
// event connection to the loaded server for live updates.
type Surface struct {
	id     uuid.UUID
	viewID uuid.UUID

	client *http.Client

	// Event channel callbacks
	onHistoryPush  func(path string)
	onHistoryState func(HistoryState)

	// State
	ready      bool
	currentURL string
	history    []string
	historyIdx int

	conn *websocket.Conn
	done chan struct{}

	mu sync.RWMutex
}

// NewSurface creates a detached surface for a view.
func NewSurface(viewID uuid.UUID) *Surface {
	return &Surface{
		id:         uuid.New(),
		viewID:     viewID,
		client:     &http.Client{Timeout: 10 * time.Second},
		historyIdx: -1,
	}
}

// ID returns the surface identifier.
func (s *Surface) ID() uuid.UUID {
	return s.id
}

// ViewID returns the identifier of the view this surface renders.
func (s *Surface) ViewID() uuid.UUID {
	return s.viewID
}

// SetHandlers sets the navigation event handlers.
func (s *Surface) SetHandlers(onHistoryPush func(path string), onHistoryState func(HistoryState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onHistoryPush = onHistoryPush
	s.onHistoryState = onHistoryState
}

// IsReady reports whether the surface has finished loading a page.
func (s *Surface) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// CurrentURL returns the last successfully loaded URL.
func (s *Surface) CurrentURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentURL
}

// ResetLoadingStatus marks the surface as loading again so that the next
// Load result is the one observers should act on.
func (s *Surface) ResetLoadingStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
}

// Load fetches the given URL asynchronously. The returned channel receives
// exactly one result and is then closed.
func (s *Surface) Load(rawURL string) <-chan LoadResult {
	result := make(chan LoadResult, 1)

	go func() {
		defer close(result)

		err := s.fetch(rawURL)
		if err != nil {
			s.mu.Lock()
			s.ready = false
			s.mu.Unlock()
			result <- LoadResult{URL: rawURL, Err: err}
			return
		}

		s.mu.Lock()
		s.ready = true
		s.currentURL = rawURL
		s.pushHistoryLocked(rawURL)
		s.mu.Unlock()

		// Live updates are best effort; the page itself loaded fine.
		if err := s.connectEvents(rawURL); err != nil {
			log.Printf("[Surface] event connection to %s failed: %v", rawURL, err)
		}

		s.notifyHistoryState()
		result <- LoadResult{URL: rawURL}
	}()

	return result
}

// fetch performs the page load request.
func (s *Surface) fetch(rawURL string) error {
	resp, err := s.client.Get(rawURL)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to load %s: status %d", rawURL, resp.StatusCode)
	}
	return nil
}

// connectEvents dials the server's WebSocket event endpoint for the loaded
// page, replacing any previous connection.
func (s *Surface) connectEvents(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme == "http" {
		u.Scheme = "ws"
	} else {
		u.Scheme = "wss"
	}
	u.Path = "/api/events"
	u.RawQuery = ""

	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	s.mu.Lock()
	if s.conn != nil {
		close(s.done)
		s.conn.Close()
	}
	s.conn = conn
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.readPump(conn, done)
	go s.pingPump(conn, done)

	return nil
}

// readPump drains the event connection until it fails or the surface closes.
func (s *Surface) readPump(conn *websocket.Conn, done chan struct{}) {
	conn.SetReadLimit(512 * 1024) // 512KB
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Surface] event connection error: %v", err)
			}
			conn.Close()
			return
		}

		select {
		case <-done:
			conn.Close()
			return
		default:
		}
	}
}

// pingPump keeps the event connection alive.
func (s *Surface) pingPump(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// SendHistoryPush records an in-page navigation to the given path and
// notifies the handler.
func (s *Surface) SendHistoryPush(path string) {
	s.mu.Lock()
	u, err := url.Parse(s.currentURL)
	if err != nil || u == nil {
		s.mu.Unlock()
		return
	}
	u.Path = path
	u.RawQuery = ""
	if i := strings.Index(path, "?"); i >= 0 {
		u.Path = path[:i]
		u.RawQuery = path[i+1:]
	}
	target := u.String()
	s.currentURL = target
	s.pushHistoryLocked(target)
	onPush := s.onHistoryPush
	s.mu.Unlock()

	if onPush != nil {
		onPush(path)
	}
	s.notifyHistoryState()
}

// pushHistoryLocked appends a URL to the history stack, discarding any
// forward entries. Callers must hold mu.
func (s *Surface) pushHistoryLocked(rawURL string) {
	if s.historyIdx >= 0 && s.history[s.historyIdx] == rawURL {
		return
	}
	s.history = append(s.history[:s.historyIdx+1], rawURL)
	s.historyIdx = len(s.history) - 1
}

// HistoryState returns the current back/forward availability.
func (s *Surface) HistoryState() HistoryState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return HistoryState{
		CanGoBack:    s.historyIdx > 0,
		CanGoForward: s.historyIdx < len(s.history)-1,
	}
}

// GoToOffset moves within the history stack and returns the URL at the new
// position.
func (s *Surface) GoToOffset(offset int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.historyIdx + offset
	if idx < 0 || idx >= len(s.history) {
		return "", fmt.Errorf("history offset %d out of range", offset)
	}
	s.historyIdx = idx
	s.currentURL = s.history[idx]
	return s.currentURL, nil
}

// notifyHistoryState pushes the current back/forward state to the handler.
func (s *Surface) notifyHistoryState() {
	s.mu.RLock()
	onState := s.onHistoryState
	state := HistoryState{
		CanGoBack:    s.historyIdx > 0,
		CanGoForward: s.historyIdx < len(s.history)-1,
	}
	s.mu.RUnlock()

	if onState != nil {
		onState(state)
	}
}

// Close tears down the event connection.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = false
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
		s.conn = nil
		close(s.done)
	}
}
