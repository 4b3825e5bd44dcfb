package views

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateViewFirstIsPrimary(t *testing.T) {
	m := NewManager()
	serverID := uuid.New()

	first, err := m.CreateView(serverID, ViewTypeTab)
	require.NoError(t, err)
	second, err := m.CreateView(serverID, ViewTypeWindow)
	require.NoError(t, err)

	primary, ok := m.PrimaryView(serverID)
	require.True(t, ok)
	assert.Equal(t, first.ID, primary.ID)
	assert.True(t, m.IsPrimaryView(first.ID))
	assert.False(t, m.IsPrimaryView(second.ID))
}

func TestCreateViewLimit(t *testing.T) {
	m := NewManager()
	serverID := uuid.New()

	for i := 0; i < maxViewsPerServer; i++ {
		_, err := m.CreateView(serverID, ViewTypeTab)
		require.NoError(t, err)
	}

	_, err := m.CreateView(serverID, ViewTypeTab)
	assert.ErrorIs(t, err, ErrViewLimitReached)

	// Other servers are unaffected by the limit.
	_, err = m.CreateView(uuid.New(), ViewTypeTab)
	assert.NoError(t, err)
}

func TestGetViewBySurfaceID(t *testing.T) {
	m := NewManager()
	serverID := uuid.New()

	view, err := m.CreateView(serverID, ViewTypeTab)
	require.NoError(t, err)
	surface, ok := m.GetSurface(view.ID)
	require.True(t, ok)

	found, ok := m.GetViewBySurfaceID(surface.ID())
	require.True(t, ok)
	assert.Equal(t, view.ID, found.ID)

	_, ok = m.GetViewBySurfaceID(uuid.New())
	assert.False(t, ok)
}

func TestCloseViewPromotesNextPrimary(t *testing.T) {
	m := NewManager()
	serverID := uuid.New()

	first, err := m.CreateView(serverID, ViewTypeTab)
	require.NoError(t, err)
	second, err := m.CreateView(serverID, ViewTypeTab)
	require.NoError(t, err)

	m.CloseView(first.ID)

	primary, ok := m.PrimaryView(serverID)
	require.True(t, ok)
	assert.Equal(t, second.ID, primary.ID)

	_, ok = m.GetView(first.ID)
	assert.False(t, ok)
}

func TestRemoveViewsForServer(t *testing.T) {
	m := NewManager()
	serverID := uuid.New()
	otherID := uuid.New()

	_, err := m.CreateView(serverID, ViewTypeTab)
	require.NoError(t, err)
	_, err = m.CreateView(serverID, ViewTypeTab)
	require.NoError(t, err)
	kept, err := m.CreateView(otherID, ViewTypeTab)
	require.NoError(t, err)

	m.RemoveViewsForServer(serverID)

	assert.Empty(t, m.OrderedViewsForServer(serverID))
	_, ok := m.PrimaryView(serverID)
	assert.False(t, ok)
	_, ok = m.GetView(kept.ID)
	assert.True(t, ok)
}

func TestSurfaceLoadSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSurface(uuid.New())
	defer s.Close()

	select {
	case res := <-s.Load(srv.URL + "/town-square"):
		require.NoError(t, res.Err)
		assert.Equal(t, srv.URL+"/town-square", res.URL)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for load result")
	}

	assert.True(t, s.IsReady())
	assert.Equal(t, srv.URL+"/town-square", s.CurrentURL())
}

func TestSurfaceLoadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSurface(uuid.New())
	defer s.Close()

	select {
	case res := <-s.Load(srv.URL):
		require.Error(t, res.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for load result")
	}

	assert.False(t, s.IsReady())
}

func TestSurfaceResetLoadingStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSurface(uuid.New())
	defer s.Close()

	<-s.Load(srv.URL)
	require.True(t, s.IsReady())

	s.ResetLoadingStatus()
	assert.False(t, s.IsReady())
}

func TestSurfaceHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSurface(uuid.New())
	defer s.Close()

	var pushed []string
	s.SetHandlers(func(path string) {
		pushed = append(pushed, path)
	}, nil)

	<-s.Load(srv.URL + "/")
	assert.False(t, s.HistoryState().CanGoBack)

	s.SendHistoryPush("/channels/off-topic")
	require.Equal(t, []string{"/channels/off-topic"}, pushed)
	assert.True(t, s.HistoryState().CanGoBack)
	assert.False(t, s.HistoryState().CanGoForward)

	back, err := s.GoToOffset(-1)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/", back)
	assert.True(t, s.HistoryState().CanGoForward)

	fwd, err := s.GoToOffset(1)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/channels/off-topic", fwd)

	_, err = s.GoToOffset(1)
	assert.Error(t, err)
}
