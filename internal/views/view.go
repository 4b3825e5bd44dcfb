package views

import (
	"fmt"

	"github.com/google/uuid"
)

// ViewType distinguishes tabs inside the main window from popout windows.
type ViewType int

const (
	ViewTypeTab ViewType = iota
	ViewTypeWindow
)

// String returns a human-readable string representation of the view type.
func (t ViewType) String() string {
	switch t {
	case ViewTypeTab:
		return "Tab"
	case ViewTypeWindow:
		return "Window"
	default:
		return "Unknown"
	}
}

// View is a renderable unit bound to one server: a tab or a popout window.
type View struct {
	ID       uuid.UUID
	ServerID uuid.UUID
	Type     ViewType
	IsOpen   bool
	Order    int
}

// NewView creates an open view for a server.
func NewView(serverID uuid.UUID, viewType ViewType, order int) *View {
	return &View{
		ID:       uuid.New(),
		ServerID: serverID,
		Type:     viewType,
		IsOpen:   true,
		Order:    order,
	}
}

// String returns a human-readable string representation.
func (v *View) String() string {
	return fmt.Sprintf("%s view %s (server %s)", v.Type, v.ID, v.ServerID)
}
