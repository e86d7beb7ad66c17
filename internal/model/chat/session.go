package chat

import "time"

// Visibility is the presentation state of the chat surface.
type Visibility string

const (
	VisibilityClosed        Visibility = "closed"
	VisibilityOpen          Visibility = "open"
	VisibilityOpenMinimized Visibility = "open_minimized"
)

// Session is a point-in-time copy of a widget's state handed to the view layer.
type Session struct {
	ID           string     `json:"id"`
	ProfileID    string     `json:"profileId"`
	Messages     []Message  `json:"messages"`
	Visibility   Visibility `json:"visibility"`
	Notification bool       `json:"hasNewMessages"`
	Draft        string     `json:"draft"`
	Pending      bool       `json:"pending"`
	CreatedAt    time.Time  `json:"createdAt"`
}
