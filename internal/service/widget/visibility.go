package widget

import "github.com/zhouzirui/support-chat/backend/internal/model/chat"

// Visibility tracks whether the chat surface is hidden, shown or collapsed,
// together with the unseen-reply flag derived from it.
//
//	CLOSED --ToggleOpen--> OPEN --ToggleMinimize--> OPEN_MINIMIZED
//	  ^                     |  <--ToggleMinimize--       |
//	  +-----ToggleOpen------+----------ToggleOpen--------+
//
// CLOSED cannot reach OPEN_MINIMIZED directly.
type Visibility struct {
	state        chat.Visibility
	notification bool
}

// NewVisibility starts closed with no notification.
func NewVisibility() *Visibility {
	return &Visibility{state: chat.VisibilityClosed}
}

// State returns the current presentation state.
func (v *Visibility) State() chat.Visibility {
	return v.state
}

// Notification reports whether an agent reply arrived while the surface was
// not fully open.
func (v *Visibility) Notification() bool {
	return v.notification
}

// ToggleOpen closes an open (or minimized) surface and opens a closed one.
// Opening always lands in OPEN and clears the notification.
func (v *Visibility) ToggleOpen() chat.Visibility {
	if v.state == chat.VisibilityClosed {
		v.enterOpen()
	} else {
		v.state = chat.VisibilityClosed
	}
	return v.state
}

// ToggleMinimize flips between OPEN and OPEN_MINIMIZED. It does nothing while
// closed.
func (v *Visibility) ToggleMinimize() chat.Visibility {
	switch v.state {
	case chat.VisibilityOpen:
		v.state = chat.VisibilityOpenMinimized
	case chat.VisibilityOpenMinimized:
		v.enterOpen()
	}
	return v.state
}

// ReplyResolved records that an agent reply landed and returns the resulting
// notification flag.
func (v *Visibility) ReplyResolved() bool {
	if v.state != chat.VisibilityOpen {
		v.notification = true
	}
	return v.notification
}

func (v *Visibility) enterOpen() {
	v.state = chat.VisibilityOpen
	v.notification = false
}
