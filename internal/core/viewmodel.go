package core

import "github.com/avoran/huddle/internal/domain"

// TrackView is the UI-facing state of one track publication.
type TrackView struct {
	Kind    domain.TrackKind `json:"kind"`
	SID     string           `json:"sid"`
	Muted   bool             `json:"muted"`
	Enabled bool             `json:"enabled"`
	Surface string           `json:"surface,omitempty"`
}

// ParticipantView is one row of the roster: identity meta plus the
// microphone/camera publication state the sidebar indicators read.
type ParticipantView struct {
	Identity   domain.Identity `json:"identity"`
	Name       string          `json:"name"`
	Role       domain.Role     `json:"role"`
	IsLocal    bool            `json:"isLocal"`
	Microphone *TrackView      `json:"microphone,omitempty"`
	Camera     *TrackView      `json:"camera,omitempty"`
}

// ViewModel is a full snapshot of the session as the UI should render it:
// local participant first, remote participants in arrival order. It is
// recomputed whole on every mutating event, never patched in place.
type ViewModel struct {
	Room         domain.RoomName   `json:"room"`
	State        ConnectionState   `json:"state"`
	Variant      ViewVariant       `json:"variant"`
	Participants []ParticipantView `json:"participants"`
}
