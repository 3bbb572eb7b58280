package core

import (
	"context"
	"errors"

	"github.com/avoran/huddle/internal/domain"
)

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateFailed       ConnectionState = "failed"
)

var (
	ErrAlreadyConnected = errors.New("session already connected")
	ErrNotConnected     = errors.New("session not connected")
	ErrConnect          = errors.New("session connect failed")
)

// MediaTrack is the attachable media handle behind a publication.
type MediaTrack interface {
	ID() string
	Kind() domain.TrackKind
}

// TrackEvent describes one publish/unpublish/subscribe/unsubscribe/mute
// transition of a single track publication.
type TrackEvent struct {
	Participant domain.Participant
	Kind        domain.TrackKind
	SID         string
	Muted       bool
	// Track carries the attachable media; nil until media is available
	// (a publication can be announced before it is subscribed).
	Track MediaTrack
	Local bool
}

// SessionEvents is the typed event stream of one RoomSession.
// The adapter owns emission; the synchronizer owns subscription.
type SessionEvents struct {
	ParticipantJoined Emitter[domain.Participant]
	ParticipantLeft   Emitter[domain.Participant]
	TrackPublished    Emitter[TrackEvent]
	TrackUnpublished  Emitter[TrackEvent]
	TrackSubscribed   Emitter[TrackEvent]
	TrackUnsubscribed Emitter[TrackEvent]
	TrackMuteChanged  Emitter[TrackEvent]
	Disconnected      Emitter[string]
}

type ConnectInfo struct {
	URL      string
	Token    string
	RoomName domain.RoomName
	// Observer joins subscribe-only: no local microphone or camera
	// publication is attempted.
	Observer bool
}

// RoomSession is one active connection to a conferencing room.
// Owned exclusively by a Synchronizer. The adapter must not emit events
// after Disconnect returns.
type RoomSession interface {
	Connect(ctx context.Context, info ConnectInfo) error
	Events() *SessionEvents

	// Local returns the local participant meta; valid after Connect.
	Local() domain.Participant
	// Participants returns the remote participants present at connect time.
	Participants() []domain.Participant

	SetMicrophoneEnabled(ctx context.Context, enabled bool) error
	SetCameraEnabled(ctx context.Context, enabled bool) error

	Disconnect()
}
