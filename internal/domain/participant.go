// Package domain contains entities without logic, just meta-data
package domain

import "errors"

const (
	MaxIdentityLen = 64
	MaxNameLen     = 64
)

var (
	ErrIdentityEmpty   = errors.New("identity empty")
	ErrIdentityTooLong = errors.New("identity too long")
	ErrNameEmpty       = errors.New("display name empty")
	ErrNameTooLong     = errors.New("display name too long")
)

// Identity is the unique participant key within a room.
// Uniqueness across concurrent joiners is the caller's responsibility.
type Identity string

type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// Participant is the identity meta of one session member, local or remote.
// Track and liveness state belongs to the synchronizer, not here.
type Participant struct {
	Identity Identity `json:"identity"`
	Name     string   `json:"name"`
	Metadata string   `json:"metadata"`
}

// NewParticipant avoids raw literals in adapters and keeps validation obvious.
func NewParticipant(identity Identity, name string) (*Participant, error) {
	if len(identity) == 0 {
		return nil, ErrIdentityEmpty
	}
	if len(identity) > MaxIdentityLen {
		return nil, ErrIdentityTooLong
	}
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	return &Participant{Identity: identity, Name: name}, nil
}
