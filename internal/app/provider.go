package app

import (
	"context"

	"github.com/avoran/huddle/internal/domain"
)

// RoomProvider is the external media-room service boundary. Room existence,
// transport, and media negotiation all live behind it.
type RoomProvider interface {
	CreateRoom(ctx context.Context, name domain.RoomName) error
	RemoveParticipant(ctx context.Context, room domain.RoomName, identity domain.Identity) error
}
