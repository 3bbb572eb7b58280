package domain

import "time"

type RoomName string

// RoomRecord is the append-only trace of a successful room creation.
// Room existence itself lives on the media provider; this is display metadata.
type RoomRecord struct {
	RoomName     RoomName  `json:"roomName"`
	CreatorEmail string    `json:"creatorEmail"`
	CreatorName  string    `json:"creatorName"`
	CreatedAt    time.Time `json:"createdAt"`
}
