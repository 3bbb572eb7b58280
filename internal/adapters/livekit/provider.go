// Package livekit adapts the external LiveKit service to the app and core
// interfaces. All transport and media negotiation lives in the SDK.
package livekit

import (
	"context"

	lkproto "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/avoran/huddle/internal/domain"
)

// Provider wraps the provider's room management API.
// It implements app.RoomProvider.
type Provider struct {
	svc *lksdk.RoomServiceClient
}

func NewProvider(url, apiKey, apiSecret string) *Provider {
	return &Provider{svc: lksdk.NewRoomServiceClient(url, apiKey, apiSecret)}
}

func (p *Provider) CreateRoom(ctx context.Context, name domain.RoomName) error {
	_, err := p.svc.CreateRoom(ctx, &lkproto.CreateRoomRequest{Name: string(name)})
	return err
}

func (p *Provider) RemoveParticipant(ctx context.Context, room domain.RoomName, identity domain.Identity) error {
	_, err := p.svc.RemoveParticipant(ctx, &lkproto.RoomParticipantIdentity{
		Room:     string(room),
		Identity: string(identity),
	})
	return err
}
