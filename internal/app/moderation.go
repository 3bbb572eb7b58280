package app

import (
	"context"

	"github.com/livekit/protocol/auth"
	"github.com/rs/zerolog/log"

	"github.com/avoran/huddle/internal/domain"
)

// Moderator enforces who may evict whom, then forwards to the provider.
type Moderator struct {
	apiSecret string
	provider  RoomProvider
}

func NewModerator(apiSecret string, provider RoomProvider) *Moderator {
	return &Moderator{apiSecret: apiSecret, provider: provider}
}

// RemoveParticipant validates the bearer credential and evicts target from
// the credential's bound room only. The room name never comes from the
// request payload, so a forged room parameter cannot evict across rooms.
// Provider failures are surfaced once; nothing is retried.
func (m *Moderator) RemoveParticipant(ctx context.Context, rawToken string, target domain.Identity) (domain.Identity, error) {
	if rawToken == "" {
		return "", Errorf(CodeAuth, "Missing token")
	}
	verifier, err := auth.ParseAPIToken(rawToken)
	if err != nil {
		return "", Errorf(CodeForbidden, "Invalid token")
	}
	claims, err := verifier.Verify(m.apiSecret)
	if err != nil {
		return "", Errorf(CodeForbidden, "Invalid token")
	}

	if claims.Video == nil || !claims.Video.RoomAdmin || claims.Video.Room == "" {
		return "", Errorf(CodeForbidden, "Not authorized to remove participants")
	}
	boundRoom := domain.RoomName(claims.Video.Room)

	if target == "" {
		return "", Errorf(CodeValidation, "Missing target identity")
	}
	if string(target) == claims.Identity {
		return "", Errorf(CodeValidation, "You cannot remove yourself")
	}

	if err := m.provider.RemoveParticipant(ctx, boundRoom, target); err != nil {
		return "", &Error{Code: CodeProvider, Message: "Failed to remove participant", Cause: err}
	}
	log.Info().Str("module", "app.moderation").Str("room", string(boundRoom)).
		Str("by", claims.Identity).Str("removed", string(target)).Msg("participant removed")
	return target, nil
}
