package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"

	"github.com/avoran/huddle/internal/domain"
)

const DefaultTokenTTL = 6 * time.Hour

type JoinTokenParams struct {
	Room     domain.RoomName
	Identity domain.Identity
	Name     string
	Role     domain.Role
}

// TokenIssuer mints the signed, time-bound capability tokens participants
// join with. Tokens are issued once per join attempt and never mutated.
type TokenIssuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

func NewTokenIssuer(apiKey, apiSecret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{apiKey: apiKey, apiSecret: apiSecret, ttl: ttl}
}

// IssueJoinToken carries the fixed join/publish/subscribe/self-metadata
// grants plus the role claim in metadata. A host token additionally carries
// the room-admin grant bound to its room. No identity uniqueness check is
// performed; duplicate identities in one room are the caller's problem.
func (i *TokenIssuer) IssueJoinToken(p JoinTokenParams) (string, error) {
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     string(p.Room),
	}
	grant.SetCanPublish(true)
	grant.SetCanSubscribe(true)
	grant.SetCanUpdateOwnMetadata(true)

	metadata := domain.GuestMetadata()
	if p.Role == domain.RoleHost {
		grant.RoomAdmin = true
		metadata = domain.HostMetadata()
	}

	return auth.NewAccessToken(i.apiKey, i.apiSecret).
		SetVideoGrant(grant).
		SetIdentity(string(p.Identity)).
		SetName(p.Name).
		SetMetadata(metadata).
		SetValidFor(i.ttl).
		ToJWT()
}

// IssueWatcherToken mints a hidden, subscribe-only credential for the
// server-side roster watcher.
func (i *TokenIssuer) IssueWatcherToken(room domain.RoomName) (string, domain.Identity, error) {
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     string(room),
		Hidden:   true,
	}
	grant.SetCanPublish(false)
	grant.SetCanSubscribe(true)

	identity := domain.Identity("roster-" + uuid.NewString())
	token, err := auth.NewAccessToken(i.apiKey, i.apiSecret).
		SetVideoGrant(grant).
		SetIdentity(string(identity)).
		SetName("roster watcher").
		SetValidFor(i.ttl).
		ToJWT()
	return token, identity, err
}

// VerifyToken checks signature and expiry against the issuer secret and
// returns the embedded claims.
func (i *TokenIssuer) VerifyToken(raw string) (*auth.ClaimGrants, error) {
	verifier, err := auth.ParseAPIToken(raw)
	if err != nil {
		return nil, err
	}
	return verifier.Verify(i.apiSecret)
}
