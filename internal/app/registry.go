package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avoran/huddle/internal/domain"
)

type CreateRoomParams struct {
	RoomName  domain.RoomName
	UserEmail string
	UserName  string
}

// RoomRegistry is the process-wide room store: constructed once at startup
// and passed by handle to request handlers. Records are append-only and kept
// in memory only; the provider owns actual room existence.
type RoomRegistry struct {
	mu       sync.RWMutex
	provider RoomProvider
	policy   CreatePolicy
	records  []domain.RoomRecord
	byName   map[domain.RoomName]string // room name -> creator email
	now      func() time.Time
}

func NewRoomRegistry(provider RoomProvider, policy CreatePolicy) *RoomRegistry {
	return &RoomRegistry{
		provider: provider,
		policy:   policy,
		byName:   make(map[domain.RoomName]string),
		now:      time.Now,
	}
}

// Create validates the request, enforces the creation allow list, delegates
// room existence to the provider, and appends the immutable record.
// The mutex is held across the provider call so concurrent creations of the
// same name serialize: first wins, the loser never reaches the provider.
func (r *RoomRegistry) Create(ctx context.Context, p CreateRoomParams) (domain.RoomRecord, error) {
	if p.RoomName == "" || p.UserEmail == "" || p.UserName == "" {
		return domain.RoomRecord{}, Errorf(CodeValidation, "Room name, user email, and display name are required.")
	}
	if !r.policy.AllowCreate(p.UserEmail) {
		return domain.RoomRecord{}, Errorf(CodePolicy, "The email is not a HOST email. Opt for a subscription to host a meeting.")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[p.RoomName]; exists {
		return domain.RoomRecord{}, Errorf(CodeProvider, "Failed to create room: room %q already exists", p.RoomName)
	}
	if err := r.provider.CreateRoom(ctx, p.RoomName); err != nil {
		return domain.RoomRecord{}, &Error{Code: CodeProvider, Message: "Failed to create room: " + err.Error(), Cause: err}
	}

	rec := domain.RoomRecord{
		RoomName:     p.RoomName,
		CreatorEmail: p.UserEmail,
		CreatorName:  p.UserName,
		CreatedAt:    r.now().UTC(),
	}
	r.records = append(r.records, rec)
	r.byName[p.RoomName] = p.UserEmail
	log.Info().Str("module", "app.registry").Str("room", string(p.RoomName)).Str("creator", p.UserName).Msg("room created")
	return rec, nil
}

// List returns a snapshot copy in creation order.
func (r *RoomRegistry) List() []domain.RoomRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RoomRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Creator reports the creator email of a recorded room, if any.
func (r *RoomRegistry) Creator(name domain.RoomName) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email, ok := r.byName[name]
	return email, ok
}
