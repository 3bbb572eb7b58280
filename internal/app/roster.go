package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avoran/huddle/internal/core"
	"github.com/avoran/huddle/internal/domain"
)

// SessionFactory builds a fresh RoomSession per watched room.
type SessionFactory func() core.RoomSession

// RosterService keeps one hidden watcher synchronizer per watched room and
// hands out its live view-model stream. Lookups and connects serialize on
// one mutex so concurrent watchers of the same room share a session.
type RosterService struct {
	mu         sync.Mutex
	url        string
	issuer     *TokenIssuer
	newSession SessionFactory
	watchers   map[domain.RoomName]*core.Synchronizer
}

func NewRosterService(url string, issuer *TokenIssuer, factory SessionFactory) *RosterService {
	return &RosterService{
		url:        url,
		issuer:     issuer,
		newSession: factory,
		watchers:   make(map[domain.RoomName]*core.Synchronizer),
	}
}

// Watch returns the synchronizer for room, connecting a hidden
// subscribe-only session on first use. A cached watcher whose session has
// failed or closed is torn down and replaced, so a recreated room never
// serves stale state.
func (r *RosterService) Watch(ctx context.Context, room domain.RoomName) (*core.Synchronizer, error) {
	if room == "" {
		return nil, Errorf(CodeValidation, "Room name is required.")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.watchers[room]; ok {
		switch s.ConnectionState() {
		case core.StateConnected, core.StateConnecting:
			return s, nil
		}
		delete(r.watchers, room)
		s.Close()
	}

	token, identity, err := r.issuer.IssueWatcherToken(room)
	if err != nil {
		return nil, &Error{Code: CodeInternal, Message: "Internal server error.", Cause: err}
	}
	sync := core.NewSynchronizer(nil)
	info := core.ConnectInfo{URL: r.url, Token: token, RoomName: room, Observer: true}
	if err := sync.Connect(ctx, r.newSession(), info); err != nil {
		return nil, &Error{Code: CodeProvider, Message: "Failed to watch room: " + err.Error(), Cause: err}
	}
	r.watchers[room] = sync
	log.Info().Str("module", "app.roster").Str("room", string(room)).
		Str("identity", string(identity)).Msg("watching room")
	return sync, nil
}

// Drop closes s and evicts it when it is still the watcher registered for
// room. A replacement connected in the meantime is left alone, so a late
// drop of a dead watcher can never tear down its successor.
func (r *RosterService) Drop(room domain.RoomName, s *core.Synchronizer) {
	r.mu.Lock()
	owned := r.watchers[room] == s
	if owned {
		delete(r.watchers, room)
	}
	r.mu.Unlock()
	if owned {
		s.Close()
	}
}

// Stop tears every watcher session down.
func (r *RosterService) Stop() {
	r.mu.Lock()
	watchers := r.watchers
	r.watchers = make(map[domain.RoomName]*core.Synchronizer)
	r.mu.Unlock()
	for room, sync := range watchers {
		sync.Close()
		log.Info().Str("module", "app.roster").Str("room", string(room)).Msg("stopped watching")
	}
}
