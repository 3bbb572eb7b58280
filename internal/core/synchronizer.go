package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avoran/huddle/internal/domain"
)

type trackState struct {
	kind       domain.TrackKind
	sid        string
	muted      bool
	subscribed bool
	track      MediaTrack
	surface    string // attached surface id, "" when detached
}

type participantState struct {
	meta   domain.Participant
	seq    int
	tracks map[domain.TrackKind]*trackState
}

func newParticipantState(meta domain.Participant, seq int) *participantState {
	return &participantState{
		meta:   meta,
		seq:    seq,
		tracks: make(map[domain.TrackKind]*trackState),
	}
}

// Synchronizer owns exactly one RoomSession and keeps a UI-facing view model
// consistent with its event stream.
//
// Every handler mutates the authoritative live set first and then performs
// one full deterministic rebuild; the view model is never patched
// incrementally, so rapid-fire or out-of-order events cannot leave partial
// or duplicated rows. All handlers serialize on one mutex.
type Synchronizer struct {
	mu       sync.Mutex
	session  RoomSession
	surfaces *SurfaceRegistry

	state      ConnectionState
	room       domain.RoomName
	local      *participantState
	remotes    map[domain.Identity]*participantState
	seq        int
	micEnabled bool
	camEnabled bool

	unsubs []func()
	view   ViewModel
	closed bool

	updates Emitter[ViewModel]
}

func NewSynchronizer(surfaces *SurfaceRegistry) *Synchronizer {
	if surfaces == nil {
		surfaces = NewSurfaceRegistry()
	}
	s := &Synchronizer{
		surfaces: surfaces,
		state:    StateDisconnected,
		remotes:  make(map[domain.Identity]*participantState),
	}
	s.view = ViewModel{State: StateDisconnected, Variant: ViewGuest}
	return s
}

// Surfaces exposes the registry so callers can register rendering sinks
// before or after tracks arrive.
func (s *Synchronizer) Surfaces() *SurfaceRegistry { return s.surfaces }

// Updates fires a fresh snapshot after every rebuild. Handlers must not call
// back into the synchronizer.
func (s *Synchronizer) Updates() *Emitter[ViewModel] { return &s.updates }

// ViewModel returns the snapshot produced by the last processed event.
func (s *Synchronizer) ViewModel() ViewModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Synchronizer) ConnectionState() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect establishes the session, enables local microphone and camera
// publication, and performs the initial rebuild. On failure the partial
// session handle is disposed and no session state remains.
func (s *Synchronizer) Connect(ctx context.Context, session RoomSession, info ConnectInfo) error {
	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.closed = false
	s.state = StateConnecting
	s.mu.Unlock()

	if err := session.Connect(ctx, info); err != nil {
		session.Disconnect()
		s.mu.Lock()
		s.resetLocked(StateFailed)
		s.rebuildLocked()
		s.mu.Unlock()
		return fmt.Errorf("%w: room %q: %v", ErrConnect, info.RoomName, err)
	}

	// Media enable settles before the first rebuild so the initial render
	// already carries the local publication state.
	if !info.Observer {
		if err := session.SetMicrophoneEnabled(ctx, true); err != nil {
			log.Warn().Str("module", "core.sync").Err(err).Msg("enable microphone")
		}
		if err := session.SetCameraEnabled(ctx, true); err != nil {
			log.Warn().Str("module", "core.sync").Err(err).Msg("enable camera")
		}
	}

	ev := session.Events()
	unsubs := []func(){
		ev.ParticipantJoined.Subscribe(s.handleParticipantJoined),
		ev.ParticipantLeft.Subscribe(s.handleParticipantLeft),
		ev.TrackPublished.Subscribe(s.handleTrackPublished),
		ev.TrackUnpublished.Subscribe(s.handleTrackUnpublished),
		ev.TrackSubscribed.Subscribe(s.handleTrackSubscribed),
		ev.TrackUnsubscribed.Subscribe(s.handleTrackUnsubscribed),
		ev.TrackMuteChanged.Subscribe(s.handleTrackMuteChanged),
		ev.Disconnected.Subscribe(s.handleDisconnected),
	}

	s.mu.Lock()
	s.session = session
	s.unsubs = unsubs
	s.state = StateConnected
	s.room = info.RoomName
	s.micEnabled = !info.Observer
	s.camEnabled = !info.Observer
	s.local = newParticipantState(session.Local(), 0)
	for _, p := range session.Participants() {
		if _, ok := s.remotes[p.Identity]; ok {
			continue
		}
		s.seq++
		s.remotes[p.Identity] = newParticipantState(p, s.seq)
	}
	s.rebuildLocked()
	s.mu.Unlock()

	log.Info().Str("module", "core.sync").Str("room", string(info.RoomName)).
		Str("identity", string(session.Local().Identity)).Msg("session connected")
	return nil
}

// Close tears the session down: no event handler runs after it returns,
// all surfaces are detached, and the view model is cleared to empty.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	session := s.session
	s.session = nil
	s.closed = true
	s.mu.Unlock()

	// Unsubscribe blocks on in-flight deliveries; past this loop no
	// handler can touch the view model.
	for _, u := range unsubs {
		u()
	}
	if session != nil {
		session.Disconnect()
	}

	s.mu.Lock()
	s.resetLocked(StateDisconnected)
	s.rebuildLocked()
	s.mu.Unlock()
	log.Info().Str("module", "core.sync").Msg("session closed")
}

// SetMicrophoneEnabled toggles the local microphone publication.
// Idempotent with respect to the already-set state.
func (s *Synchronizer) SetMicrophoneEnabled(ctx context.Context, enabled bool) error {
	return s.setMediaEnabled(ctx, domain.TrackAudio, enabled)
}

// SetCameraEnabled toggles the local camera publication.
func (s *Synchronizer) SetCameraEnabled(ctx context.Context, enabled bool) error {
	return s.setMediaEnabled(ctx, domain.TrackVideo, enabled)
}

func (s *Synchronizer) setMediaEnabled(ctx context.Context, kind domain.TrackKind, enabled bool) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	current := s.micEnabled
	if kind == domain.TrackVideo {
		current = s.camEnabled
	}
	if current == enabled {
		s.mu.Unlock()
		return nil
	}
	session := s.session
	s.mu.Unlock()

	var err error
	if kind == domain.TrackAudio {
		err = session.SetMicrophoneEnabled(ctx, enabled)
	} else {
		err = session.SetCameraEnabled(ctx, enabled)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	if kind == domain.TrackAudio {
		s.micEnabled = enabled
	} else {
		s.camEnabled = enabled
	}
	s.rebuildLocked()
	s.mu.Unlock()
	return nil
}

// ---- event handlers ----

func (s *Synchronizer) handleParticipantJoined(p domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if existing, ok := s.remotes[p.Identity]; ok {
		// Re-add of a present identity is a no-op beyond meta refresh.
		existing.meta = p
		s.rebuildLocked()
		return
	}
	s.seq++
	s.remotes[p.Identity] = newParticipantState(p, s.seq)
	s.rebuildLocked()
	log.Debug().Str("module", "core.sync").Str("identity", string(p.Identity)).Msg("participant joined")
}

func (s *Synchronizer) handleParticipantLeft(p domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	st, ok := s.remotes[p.Identity]
	if !ok {
		return
	}
	for _, t := range st.tracks {
		s.detachLocked(t)
	}
	delete(s.remotes, p.Identity)
	s.rebuildLocked()
	log.Debug().Str("module", "core.sync").Str("identity", string(p.Identity)).Msg("participant left")
}

func (s *Synchronizer) handleTrackPublished(ev TrackEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	st := s.ownerLocked(ev)
	if st == nil {
		return
	}
	t := s.upsertTrackLocked(st, ev)
	if t.track != nil {
		s.attachLocked(ev, t)
	}
	s.rebuildLocked()
}

func (s *Synchronizer) handleTrackUnpublished(ev TrackEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	st := s.ownerLocked(ev)
	if st == nil {
		return
	}
	if t, ok := st.tracks[ev.Kind]; ok {
		s.detachLocked(t)
		delete(st.tracks, ev.Kind)
	}
	s.rebuildLocked()
}

func (s *Synchronizer) handleTrackSubscribed(ev TrackEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	st := s.ownerLocked(ev)
	if st == nil {
		return
	}
	t := s.upsertTrackLocked(st, ev)
	t.subscribed = true
	if t.track != nil {
		s.attachLocked(ev, t)
	}
	s.rebuildLocked()
}

func (s *Synchronizer) handleTrackUnsubscribed(ev TrackEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	st := s.ownerLocked(ev)
	if st == nil {
		return
	}
	// The publication record stays; only the media goes away.
	if t, ok := st.tracks[ev.Kind]; ok {
		s.detachLocked(t)
		t.subscribed = false
		t.track = nil
	}
	s.rebuildLocked()
}

func (s *Synchronizer) handleTrackMuteChanged(ev TrackEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	st := s.ownerLocked(ev)
	if st == nil {
		return
	}
	if t, ok := st.tracks[ev.Kind]; ok {
		t.muted = ev.Muted
	}
	s.rebuildLocked()
}

// handleDisconnected is terminal for the attempt: full local teardown so no
// dangling handle survives a dropped connection. No automatic retry.
func (s *Synchronizer) handleDisconnected(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.session = nil
	s.resetLocked(StateFailed)
	s.rebuildLocked()
	log.Warn().Str("module", "core.sync").Str("reason", reason).Msg("session disconnected")
}

// ---- internals, all called with s.mu held ----

func (s *Synchronizer) ownerLocked(ev TrackEvent) *participantState {
	if ev.Local {
		return s.local
	}
	st, ok := s.remotes[ev.Participant.Identity]
	if !ok {
		// Tolerate a track event racing ahead of its join event.
		s.seq++
		st = newParticipantState(ev.Participant, s.seq)
		s.remotes[ev.Participant.Identity] = st
	}
	return st
}

func (s *Synchronizer) upsertTrackLocked(st *participantState, ev TrackEvent) *trackState {
	t, ok := st.tracks[ev.Kind]
	if !ok {
		t = &trackState{kind: ev.Kind}
		st.tracks[ev.Kind] = t
	}
	t.sid = ev.SID
	t.muted = ev.Muted
	if ev.Track != nil {
		t.track = ev.Track
	}
	return t
}

func (s *Synchronizer) attachLocked(ev TrackEvent, t *trackState) {
	id := RemoteSurfaceID(ev.Participant.Identity, ev.Kind)
	if ev.Local {
		id = LocalSurfaceID(ev.Kind)
	}
	if s.surfaces.Attach(id, t.track) {
		t.surface = id
	}
}

func (s *Synchronizer) detachLocked(t *trackState) {
	if t.surface == "" {
		return
	}
	s.surfaces.Detach(t.surface)
	t.surface = ""
}

func (s *Synchronizer) resetLocked(state ConnectionState) {
	for _, st := range s.remotes {
		for _, t := range st.tracks {
			s.detachLocked(t)
		}
	}
	if s.local != nil {
		for _, t := range s.local.tracks {
			s.detachLocked(t)
		}
	}
	s.state = state
	s.room = ""
	s.local = nil
	s.remotes = make(map[domain.Identity]*participantState)
	s.seq = 0
	s.micEnabled = false
	s.camEnabled = false
}

// rebuildLocked recomputes the whole view model from the live set:
// local participant first, then remotes in stable arrival order.
func (s *Synchronizer) rebuildLocked() {
	vm := ViewModel{Room: s.room, State: s.state, Variant: ViewGuest}
	if s.local != nil {
		vm.Variant = SelectView(s.local.meta.Metadata)
		vm.Participants = append(vm.Participants, s.participantViewLocked(s.local, true))
	}
	ordered := make([]*participantState, 0, len(s.remotes))
	for _, st := range s.remotes {
		ordered = append(ordered, st)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
	for _, st := range ordered {
		vm.Participants = append(vm.Participants, s.participantViewLocked(st, false))
	}
	s.view = vm
	s.updates.Emit(vm)
}

func (s *Synchronizer) participantViewLocked(st *participantState, local bool) ParticipantView {
	pv := ParticipantView{
		Identity: st.meta.Identity,
		Name:     st.meta.Name,
		Role:     domain.ParseRole(st.meta.Metadata),
		IsLocal:  local,
	}
	pv.Microphone = s.trackViewLocked(st, domain.TrackAudio, local)
	pv.Camera = s.trackViewLocked(st, domain.TrackVideo, local)
	return pv
}

func (s *Synchronizer) trackViewLocked(st *participantState, kind domain.TrackKind, local bool) *TrackView {
	t, ok := st.tracks[kind]
	if !ok {
		return nil
	}
	enabled := t.track != nil || t.subscribed
	if local {
		enabled = s.micEnabled
		if kind == domain.TrackVideo {
			enabled = s.camEnabled
		}
	}
	return &TrackView{
		Kind:    kind,
		SID:     t.sid,
		Muted:   t.muted,
		Enabled: enabled,
		Surface: t.surface,
	}
}
