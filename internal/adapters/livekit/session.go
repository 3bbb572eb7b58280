package livekit

import (
	"context"
	"fmt"
	"sync"

	lkproto "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/avoran/huddle/internal/core"
	"github.com/avoran/huddle/internal/domain"
)

// Session implements core.RoomSession over an SDK room connection.
// The SDK delivers callbacks on its own goroutines; the closed flag stops
// emission once Disconnect has run, and the synchronizer's unsubscribe
// barrier provides the hard after-close guarantee.
type Session struct {
	mu     sync.Mutex
	room   *lksdk.Room
	closed bool
	micPub *lksdk.LocalTrackPublication
	camPub *lksdk.LocalTrackPublication

	events core.SessionEvents
}

var _ core.RoomSession = (*Session)(nil)

func NewSession() *Session { return &Session{} }

func (s *Session) Events() *core.SessionEvents { return &s.events }

func (s *Session) Connect(ctx context.Context, info core.ConnectInfo) error {
	cb := &lksdk.RoomCallback{
		OnParticipantConnected:    s.onParticipantConnected,
		OnParticipantDisconnected: s.onParticipantDisconnected,
		OnDisconnectedWithReason:  s.onDisconnected,
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackPublished:    s.onTrackPublished,
			OnTrackUnpublished:  s.onTrackUnpublished,
			OnTrackSubscribed:   s.onTrackSubscribed,
			OnTrackUnsubscribed: s.onTrackUnsubscribed,
			OnTrackMuted:        s.onTrackMuted,
			OnTrackUnmuted:      s.onTrackUnmuted,
		},
	}
	room, err := lksdk.ConnectToRoomWithToken(info.URL, info.Token, cb, lksdk.WithAutoSubscribe(true))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.room = room
	s.closed = false
	s.mu.Unlock()
	log.Debug().Str("module", "adapters.livekit").Str("room", string(info.RoomName)).Msg("room joined")
	return nil
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	room := s.room
	s.room = nil
	s.closed = true
	s.mu.Unlock()
	if room != nil {
		room.Disconnect()
	}
}

func (s *Session) Local() domain.Participant {
	room := s.currentRoom()
	if room == nil {
		return domain.Participant{}
	}
	lp := room.LocalParticipant
	return domain.Participant{
		Identity: domain.Identity(lp.Identity()),
		Name:     lp.Name(),
		Metadata: lp.Metadata(),
	}
}

func (s *Session) Participants() []domain.Participant {
	room := s.currentRoom()
	if room == nil {
		return nil
	}
	remotes := room.GetRemoteParticipants()
	out := make([]domain.Participant, 0, len(remotes))
	for _, rp := range remotes {
		out = append(out, remoteMeta(rp))
	}
	return out
}

// SetMicrophoneEnabled publishes or unpublishes the placeholder audio track.
// Headless sessions carry no samples; the publication itself is the signal.
func (s *Session) SetMicrophoneEnabled(ctx context.Context, enabled bool) error {
	return s.setLocalTrack(domain.TrackAudio, enabled)
}

func (s *Session) SetCameraEnabled(ctx context.Context, enabled bool) error {
	return s.setLocalTrack(domain.TrackVideo, enabled)
}

func (s *Session) setLocalTrack(kind domain.TrackKind, enabled bool) error {
	s.mu.Lock()
	room := s.room
	pub := s.micPub
	if kind == domain.TrackVideo {
		pub = s.camPub
	}
	s.mu.Unlock()
	if room == nil {
		return core.ErrNotConnected
	}

	if enabled {
		if pub != nil {
			return nil
		}
		capability := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
		name, source := "microphone", lkproto.TrackSource_MICROPHONE
		if kind == domain.TrackVideo {
			capability = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
			name, source = "camera", lkproto.TrackSource_CAMERA
		}
		track, err := lksdk.NewLocalSampleTrack(capability)
		if err != nil {
			return err
		}
		published, err := room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
			Name:   name,
			Source: source,
		})
		if err != nil {
			return err
		}
		s.mu.Lock()
		if kind == domain.TrackVideo {
			s.camPub = published
		} else {
			s.micPub = published
		}
		s.mu.Unlock()
		s.emitLocal(&s.events.TrackPublished, published, kind, true)
		return nil
	}

	if pub == nil {
		return nil
	}
	if err := room.LocalParticipant.UnpublishTrack(pub.SID()); err != nil {
		return err
	}
	s.mu.Lock()
	if kind == domain.TrackVideo {
		s.camPub = nil
	} else {
		s.micPub = nil
	}
	s.mu.Unlock()
	s.emitLocal(&s.events.TrackUnpublished, pub, kind, false)
	return nil
}

// ---- SDK callbacks ----

func (s *Session) onParticipantConnected(rp *lksdk.RemoteParticipant) {
	if s.isClosed() {
		return
	}
	s.events.ParticipantJoined.Emit(remoteMeta(rp))
}

func (s *Session) onParticipantDisconnected(rp *lksdk.RemoteParticipant) {
	if s.isClosed() {
		return
	}
	s.events.ParticipantLeft.Emit(remoteMeta(rp))
}

func (s *Session) onDisconnected(reason lksdk.DisconnectionReason) {
	if s.isClosed() {
		return
	}
	s.mu.Lock()
	s.closed = true
	s.room = nil
	s.mu.Unlock()
	s.events.Disconnected.Emit(fmt.Sprintf("%v", reason))
}

func (s *Session) onTrackPublished(pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if s.isClosed() {
		return
	}
	s.events.TrackPublished.Emit(remoteTrackEvent(pub, rp, nil))
}

func (s *Session) onTrackUnpublished(pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if s.isClosed() {
		return
	}
	s.events.TrackUnpublished.Emit(remoteTrackEvent(pub, rp, nil))
}

func (s *Session) onTrackSubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if s.isClosed() {
		return
	}
	s.events.TrackSubscribed.Emit(remoteTrackEvent(pub, rp, mediaTrack{id: track.ID(), kind: kindOf(pub.Kind())}))
}

func (s *Session) onTrackUnsubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if s.isClosed() {
		return
	}
	s.events.TrackUnsubscribed.Emit(remoteTrackEvent(pub, rp, nil))
}

func (s *Session) onTrackMuted(pub lksdk.TrackPublication, p lksdk.Participant) {
	s.emitMuteChange(pub, p, true)
}

func (s *Session) onTrackUnmuted(pub lksdk.TrackPublication, p lksdk.Participant) {
	s.emitMuteChange(pub, p, false)
}

func (s *Session) emitMuteChange(pub lksdk.TrackPublication, p lksdk.Participant, muted bool) {
	if s.isClosed() {
		return
	}
	local := false
	if room := s.currentRoom(); room != nil {
		local = p.Identity() == room.LocalParticipant.Identity()
	}
	s.events.TrackMuteChanged.Emit(core.TrackEvent{
		Participant: domain.Participant{
			Identity: domain.Identity(p.Identity()),
			Name:     p.Name(),
			Metadata: p.Metadata(),
		},
		Kind:  kindOf(pub.Kind()),
		SID:   pub.SID(),
		Muted: muted,
		Local: local,
	})
}

// ---- helpers ----

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) currentRoom() *lksdk.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *Session) emitLocal(em *core.Emitter[core.TrackEvent], pub *lksdk.LocalTrackPublication, kind domain.TrackKind, live bool) {
	ev := core.TrackEvent{
		Participant: s.Local(),
		Kind:        kind,
		SID:         pub.SID(),
		Muted:       pub.IsMuted(),
		Local:       true,
	}
	if live {
		ev.Track = mediaTrack{id: pub.SID(), kind: kind}
	}
	em.Emit(ev)
}

type mediaTrack struct {
	id   string
	kind domain.TrackKind
}

func (t mediaTrack) ID() string             { return t.id }
func (t mediaTrack) Kind() domain.TrackKind { return t.kind }

func remoteMeta(rp *lksdk.RemoteParticipant) domain.Participant {
	return domain.Participant{
		Identity: domain.Identity(rp.Identity()),
		Name:     rp.Name(),
		Metadata: rp.Metadata(),
	}
}

func remoteTrackEvent(pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant, track core.MediaTrack) core.TrackEvent {
	return core.TrackEvent{
		Participant: remoteMeta(rp),
		Kind:        kindOf(pub.Kind()),
		SID:         pub.SID(),
		Muted:       pub.IsMuted(),
		Track:       track,
	}
}

func kindOf(k lksdk.TrackKind) domain.TrackKind {
	if k == lksdk.TrackKindVideo {
		return domain.TrackVideo
	}
	return domain.TrackAudio
}
