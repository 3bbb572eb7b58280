package core

import (
	"sync"

	"github.com/avoran/huddle/internal/domain"
)

// RenderSurface is a rendering sink for one media track: a video element,
// an audio output, or a headless consumer.
type RenderSurface interface {
	SurfaceID() string
	Render(t MediaTrack)
	Clear()
}

// LocalSurfaceID is the fixed surface for the local participant's media.
func LocalSurfaceID(kind domain.TrackKind) string {
	return "local:" + string(kind)
}

// RemoteSurfaceID derives the deterministic surface for a remote track
// from the owning identity and the track kind.
func RemoteSurfaceID(identity domain.Identity, kind domain.TrackKind) string {
	return string(identity) + ":" + string(kind)
}

// SurfaceRegistry resolves deterministic surface identifiers to sinks.
// Attach and Detach are idempotent: attaching a track already rendered on
// its target, or detaching a surface with nothing attached, is a no-op.
type SurfaceRegistry struct {
	mu       sync.Mutex
	surfaces map[string]RenderSurface
	attached map[string]string // surface id -> track id
}

func NewSurfaceRegistry() *SurfaceRegistry {
	return &SurfaceRegistry{
		surfaces: make(map[string]RenderSurface),
		attached: make(map[string]string),
	}
}

func (r *SurfaceRegistry) Register(s RenderSurface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surfaces[s.SurfaceID()] = s
}

// Unregister detaches whatever is rendered and removes the surface.
func (r *SurfaceRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.surfaces[id]; ok {
		if _, live := r.attached[id]; live {
			s.Clear()
			delete(r.attached, id)
		}
		delete(r.surfaces, id)
	}
}

// Attach renders t on the surface id. Returns false when no such surface
// is registered; the caller may retry on a later event.
func (r *SurfaceRegistry) Attach(id string, t MediaTrack) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surfaces[id]
	if !ok {
		return false
	}
	if current, live := r.attached[id]; live && current == t.ID() {
		return true
	}
	s.Render(t)
	r.attached[id] = t.ID()
	return true
}

// Detach clears the surface id if anything is attached.
func (r *SurfaceRegistry) Detach(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, live := r.attached[id]; !live {
		return
	}
	if s, ok := r.surfaces[id]; ok {
		s.Clear()
	}
	delete(r.attached, id)
}

// Attached reports the track id currently rendered on the surface.
func (r *SurfaceRegistry) Attached(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trackID, ok := r.attached[id]
	return trackID, ok
}
