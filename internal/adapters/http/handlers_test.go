package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/avoran/huddle/internal/app"
	"github.com/avoran/huddle/internal/config"
	"github.com/avoran/huddle/internal/core"
	"github.com/avoran/huddle/internal/domain"
)

const (
	testAPIKey    = "APIkeytest1234"
	testAPISecret = "secretsecretsecretsecretsecret12"
	hostEmail     = "host@example.com"
)

type fakeProvider struct {
	createErr   error
	removeErr   error
	removedRoom domain.RoomName
	removedID   domain.Identity
	removeCalls int
}

func (f *fakeProvider) CreateRoom(ctx context.Context, name domain.RoomName) error {
	return f.createErr
}

func (f *fakeProvider) RemoveParticipant(ctx context.Context, room domain.RoomName, identity domain.Identity) error {
	f.removeCalls++
	f.removedRoom = room
	f.removedID = identity
	return f.removeErr
}

type fakeSession struct {
	events core.SessionEvents
	local  domain.Participant
}

func (f *fakeSession) Connect(ctx context.Context, info core.ConnectInfo) error { return nil }
func (f *fakeSession) Events() *core.SessionEvents                              { return &f.events }
func (f *fakeSession) Local() domain.Participant                                { return f.local }
func (f *fakeSession) Participants() []domain.Participant                       { return nil }
func (f *fakeSession) Disconnect()                                              {}

func (f *fakeSession) SetMicrophoneEnabled(ctx context.Context, enabled bool) error { return nil }
func (f *fakeSession) SetCameraEnabled(ctx context.Context, enabled bool) error     { return nil }

type fixture struct {
	router   http.Handler
	provider *fakeProvider
	issuer   *app.TokenIssuer

	mu       sync.Mutex
	sessions []*fakeSession
}

// newSession builds one fake session per watcher, mirroring the real
// factory handing every watch attempt its own connection.
func (f *fixture) newSession() core.RoomSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSession{local: domain.Participant{Identity: "roster-1", Name: "roster watcher"}}
	f.sessions = append(f.sessions, s)
	return s
}

func (f *fixture) session(i int) *fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[i]
}

func (f *fixture) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{provider: &fakeProvider{}}
	f.issuer = app.NewTokenIssuer(testAPIKey, testAPISecret, time.Hour)
	registry := app.NewRoomRegistry(f.provider, app.AllowListPolicy{HostEmail: hostEmail})
	moderator := app.NewModerator(testAPISecret, f.provider)
	roster := app.NewRosterService("wss://example", f.issuer, f.newSession)
	t.Cleanup(roster.Stop)

	cfg := &config.Config{Mode: "release", Secret: "test-secret", StaticPath: t.TempDir()}
	f.router = SetupRouter(cfg, NewHandlers(registry, f.issuer, moderator, roster))
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func createStandup(t *testing.T, f *fixture) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/create-room", map[string]string{
		"roomName": "standup", "userEmail": hostEmail, "userName": "Alice",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create room: %d %s", w.Code, w.Body.String())
	}
}

func TestCreateRoomReturnsRecord(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/create-room", map[string]string{
		"roomName": "standup", "userEmail": hostEmail, "userName": "Alice",
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["message"] != "Room created successfully" {
		t.Fatalf("message = %v", body["message"])
	}
	room, _ := body["room"].(map[string]any)
	if room["roomName"] != "standup" || room["creatorName"] != "Alice" {
		t.Fatalf("room = %v", room)
	}
}

func TestCreateRoomMissingFields(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/create-room", map[string]string{
		"roomName": "standup",
	}, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	if decode(t, w)["error"] != "Room name, user email, and display name are required." {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestCreateRoomRejectsNonHost(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/create-room", map[string]string{
		"roomName": "standup", "userEmail": "guest@example.com", "userName": "Bob",
	}, nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", w.Code)
	}
	if decode(t, w)["error"] != "The email is not a HOST email. Opt for a subscription to host a meeting." {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestGetRoomsListsCreated(t *testing.T) {
	f := newFixture(t)
	createStandup(t, f)

	w := f.do(t, http.MethodGet, "/api/get-rooms", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	rooms, _ := decode(t, w)["rooms"].([]any)
	if len(rooms) != 1 {
		t.Fatalf("rooms = %v", rooms)
	}
	rec, _ := rooms[0].(map[string]any)
	if rec["roomName"] != "standup" || rec["creatorEmail"] != hostEmail {
		t.Fatalf("record = %v", rec)
	}
}

func TestGetTokenRequiresFields(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/get-livekit-token", map[string]string{
		"roomName": "standup", "participantName": "Bob",
	}, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	if decode(t, w)["error"] != "Room name, participant identity, and participant name are required." {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestGetTokenGrantsHostToCreator(t *testing.T) {
	f := newFixture(t)
	createStandup(t, f)

	w := f.do(t, http.MethodPost, "/api/get-livekit-token", map[string]string{
		"roomName": "standup", "participantIdentity": "alice",
		"participantName": "Alice", "userEmail": hostEmail,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	claims, err := f.issuer.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !claims.Video.RoomAdmin || claims.Video.Room != "standup" {
		t.Fatalf("grant: %+v", claims.Video)
	}
	if role := domain.ParseRole(claims.Metadata); role != domain.RoleHost {
		t.Fatalf("role = %q", role)
	}
}

func TestGetTokenDefaultsToGuest(t *testing.T) {
	f := newFixture(t)
	createStandup(t, f)

	w := f.do(t, http.MethodPost, "/api/get-livekit-token", map[string]string{
		"roomName": "standup", "participantIdentity": "bob",
		"participantName": "Bob", "userEmail": "bob@example.com",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	claims, err := f.issuer.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Video.RoomAdmin {
		t.Fatal("guest received room admin")
	}
	if role := domain.ParseRole(claims.Metadata); role != domain.RoleGuest {
		t.Fatalf("role = %q", role)
	}
}

func TestRemoveParticipantMissingAuthorization(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/remove-participant", map[string]string{"identity": "bob"}, nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", w.Code)
	}
	if decode(t, w)["error"] != "Missing token" {
		t.Fatalf("body = %s", w.Body.String())
	}
	if f.provider.removeCalls != 0 {
		t.Fatal("provider reached without a credential")
	}
}

func TestRemoveParticipantInvalidCredential(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/remove-participant",
		map[string]string{"identity": "bob"},
		map[string]string{"Authorization": "Bearer garbage"})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status %d", w.Code)
	}
	if decode(t, w)["error"] != "Invalid token" {
		t.Fatalf("body = %s", w.Body.String())
	}
	if f.provider.removeCalls != 0 {
		t.Fatal("forged credential reached the provider")
	}
}

func TestRemoveParticipantEvictsTarget(t *testing.T) {
	f := newFixture(t)
	token, err := f.issuer.IssueJoinToken(app.JoinTokenParams{
		Room: "standup", Identity: "alice", Name: "Alice", Role: domain.RoleHost,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := f.do(t, http.MethodPost, "/api/remove-participant",
		map[string]string{"identity": "bob"},
		map[string]string{"Authorization": "Bearer " + token})

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["success"] != true || body["removed"] != "bob" {
		t.Fatalf("body = %v", body)
	}
	if f.provider.removedRoom != "standup" || f.provider.removedID != "bob" {
		t.Fatalf("provider called with (%q, %q)", f.provider.removedRoom, f.provider.removedID)
	}
}

func TestRemoveParticipantGuestForbidden(t *testing.T) {
	f := newFixture(t)
	token, err := f.issuer.IssueJoinToken(app.JoinTokenParams{
		Room: "standup", Identity: "bob", Name: "Bob", Role: domain.RoleGuest,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := f.do(t, http.MethodPost, "/api/remove-participant",
		map[string]string{"identity": "alice"},
		map[string]string{"Authorization": "Bearer " + token})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["error"] != "Not authorized to remove participants" {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestUnifiedHandlerDispatch(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/unified-livekit-handler?path=/api/create-room", map[string]string{
		"roomName": "standup", "userEmail": hostEmail, "userName": "Alice",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create via unified: %d %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/unified-livekit-handler?path=/api/get-rooms", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list via unified: %d", w.Code)
	}
	if rooms, _ := decode(t, w)["rooms"].([]any); len(rooms) != 1 {
		t.Fatalf("rooms = %s", w.Body.String())
	}

	w = f.do(t, http.MethodPost, "/api/unified-livekit-handler?path=/api/unknown", nil, nil)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Invalid API path for POST request." {
		t.Fatalf("POST fallthrough: %d %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/unified-livekit-handler?path=/api/create-room", nil, nil)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Invalid API path for GET request." {
		t.Fatalf("GET fallthrough: %d %s", w.Code, w.Body.String())
	}
}

func TestRosterWSRequiresRoom(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/ws/roster", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	if decode(t, w)["error"] != "Room name is required." {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestClientTokenCookiePinned(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/get-rooms", nil, nil)

	var pinned bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "ct" && c.Value != "" {
			pinned = true
		}
	}
	if !pinned {
		t.Fatal("client token cookie not set")
	}
}

func TestBearerTokenParsing(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := bearerToken(c.header); got != c.want {
			t.Fatalf("bearerToken(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}
