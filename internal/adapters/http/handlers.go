package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avoran/huddle/internal/app"
	"github.com/avoran/huddle/internal/domain"
)

type Handlers struct {
	registry  *app.RoomRegistry
	issuer    *app.TokenIssuer
	moderator *app.Moderator
	roster    *app.RosterService
}

func NewHandlers(registry *app.RoomRegistry, issuer *app.TokenIssuer, moderator *app.Moderator, roster *app.RosterService) *Handlers {
	return &Handlers{registry: registry, issuer: issuer, moderator: moderator, roster: roster}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status, msg := app.HTTPError(err)
	c.JSON(status, gin.H{"error": msg})
}

type createRoomRequest struct {
	RoomName  string `json:"roomName"`
	UserEmail string `json:"userEmail"`
	UserName  string `json:"userName"`
}

func (h *Handlers) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room name, user email, and display name are required."})
		return
	}
	rec, err := h.registry.Create(c.Request.Context(), app.CreateRoomParams{
		RoomName:  domain.RoomName(req.RoomName),
		UserEmail: req.UserEmail,
		UserName:  req.UserName,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room created successfully", "room": rec})
}

func (h *Handlers) GetRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.registry.List()})
}

type tokenRequest struct {
	RoomName            string `json:"roomName"`
	ParticipantIdentity string `json:"participantIdentity"`
	ParticipantName     string `json:"participantName"`
	UserEmail           string `json:"userEmail"`
}

// GetToken issues the join credential. A requester whose email matches the
// recorded room creator gets the host role; everyone else joins as guest.
func (h *Handlers) GetToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.RoomName == "" || req.ParticipantIdentity == "" || req.ParticipantName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room name, participant identity, and participant name are required."})
		return
	}

	role := domain.RoleGuest
	if req.UserEmail != "" {
		if creator, ok := h.registry.Creator(domain.RoomName(req.RoomName)); ok && creator == req.UserEmail {
			role = domain.RoleHost
		}
	}

	token, err := h.issuer.IssueJoinToken(app.JoinTokenParams{
		Room:     domain.RoomName(req.RoomName),
		Identity: domain.Identity(req.ParticipantIdentity),
		Name:     req.ParticipantName,
		Role:     role,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type removeParticipantRequest struct {
	Identity string `json:"identity"`
}

func (h *Handlers) RemoveParticipant(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	var req removeParticipantRequest
	// A missing or malformed body leaves the identity empty; the gateway
	// rejects it with the right status.
	_ = c.ShouldBindJSON(&req)

	removed, err := h.moderator.RemoveParticipant(c.Request.Context(), token, domain.Identity(req.Identity))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}

// UnifiedPOST dispatches by the `path` query parameter, mirroring the
// single-handler deployment mode.
func (h *Handlers) UnifiedPOST(c *gin.Context) {
	switch c.Query("path") {
	case "/api/create-room":
		h.CreateRoom(c)
	case "/api/get-livekit-token":
		h.GetToken(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid API path for POST request."})
	}
}

func (h *Handlers) UnifiedGET(c *gin.Context) {
	switch c.Query("path") {
	case "/api/get-rooms":
		h.GetRooms(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid API path for GET request."})
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
