package domain

import "encoding/json"

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// ParseRole reads the role claim out of a participant's opaque metadata blob,
// e.g. `{"role":"host"}`. Anything absent, malformed, or unknown is a guest.
// Parse failures never escape to callers.
func ParseRole(raw string) Role {
	if raw == "" {
		return RoleGuest
	}
	var meta struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return RoleGuest
	}
	if meta.Role == string(RoleHost) {
		return RoleHost
	}
	return RoleGuest
}

// HostMetadata renders the metadata blob the role claim is parsed back from.
func HostMetadata() string {
	return `{"role":"host"}`
}

func GuestMetadata() string {
	return `{"role":"guest"}`
}
