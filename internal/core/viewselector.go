package core

import "github.com/avoran/huddle/internal/domain"

// ViewVariant selects between the host call screen (moderation affordances)
// and the read-only guest screen.
type ViewVariant string

const (
	ViewHost  ViewVariant = "host"
	ViewGuest ViewVariant = "guest"
)

// SelectView picks the variant from the local participant's metadata blob.
// Malformed or absent metadata is a guest view, never a failure.
func SelectView(metadata string) ViewVariant {
	if domain.ParseRole(metadata) == domain.RoleHost {
		return ViewHost
	}
	return ViewGuest
}
