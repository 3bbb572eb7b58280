package app

// CreatePolicy decides whether an identity may create rooms.
type CreatePolicy interface {
	AllowCreate(email string) bool
}

// AllowListPolicy is a single-operator allow list, not a role system.
// An empty configured email allows nobody.
type AllowListPolicy struct {
	HostEmail string
}

func (p AllowListPolicy) AllowCreate(email string) bool {
	return p.HostEmail != "" && email == p.HostEmail
}
