package models

type IdentityKind string

const (
	IdentityKindGuest IdentityKind = "guest"
	IdentityKindUser  IdentityKind = "user"
)

// UnlimitedRemaining is the sentinel returned for identities that are never
// quota-limited (admins). The gate only ever compares remaining > 0.
const UnlimitedRemaining = 1 << 30

// Identity is the per-request resolved caller. It is a snapshot taken at
// resolution time and carries no ownership of the underlying records.
// Unauthenticated callers simply have no Identity attached to the request.
type Identity struct {
	Kind IdentityKind

	// Guest fields.
	GuestID string

	// User fields.
	UserID  string
	Email   string
	Role    UserRole
	Balance int
}

func GuestIdentity(guestID string) Identity {
	return Identity{Kind: IdentityKindGuest, GuestID: guestID}
}

func UserIdentity(u User) Identity {
	return Identity{
		Kind:    IdentityKindUser,
		UserID:  u.ID,
		Email:   u.Email,
		Role:    u.Role,
		Balance: u.Balance,
	}
}

func (i Identity) IsAdmin() bool {
	return i.Kind == IdentityKindUser && i.Role == UserRoleAdmin
}
