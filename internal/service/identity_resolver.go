package service

import (
	"context"

	"echolog/api/internal/models"
)

// IdentityResolver turns inbound credentials into exactly one resolved
// identity plus its remaining allowance. It is read-only: it never mints
// guest records (see UsageService.EstablishGuest for the bootstrap path).
type IdentityResolver struct {
	auth  *AuthService
	usage *UsageService
}

func NewIdentityResolver(auth *AuthService, usage *UsageService) *IdentityResolver {
	return &IdentityResolver{auth: auth, usage: usage}
}

// Resolve prefers a valid session token over a guest token. Malformed,
// expired or tampered session tokens, and tokens pointing at vanished users,
// degrade to the guest path rather than failing the request; ok=false means
// unauthenticated and only the gate turns that into a rejection.
func (r *IdentityResolver) Resolve(ctx context.Context, sessionToken string, guestToken string) (models.Identity, int, bool) {
	if sessionToken != "" {
		if claims, valid := r.auth.VerifySession(sessionToken); valid && claims.Subject != "" {
			user, remaining, err := r.usage.RemainingForUser(ctx, claims.Subject)
			if err == nil {
				return models.UserIdentity(user), remaining, true
			}
		}
	}

	if guestToken != "" {
		remaining, err := r.usage.RemainingForGuest(ctx, guestToken)
		if err == nil {
			return models.GuestIdentity(guestToken), remaining, true
		}
	}

	return models.Identity{}, 0, false
}
