package auth

import (
	"github.com/google/uuid"

	"github.com/harvestlink/harvestlink-backend/pkg/enums"
)

// Actor is the authenticated caller a service operation runs on behalf of.
type Actor struct {
	UserID   uuid.UUID
	Username string
	Role     enums.UserRole
}

// ActorFromClaims builds the request identity carried by an access token.
func ActorFromClaims(c *AccessTokenClaims) Actor {
	return Actor{UserID: c.UserID, Username: c.Username, Role: c.Role}
}

// Is reports whether the actor holds role.
func (a Actor) Is(role enums.UserRole) bool {
	return a.Role == role
}
