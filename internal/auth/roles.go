package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/crm-whatsapp/crm-service/internal/domain"
)

// RequireRole ensures the session role is one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		sess, ok := SessionFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[sess.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// CanMutate is the single authorization rule for reading, editing and deleting a client record.
func CanMutate(actor domain.Actor, client *domain.Client) bool {
	if client == nil {
		return false
	}
	return actor.IsAdmin() || client.Owner == actor.Username
}
