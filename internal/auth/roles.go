package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/lankaconnect/support-service/pkg/util/errorutil"
)

// Role enumerates internal operator roles.
type Role string

const (
	RoleAgent    Role = "AGENT"
	RoleTeamLead Role = "TEAM_LEAD"
	RoleAdmin    Role = "ADMIN"
)

// StaffRoles may work the support queue.
var StaffRoles = []Role{RoleAgent, RoleTeamLead, RoleAdmin}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAgent, RoleTeamLead, RoleAdmin:
		return true
	}
	return false
}

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...Role) fiber.Handler {
	allowedSet := make(map[Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
