package chat

import (
	"fmt"

	"talenthub/internal/domain/user"
)

// initiationMatrix lists, per initiator role, the target roles that role may
// open a direct conversation with. The check is intentionally directional:
// only the initiator's entry is consulted, never the target's. Flipping that
// would change product behavior, so it stays as shipped.
var initiationMatrix = map[user.Role][]user.Role{
	user.RoleStudent:  {user.RoleSchool, user.RoleAdmin},
	user.RoleSchool:   {user.RoleStudent, user.RoleEmployer, user.RoleAdmin},
	user.RoleEmployer: {user.RoleSchool, user.RoleAdmin},
	user.RoleAdmin:    {user.RoleStudent, user.RoleSchool, user.RoleEmployer, user.RoleAdmin},
}

// CanInitiate reports whether fromRole may start a conversation with toRole.
// Lookup is case-insensitive; unknown roles are denied.
func CanInitiate(fromRole, toRole user.Role) bool {
	from := user.NormalizeRole(fromRole)
	to := user.NormalizeRole(toRole)
	targets, ok := initiationMatrix[from]
	if !ok {
		return false
	}
	for _, allowed := range targets {
		if allowed == to {
			return true
		}
	}
	return false
}

// AssertCanInitiate returns a permission-denied error naming both roles when
// the matrix rejects the pairing.
func AssertCanInitiate(fromRole, toRole user.Role) error {
	if CanInitiate(fromRole, toRole) {
		return nil
	}
	return PermissionDenied(fmt.Sprintf("role %q may not start a conversation with role %q", fromRole, toRole))
}
