package auth

import "github.com/dkazakov/seqtrack/internal/server/models"

// Role checks are pure functions over already-authenticated state. The role
// order is researcher < technician < lab_manager < admin; ownership checks
// layer on top, with lab managers and admins bypassing ownership.

// HasRole reports whether the user's role ranks at least as high as required.
func HasRole(user *models.User, required models.Role) bool {
	if user == nil {
		return false
	}
	return user.Role.Level() >= required.Level() && required.Level() > 0
}

// HasAnyRole reports whether the user's role matches any of the given roles
// exactly.
func HasAnyRole(user *models.User, roles ...models.Role) bool {
	if user == nil {
		return false
	}
	for _, r := range roles {
		if user.Role == r {
			return true
		}
	}
	return false
}

// CanAccessResource reports whether the user may read a resource owned by
// ownerID. Owners always can; lab managers and admins can regardless of
// ownership.
func CanAccessResource(user *models.User, ownerID string) bool {
	if user == nil {
		return false
	}
	if user.ID == ownerID {
		return true
	}
	return HasRole(user, models.RoleLabManager)
}

// CanModifyResource reports whether the user may mutate a resource owned by
// ownerID. Same rule as access; kept separate so the policies can diverge
// without touching call sites.
func CanModifyResource(user *models.User, ownerID string) bool {
	return CanAccessResource(user, ownerID)
}
