// Package models defines the persistent domain types shared by repositories
// and services.
package models

import "time"

// Role is a user's position in the lab hierarchy. Roles form a total order:
// researcher < technician < lab_manager < admin.
type Role string

const (
	RoleResearcher Role = "researcher"
	RoleTechnician Role = "technician"
	RoleLabManager Role = "lab_manager"
	RoleAdmin      Role = "admin"
)

// roleLevels maps each role to its rank for ordered comparisons.
var roleLevels = map[Role]int{
	RoleResearcher: 1,
	RoleTechnician: 2,
	RoleLabManager: 3,
	RoleAdmin:      4,
}

// Level returns the role's numeric rank, or 0 for an unknown role so that an
// unrecognized value never satisfies a minimum-role check.
func (r Role) Level() int {
	return roleLevels[r]
}

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// User is an account record. Email is stored lower-cased and unique.
// PasswordHash lives on a separate Credential and is never populated on a
// User returned by normal reads.
type User struct {
	ID            string
	Email         string
	Name          string
	EmailVerified bool
	Role          Role
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserWithPassword is a User joined with its credential hash. Only the
// authentication path fetches this shape.
type UserWithPassword struct {
	User
	PasswordHash string
}
