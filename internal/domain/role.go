package domain

import "fmt"

// Role enumerates the four operator levels, ordered by authority.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleTechnician Role = "TECHNICIAN"
	RoleReadOnly   Role = "READ_ONLY"
)

// roleLevels is the total ordering behind every can-manage decision.
var roleLevels = map[Role]int{
	RoleAdmin:      4,
	RoleManager:    3,
	RoleTechnician: 2,
	RoleReadOnly:   1,
}

// AllRoles lists every valid role, highest authority first.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleTechnician, RoleReadOnly}
}

// ParseRole converts a stored string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

// Valid reports whether the role is part of the closed enum.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the role's position in the hierarchy; zero for unknown roles.
func (r Role) Level() int {
	return roleLevels[r]
}
