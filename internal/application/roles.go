package application

import "fmt"

// Role names a fixed authority level. There is no partial ordering between
// roles; authorization always goes through capability checks.
type Role string

const (
	RoleMember   Role = "member"
	RoleApprover Role = "approver"
	RoleAdmin    Role = "admin"
)

// Capability names a single permitted action.
type Capability string

const (
	CapabilityApprove       Capability = "approve"
	CapabilityReject        Capability = "reject"
	CapabilityManageCatalog Capability = "manage_catalog"
	CapabilityManageUsers   Capability = "manage_users"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleMember: {},
	RoleApprover: {
		CapabilityApprove: true,
		CapabilityReject:  true,
	},
	RoleAdmin: {
		CapabilityApprove:       true,
		CapabilityReject:        true,
		CapabilityManageCatalog: true,
		CapabilityManageUsers:   true,
	},
}

// Has reports whether the role grants the capability. Unknown roles grant
// nothing.
func (r Role) Has(c Capability) bool {
	return roleCapabilities[r][c]
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// ParseRole converts a stored role string into a Role.
func ParseRole(value string) (Role, error) {
	role := Role(value)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}
