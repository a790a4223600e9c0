package enums

import (
	"fmt"
	"strings"
)

// UserRole is the supply-chain role a user acts under.
type UserRole string

const (
	UserRoleFarmer      UserRole = "farmer"
	UserRoleDistributor UserRole = "distributor"
	UserRoleRetailer    UserRole = "retailer"
)

var validUserRoles = []UserRole{
	UserRoleFarmer,
	UserRoleDistributor,
	UserRoleRetailer,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole. Matching ignores case.
func ParseUserRole(value string) (UserRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validUserRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
