package session

import "strconv"

// RoleMask encodes the session role. Operator and Administrator are bit flags,
// but moderator checks compare ordinally (see IsModerator).
type RoleMask int

const (
	// RoleGuest is used for unknown roles
	RoleGuest RoleMask = 0
	// RoleUser is a regular storefront customer
	RoleUser RoleMask = 1
	// RoleOperator can manage listings
	RoleOperator RoleMask = 2
	// RoleAdministrator can manage everything
	RoleAdministrator RoleMask = 4
)

const (
	RoleNameUser          = "User"
	RoleNameOperator      = "Operator"
	RoleNameAdministrator = "Administrator"
)

// ParseRoleMask maps a role claim to its mask. Unknown roles resolve to
// RoleGuest.
func ParseRoleMask(role string) RoleMask {
	switch role {
	case RoleNameUser:
		return RoleUser
	case RoleNameOperator:
		return RoleOperator
	case RoleNameAdministrator:
		return RoleAdministrator
	default:
		return RoleGuest
	}
}

// IsGuest reports whether the mask grants no role at all.
func (r RoleMask) IsGuest() bool {
	return r == RoleGuest
}

// IsModerator is true for any mask at or above RoleOperator, administrators
// included.
func (r RoleMask) IsModerator() bool {
	return r >= RoleOperator
}

// IsAdmin is true when the administrator bit is set.
func (r RoleMask) IsAdmin() bool {
	return r&RoleAdministrator == RoleAdministrator
}

func (r RoleMask) String() string {
	switch r {
	case RoleGuest:
		return "Guest"
	case RoleUser:
		return RoleNameUser
	case RoleOperator:
		return RoleNameOperator
	case RoleAdministrator:
		return RoleNameAdministrator
	default:
		return "RoleMask(" + strconv.Itoa(int(r)) + ")"
	}
}
