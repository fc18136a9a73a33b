package rules

import (
	"hms-service/internal/domain/users"
)

// RoleKind is the resolved class of a requesting user.
type RoleKind string

const (
	RoleSuperuser   RoleKind = "superuser"
	RoleLandManager RoleKind = "landmanager"
	RoleScout       RoleKind = "scout"
	RoleAnonymous   RoleKind = "anonymous"
	// RoleAdrift is a logged-in account with no profile of any kind
	// (typically a pre-migration legacy account).
	RoleAdrift RoleKind = "adrift"
)

// Role is the resolved identity used by the compiler. It is computed
// once per request by RoleOf and never re-derived piecemeal.
type Role struct {
	Kind        RoleKind
	Username    string
	LandManager *users.LandManagerProfile
	Scout       *users.ScoutProfile
}

// RoleOf resolves a user into exactly one role, in fixed precedence:
// superuser > land manager > scout > anonymous. A nil user is
// anonymous; a user with no profile is adrift.
func RoleOf(u *users.User) Role {
	if u == nil {
		return Role{Kind: RoleAnonymous}
	}
	switch {
	case u.IsSuperuser:
		return Role{Kind: RoleSuperuser, Username: u.Username}
	case u.LandManager != nil:
		return Role{Kind: RoleLandManager, Username: u.Username, LandManager: u.LandManager}
	case u.Scout != nil:
		return Role{Kind: RoleScout, Username: u.Username, Scout: u.Scout}
	default:
		return Role{Kind: RoleAdrift, Username: u.Username}
	}
}
