package users

import (
	"github.com/google/uuid"

	"hms-service/internal/domain/lands"
)

// AccessMode controls how a profile's visibility into sites is scoped.
type AccessMode string

const (
	// Land-manager modes.
	ModeNone   AccessMode = "NONE"
	ModeArea   AccessMode = "AREA"
	ModeAgency AccessMode = "AGENCY"
	ModeFull   AccessMode = "FULL"

	// Scout mode: visibility limited to records assigned to the
	// scout's own username.
	ModeAssignedTo AccessMode = "ASSIGNEDTO"
)

// LandManagerProfile scopes a state/agency staff account. Areas and
// Groups apply in AREA mode (unioned); Agency applies in AGENCY mode.
type LandManagerProfile struct {
	UserID uuid.UUID                   `json:"user_id"`
	Mode   AccessMode                  `json:"site_access_mode"`
	Agency *lands.ManagementAgency     `json:"agency,omitempty"`
	Areas  []lands.ManagementArea      `json:"areas,omitempty"`
	Groups []lands.ManagementAreaGroup `json:"groups,omitempty"`
}

// GrantedAreaNames returns the union of individually granted areas
// and every area of the granted groups, de-duplicated.
func (p *LandManagerProfile) GrantedAreaNames() []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for _, a := range p.Areas {
		add(a.Name)
	}
	for _, g := range p.Groups {
		for _, a := range g.Areas {
			add(a.Name)
		}
	}
	return names
}

// ScoutProfile scopes a volunteer account. Regions are informational
// only and play no part in access control.
type ScoutProfile struct {
	UserID  uuid.UUID  `json:"user_id"`
	Mode    AccessMode `json:"site_access_mode"`
	Regions []string   `json:"regions,omitempty"`
}

// User is an account with whichever profiles it carries. An account
// with no profile at all is treated as adrift by role resolution.
type User struct {
	ID          uuid.UUID           `json:"id"`
	Username    string              `json:"username"`
	IsSuperuser bool                `json:"is_superuser"`
	LandManager *LandManagerProfile `json:"landmanager,omitempty"`
	Scout       *ScoutProfile       `json:"scout,omitempty"`
}
