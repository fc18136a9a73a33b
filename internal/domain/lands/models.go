package lands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// AreaCategory is the fixed taxonomy of management-area kinds. Region
// and county are segregated into their own derived attributes by the
// spatial join; every other category accumulates under
// "Management Area".
type AreaCategory string

const (
	CategoryFPANRegion       AreaCategory = "FPAN Region"
	CategoryCounty           AreaCategory = "County"
	CategoryStatePark        AreaCategory = "State Park"
	CategoryStateForest      AreaCategory = "State Forest"
	CategoryAquaticPreserve  AreaCategory = "Aquatic Preserve"
	CategoryWaterDistrict    AreaCategory = "Water Management District"
	CategoryConservationArea AreaCategory = "Conservation Area"
)

// ManagementAgency is a land-owning agency, keyed by its short code.
type ManagementAgency struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ManagementArea is a named administrative/ownership polygon. An area
// belongs to at most one category and at most one agency. Geometry is
// immutable in normal operation.
type ManagementArea struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Category    AreaCategory      `json:"category,omitempty"`
	Agency      *ManagementAgency `json:"agency,omitempty"`
	Nickname    string            `json:"nickname,omitempty"`
	DisplayName string            `json:"display_name"`
	Geometry    *geojson.Geometry `json:"geometry,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ComputeDisplayName rebuilds the derived display name from name,
// category and agency. Recomputed on every save.
func (a *ManagementArea) ComputeDisplayName() string {
	name := a.Name
	if a.Category != "" {
		name = fmt.Sprintf("%s (%s)", name, a.Category)
	}
	if a.Agency != nil && a.Agency.Name != "" {
		name = fmt.Sprintf("%s - %s", name, a.Agency.Name)
	}
	return name
}

// ManagementAreaGroup grants access to a named bundle of areas
// without listing each one. It has no geometry of its own.
type ManagementAreaGroup struct {
	ID    uuid.UUID        `json:"id"`
	Name  string           `json:"name"`
	Areas []ManagementArea `json:"areas"`
}
