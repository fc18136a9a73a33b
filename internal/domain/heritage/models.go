package heritage

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// ResourceType identifies one of the managed heritage record types.
type ResourceType string

const (
	ArchaeologicalSite ResourceType = "Archaeological Site"
	HistoricCemetery   ResourceType = "Historic Cemetery"
	HistoricStructure  ResourceType = "Historic Structure"
	ScoutReport        ResourceType = "Scout Report"
)

// AllResourceTypes lists every managed type in a stable order.
var AllResourceTypes = []ResourceType{
	ArchaeologicalSite,
	HistoricCemetery,
	HistoricStructure,
	ScoutReport,
}

// Logical attribute names. Each resource type stores the same logical
// name under its own physical group id, resolved through the
// attribute-group table.
const (
	AttrAssignedTo       = "Assigned To"
	AttrManagementArea   = "Management Area"
	AttrManagementAgency = "Management Agency"
	AttrFPANRegion       = "FPAN Region"
	AttrCounty           = "County"
	AttrSiteReference    = "Site"
)

// Resource is a typed heritage record with named attribute values and
// an optional geometry.
type Resource struct {
	ID         uuid.UUID           `json:"id"`
	Type       ResourceType        `json:"resource_type"`
	Name       string              `json:"name"`
	Geometry   *geojson.Geometry   `json:"geometry,omitempty"`
	Attributes map[string][]string `json:"attributes"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Values returns the stored values for a logical attribute name, nil
// when the attribute is absent.
func (r *Resource) Values(name string) []string {
	if r.Attributes == nil {
		return nil
	}
	return r.Attributes[name]
}

// DerivedAreas is the full replacement value for the four attributes
// maintained by the spatial join. It is built fresh on every join run
// and applied atomically, never mutated in place.
type DerivedAreas struct {
	Areas    []string `json:"areas"`
	Agencies []string `json:"agencies"`
	Regions  []string `json:"regions"`
	Counties []string `json:"counties"`
}

// Document is the denormalized, indexed form of a Resource. Attribute
// values are keyed by physical group id, the way the search index
// stores them.
type Document struct {
	ResourceID uuid.UUID           `json:"resource_id"`
	Type       ResourceType        `json:"resource_type"`
	Name       string              `json:"name"`
	Groups     map[string][]string `json:"groups"`
	Geometry   *geojson.Geometry   `json:"geometry,omitempty"`
}

// GroupValues returns the indexed values under a physical group id.
func (d *Document) GroupValues(groupID string) []string {
	if d.Groups == nil {
		return nil
	}
	return d.Groups[groupID]
}
