package rules

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// RuleKind tags the variant of an access rule.
type RuleKind string

const (
	// KindFullAccess makes the whole resource type visible.
	KindFullAccess RuleKind = "full_access"
	// KindNoAccess hides the whole resource type.
	KindNoAccess RuleKind = "no_access"
	// KindAttributeMatch makes a record visible iff the named
	// attribute's stored values intersect the rule's values.
	KindAttributeMatch RuleKind = "attribute_match"
	// KindGeoMatch makes a record visible iff its geometry
	// intersects the rule's geometry.
	KindGeoMatch RuleKind = "geo_match"
	// KindResourceIDMatch makes a record visible iff its id is in
	// the explicit set. Used to project site-level rules onto the
	// dependent scout-report type.
	KindResourceIDMatch RuleKind = "resourceid_match"
)

// Sentinel values emitted when a land manager's scoping is empty. They
// deliberately match nothing real instead of widening to full access.
const (
	NoAreaSet   = "<no area set>"
	NoAgencySet = "<no agency set>"
)

// Rule is the compiled visibility policy for one (user, resource type)
// pair. Rules are computed fresh per request and never persisted.
type Rule struct {
	Kind     RuleKind
	Node     string
	Values   []string
	IDs      []uuid.UUID
	Geometry *geojson.Geometry
}

func FullAccess() Rule {
	return Rule{Kind: KindFullAccess}
}

func NoAccess() Rule {
	return Rule{Kind: KindNoAccess}
}

func AttributeMatch(node string, values ...string) Rule {
	return Rule{Kind: KindAttributeMatch, Node: node, Values: values}
}

func GeoMatch(geom *geojson.Geometry) Rule {
	return Rule{Kind: KindGeoMatch, Geometry: geom}
}

func ResourceIDMatch(ids ...uuid.UUID) Rule {
	return Rule{Kind: KindResourceIDMatch, IDs: ids}
}

// Blanket reports whether the rule needs no per-record evaluation.
func (r Rule) Blanket() bool {
	return r.Kind == KindFullAccess || r.Kind == KindNoAccess
}
