package search

import (
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"hms-service/internal/domain/heritage"
)

// Clause is one node of a boolean index query. Every clause is
// JSON-serializable (for an external index) and evaluable in-process
// against an indexed document.
type Clause interface {
	Matches(doc *heritage.Document) bool
}

// Bool combines clauses with index semantics: all of Must and Filter,
// none of MustNot, and at least one of Should when any Should is
// present. Requiring a Should hit even alongside Must keeps failure in
// the under-visibility direction.
type Bool struct {
	Should  []Clause `json:"should,omitempty"`
	Must    []Clause `json:"must,omitempty"`
	MustNot []Clause `json:"must_not,omitempty"`
	Filter  []Clause `json:"filter,omitempty"`
}

// Empty reports whether the query carries no criteria at all.
func (b *Bool) Empty() bool {
	if b == nil {
		return true
	}
	return len(b.Should) == 0 && len(b.Must) == 0 && len(b.MustNot) == 0 && len(b.Filter) == 0
}

func (b *Bool) Matches(doc *heritage.Document) bool {
	if b.Empty() {
		return true
	}
	for _, c := range b.Must {
		if !c.Matches(doc) {
			return false
		}
	}
	for _, c := range b.Filter {
		if !c.Matches(doc) {
			return false
		}
	}
	for _, c := range b.MustNot {
		if c.Matches(doc) {
			return false
		}
	}
	if len(b.Should) == 0 {
		return true
	}
	for _, c := range b.Should {
		if c.Matches(doc) {
			return true
		}
	}
	return false
}

// TypeIs matches every document of one resource type.
type TypeIs struct {
	Type heritage.ResourceType `json:"resource_type"`
}

func (t TypeIs) Matches(doc *heritage.Document) bool {
	return doc.Type == t.Type
}

// AttributePhrase is an exact-phrase match against one physical
// attribute group, restricted to one resource type.
type AttributePhrase struct {
	Type    heritage.ResourceType `json:"resource_type"`
	GroupID string                `json:"group_id"`
	Value   string                `json:"value"`
}

func (a AttributePhrase) Matches(doc *heritage.Document) bool {
	if doc.Type != a.Type {
		return false
	}
	for _, v := range doc.GroupValues(a.GroupID) {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(a.Value)) {
			return true
		}
	}
	return false
}

// AttributeAnyOf matches when any stored value of the group equals any
// of the wanted values. Used for id-reference lookups (a report's Site
// group) where per-value phrase nesting would be wasteful.
type AttributeAnyOf struct {
	Type    heritage.ResourceType `json:"resource_type"`
	GroupID string                `json:"group_id"`
	Values  []string              `json:"values"`
}

func (a AttributeAnyOf) Matches(doc *heritage.Document) bool {
	if doc.Type != a.Type {
		return false
	}
	stored := doc.GroupValues(a.GroupID)
	if len(stored) == 0 {
		return false
	}
	for _, want := range a.Values {
		for _, v := range stored {
			if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}

// IDsIn is resource-id set membership.
type IDsIn struct {
	IDs []uuid.UUID `json:"ids"`
}

func (c IDsIn) Matches(doc *heritage.Document) bool {
	for _, id := range c.IDs {
		if doc.ResourceID == id {
			return true
		}
	}
	return false
}

// GeoIntersects scopes a geometry-intersection test to one resource
// type. In-process evaluation uses a bounding-box overlap check; a
// PostGIS-backed index replaces it with ST_Intersects. The compiler
// never emits geo rules today, so this clause only appears when a
// caller constructs one directly.
type GeoIntersects struct {
	Type     heritage.ResourceType `json:"resource_type"`
	Geometry *geojson.Geometry     `json:"geometry"`
}

func (g GeoIntersects) Matches(doc *heritage.Document) bool {
	if doc.Type != g.Type {
		return false
	}
	if g.Geometry == nil || doc.Geometry == nil {
		return false
	}
	return boundsOverlap(g.Geometry.Geometry(), doc.Geometry.Geometry())
}

func boundsOverlap(a, b orb.Geometry) bool {
	ab, bb := a.Bound(), b.Bound()
	return ab.Intersects(bb)
}
