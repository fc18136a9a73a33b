package search

import (
	"fmt"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/rules"
)

// Filter translates access rules into index-query fragments and
// combines them with the caller's pre-existing search. Whether that
// base query already carries criteria decides the combinator for
// concrete rules: an OR-branch against an empty base would be the only
// criterion and belongs in should; against a populated base it must
// intersect, so it goes in must. Getting this wrong either ignores the
// sub-filter or intersects it with nothing.
type Filter struct {
	groups      GroupResolver
	base        *Bool
	hasCriteria bool
	paramount   Bool
}

func NewFilter(groups GroupResolver, base *Bool) *Filter {
	return &Filter{
		groups:      groups,
		base:        base,
		hasCriteria: !base.Empty(),
	}
}

// Apply folds one resource type's rule into the running composite.
func (f *Filter) Apply(rt heritage.ResourceType, rule rules.Rule) error {
	switch rule.Kind {
	case rules.KindFullAccess:
		f.paramount.Should = append(f.paramount.Should, TypeIs{Type: rt})
		return nil
	case rules.KindNoAccess:
		f.paramount.MustNot = append(f.paramount.MustNot, TypeIs{Type: rt})
		return nil
	case rules.KindAttributeMatch:
		gid, err := f.groups.GroupID(rt, rule.Node)
		if err != nil {
			return fmt.Errorf("resolve attribute group %q for %s: %w", rule.Node, rt, err)
		}
		group := &Bool{}
		for _, v := range rule.Values {
			group.Should = append(group.Should, AttributePhrase{Type: rt, GroupID: gid, Value: v})
		}
		f.attach(group)
		return nil
	case rules.KindResourceIDMatch:
		f.attach(&Bool{
			Must: []Clause{TypeIs{Type: rt}, IDsIn{IDs: rule.IDs}},
		})
		return nil
	case rules.KindGeoMatch:
		f.attach(&Bool{
			Must: []Clause{GeoIntersects{Type: rt, Geometry: rule.Geometry}},
		})
		return nil
	default:
		return fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}

func (f *Filter) attach(group *Bool) {
	if f.hasCriteria {
		f.paramount.Must = append(f.paramount.Must, group)
	} else {
		f.paramount.Should = append(f.paramount.Should, group)
	}
}

// Paramount exposes the composite access fragment on its own.
func (f *Filter) Paramount() *Bool {
	return &f.paramount
}

// Query returns the full query: the access composite alone when the
// base was empty, otherwise the base intersected with the composite.
func (f *Filter) Query() *Bool {
	if !f.hasCriteria {
		return &f.paramount
	}
	return &Bool{Must: []Clause{f.base, &f.paramount}}
}
