package rules

import (
	"fmt"

	"hms-service/internal/domain/heritage"
)

// Policy declares, per resource type, whether the type is restricted.
// Restricted types get the guarded anonymous/adrift defaults; every
// other type is publicly visible. The table is validated at startup so
// a malformed entry fails fast instead of at request time.
type Policy struct {
	restricted map[heritage.ResourceType]bool
}

// DefaultPolicy restricts the site record and the scout reports that
// reference it.
func DefaultPolicy() *Policy {
	return &Policy{
		restricted: map[heritage.ResourceType]bool{
			heritage.ArchaeologicalSite: true,
			heritage.ScoutReport:        true,
		},
	}
}

// NewPolicy builds a policy from a restricted-type list.
func NewPolicy(restricted []string) (*Policy, error) {
	known := make(map[heritage.ResourceType]bool, len(heritage.AllResourceTypes))
	for _, rt := range heritage.AllResourceTypes {
		known[rt] = true
	}
	p := &Policy{restricted: make(map[heritage.ResourceType]bool, len(restricted))}
	for _, name := range restricted {
		rt := heritage.ResourceType(name)
		if !known[rt] {
			return nil, fmt.Errorf("policy lists unknown resource type %q", name)
		}
		p.restricted[rt] = true
	}
	return p, nil
}

// Restricted reports whether the type carries access restrictions.
func (p *Policy) Restricted(rt heritage.ResourceType) bool {
	return p.restricted[rt]
}
