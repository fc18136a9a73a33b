package rules

import (
	"github.com/rs/zerolog"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/domain/users"
)

// Schema answers whether a logical attribute exists on a resource
// type. A rule naming a missing attribute degrades to no access
// instead of silently widening.
type Schema interface {
	HasAttribute(rt heritage.ResourceType, name string) bool
}

// Compiler turns a resolved role into the single access rule for a
// resource type. Compilation is synchronous, stateless and per
// request.
type Compiler struct {
	policy *Policy
	schema Schema
	log    zerolog.Logger
}

func NewCompiler(policy *Policy, schema Schema, log zerolog.Logger) *Compiler {
	return &Compiler{policy: policy, schema: schema, log: log}
}

// Compile returns exactly one rule for (role, resource type), applying
// role precedence. Scout Report has no access-relevant attributes of
// its own: its rule is always the Archaeological Site rule for the
// same user, and concrete site rules are projected onto report ids by
// the visibility service before use.
func (c *Compiler) Compile(role Role, rt heritage.ResourceType) Rule {
	if rt == heritage.ScoutReport {
		return c.Compile(role, heritage.ArchaeologicalSite)
	}

	switch role.Kind {
	case RoleSuperuser:
		return FullAccess()
	case RoleLandManager:
		return c.landManagerRule(role, rt)
	case RoleScout:
		return c.scoutRule(role, rt)
	case RoleAnonymous:
		return c.anonymousRule(role, rt)
	default:
		return c.adriftRule(rt)
	}
}

func (c *Compiler) landManagerRule(role Role, rt heritage.ResourceType) Rule {
	p := role.LandManager
	if p == nil {
		c.log.Warn().Str("username", role.Username).Msg("land manager role without profile, denying access")
		return NoAccess()
	}
	switch p.Mode {
	case users.ModeFull:
		return FullAccess()
	case users.ModeArea:
		names := p.GrantedAreaNames()
		if len(names) == 0 {
			// An empty grant must match nothing, never fall
			// open to a full table.
			names = []string{NoAreaSet}
		}
		return c.attributeRule(rt, heritage.AttrManagementArea, names)
	case users.ModeAgency:
		values := []string{NoAgencySet}
		if p.Agency != nil && p.Agency.Name != "" {
			values = []string{p.Agency.Name}
		}
		return c.attributeRule(rt, heritage.AttrManagementAgency, values)
	case users.ModeNone:
		return NoAccess()
	default:
		c.log.Warn().
			Str("username", role.Username).
			Str("mode", string(p.Mode)).
			Msg("unrecognized land manager access mode, denying access")
		return NoAccess()
	}
}

func (c *Compiler) scoutRule(role Role, rt heritage.ResourceType) Rule {
	if role.Scout != nil && role.Scout.Mode == users.ModeFull {
		return FullAccess()
	}
	return c.attributeRule(rt, heritage.AttrAssignedTo, []string{role.Username})
}

func (c *Compiler) anonymousRule(role Role, rt heritage.ResourceType) Rule {
	if rt != heritage.ArchaeologicalSite {
		return FullAccess()
	}
	values := []string{"anonymous"}
	if role.Username != "" && role.Username != "anonymous" {
		values = []string{role.Username, "anonymous"}
	}
	return c.attributeRule(rt, heritage.AttrAssignedTo, values)
}

// adriftRule is the safety default for accounts in no known category:
// restricted types are hidden entirely, everything else stays public.
func (c *Compiler) adriftRule(rt heritage.ResourceType) Rule {
	if c.policy.Restricted(rt) {
		return NoAccess()
	}
	return FullAccess()
}

func (c *Compiler) attributeRule(rt heritage.ResourceType, node string, values []string) Rule {
	if !c.schema.HasAttribute(rt, node) {
		c.log.Warn().
			Str("resource_type", string(rt)).
			Str("attribute", node).
			Msg("access rule names an attribute missing from the resource type, denying access")
		return NoAccess()
	}
	return AttributeMatch(node, values...)
}
