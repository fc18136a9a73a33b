package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/rules"
	"hms-service/internal/search"
)

// VisibilityService answers every "what can this user see" question:
// it compiles access rules, projects site rules onto scout reports,
// translates rules into index queries and resolves them to bounded id
// sets.
type VisibilityService struct {
	compiler  *rules.Compiler
	groups    search.GroupResolver
	index     search.Index
	resultCap int
	log       zerolog.Logger
}

func NewVisibilityService(
	compiler *rules.Compiler,
	groups search.GroupResolver,
	index search.Index,
	resultCap int,
	log zerolog.Logger,
) *VisibilityService {
	if resultCap <= 0 {
		resultCap = search.DefaultResultCap
	}
	return &VisibilityService{
		compiler:  compiler,
		groups:    groups,
		index:     index,
		resultCap: resultCap,
		log:       log,
	}
}

// RuleFor returns the effective rule for (role, resource type). For
// scout reports the site-level rule is computed first and, unless it
// is a blanket rule, projected onto the report ids that reference the
// visible sites. A failed projection fails closed to no access.
func (s *VisibilityService) RuleFor(ctx context.Context, role rules.Role, rt heritage.ResourceType) rules.Rule {
	rule := s.compiler.Compile(role, rt)
	if rt != heritage.ScoutReport || rule.Blanket() {
		return rule
	}

	projected, err := s.projectSiteRule(ctx, rule)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("username", role.Username).
			Str("rule_kind", string(rule.Kind)).
			Msg("scout report projection failed, denying access")
		return rules.NoAccess()
	}
	return projected
}

// projectSiteRule resolves a concrete site rule to explicit site ids,
// then collects every report whose site reference points at one of
// them. Reports have no access-relevant attribute of their own, so
// the relationship is the only path.
func (s *VisibilityService) projectSiteRule(ctx context.Context, siteRule rules.Rule) (rules.Rule, error) {
	siteIDs, err := s.executeRule(ctx, siteRule, heritage.ArchaeologicalSite)
	if err != nil {
		return rules.Rule{}, fmt.Errorf("resolve site rule: %w", err)
	}
	if len(siteIDs) == 0 {
		return rules.ResourceIDMatch(), nil
	}

	gid, err := s.groups.GroupID(heritage.ScoutReport, heritage.AttrSiteReference)
	if err != nil {
		return rules.Rule{}, fmt.Errorf("resolve site reference group: %w", err)
	}
	values := make([]string, 0, len(siteIDs))
	for _, id := range siteIDs {
		values = append(values, id.String())
	}
	q := &search.Bool{
		Must: []search.Clause{search.AttributeAnyOf{
			Type:    heritage.ScoutReport,
			GroupID: gid,
			Values:  values,
		}},
	}
	reportIDs, err := s.index.Execute(ctx, q, []heritage.ResourceType{heritage.ScoutReport}, s.resultCap)
	if err != nil {
		return rules.Rule{}, fmt.Errorf("resolve referencing reports: %w", err)
	}
	return rules.ResourceIDMatch(reportIDs...), nil
}

// Search applies per-type access rules on top of the caller's base
// query and executes the composite against the index.
func (s *VisibilityService) Search(ctx context.Context, role rules.Role, scope []heritage.ResourceType, base *search.Bool) ([]uuid.UUID, error) {
	if len(scope) == 0 {
		scope = heritage.AllResourceTypes
	}

	filter := search.NewFilter(s.groups, base)
	for _, rt := range scope {
		rule := s.RuleFor(ctx, role, rt)
		if err := filter.Apply(rt, rule); err != nil {
			// A rule that cannot be translated hides its type
			// instead of widening the result.
			s.log.Warn().
				Err(err).
				Str("resource_type", string(rt)).
				Msg("rule translation failed, excluding resource type")
			if err := filter.Apply(rt, rules.NoAccess()); err != nil {
				return nil, err
			}
		}
	}
	return s.index.Execute(ctx, filter.Query(), scope, s.resultCap)
}

// ResolveIDs resolves one type's rule to explicit resource ids for
// non-search consumers (map tiles, export, dashboards). Blanket rules
// short-circuit without touching the index: all=true means no
// filtering is needed at all. The result is capped; callers must not
// treat it as exhaustive beyond the cap.
func (s *VisibilityService) ResolveIDs(ctx context.Context, role rules.Role, rt heritage.ResourceType) (ids []uuid.UUID, all bool, err error) {
	rule := s.RuleFor(ctx, role, rt)
	switch rule.Kind {
	case rules.KindFullAccess:
		return nil, true, nil
	case rules.KindNoAccess:
		return nil, false, nil
	}
	ids, err = s.executeRule(ctx, rule, rt)
	if err != nil {
		return nil, false, err
	}
	return ids, false, nil
}

func (s *VisibilityService) executeRule(ctx context.Context, rule rules.Rule, rt heritage.ResourceType) ([]uuid.UUID, error) {
	filter := search.NewFilter(s.groups, nil)
	if err := filter.Apply(rt, rule); err != nil {
		return nil, err
	}
	return s.index.Execute(ctx, filter.Query(), []heritage.ResourceType{rt}, s.resultCap)
}
