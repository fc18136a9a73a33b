package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/domain/lands"
	"hms-service/internal/domain/users"
	"hms-service/internal/rules"
	"hms-service/internal/search"
)

// memoryIndex evaluates queries in-process over a fixed document set,
// the same way the Postgres index does over its JSONB rows.
type memoryIndex struct {
	docs []*heritage.Document
	err  error
}

func (m *memoryIndex) Execute(_ context.Context, q *search.Bool, scope []heritage.ResourceType, limit int) ([]uuid.UUID, error) {
	if m.err != nil {
		return nil, m.err
	}
	inScope := make(map[heritage.ResourceType]bool, len(scope))
	for _, rt := range scope {
		inScope[rt] = true
	}
	var ids []uuid.UUID
	for _, d := range m.docs {
		if len(scope) > 0 && !inScope[d.Type] {
			continue
		}
		if q.Matches(d) {
			ids = append(ids, d.ResourceID)
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

func (m *memoryIndex) IndexDocument(_ context.Context, doc *heritage.Document) error {
	for i, d := range m.docs {
		if d.ResourceID == doc.ResourceID {
			m.docs[i] = doc
			return nil
		}
	}
	m.docs = append(m.docs, doc)
	return nil
}

func (m *memoryIndex) Remove(_ context.Context, resourceID uuid.UUID) error {
	for i, d := range m.docs {
		if d.ResourceID == resourceID {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return nil
}

type staticGroups map[string]string

func (g staticGroups) GroupID(rt heritage.ResourceType, name string) (string, error) {
	gid, ok := g[string(rt)+"|"+name]
	if !ok {
		return "", search.ErrUnknownAttribute
	}
	return gid, nil
}

func (g staticGroups) HasAttribute(rt heritage.ResourceType, name string) bool {
	_, err := g.GroupID(rt, name)
	return err == nil
}

func testGroups() staticGroups {
	return staticGroups{
		"Archaeological Site|Assigned To":     "as-assigned-to",
		"Archaeological Site|Management Area": "as-mgmt-area",
		"Scout Report|Site":                   "sr-site",
	}
}

func siteDoc(id uuid.UUID, area string) *heritage.Document {
	groups := map[string][]string{}
	if area != "" {
		groups["as-mgmt-area"] = []string{area}
	}
	return &heritage.Document{ResourceID: id, Type: heritage.ArchaeologicalSite, Groups: groups}
}

func reportDoc(id, siteID uuid.UUID) *heritage.Document {
	return &heritage.Document{
		ResourceID: id,
		Type:       heritage.ScoutReport,
		Groups:     map[string][]string{"sr-site": {siteID.String()}},
	}
}

func managerRole(areaNames ...string) rules.Role {
	areas := make([]lands.ManagementArea, 0, len(areaNames))
	for _, n := range areaNames {
		areas = append(areas, lands.ManagementArea{Name: n})
	}
	return rules.Role{
		Kind:        rules.RoleLandManager,
		Username:    "lm",
		LandManager: &users.LandManagerProfile{Mode: users.ModeArea, Areas: areas},
	}
}

func newVisibility(idx search.Index, groups search.GroupResolver) *VisibilityService {
	compiler := rules.NewCompiler(rules.DefaultPolicy(), groups, zerolog.Nop())
	return NewVisibilityService(compiler, groups, idx, 0, zerolog.Nop())
}

func TestScoutReportProjection(t *testing.T) {
	// Sites A and B fall in the manager's forest, C does not. Report
	// visibility must follow exactly the visible sites.
	siteA, siteB, siteC := uuid.New(), uuid.New(), uuid.New()
	reportA, reportB, reportC := uuid.New(), uuid.New(), uuid.New()
	idx := &memoryIndex{docs: []*heritage.Document{
		siteDoc(siteA, "Matanzas State Forest"),
		siteDoc(siteB, "Matanzas State Forest"),
		siteDoc(siteC, "Faver-Dykes State Park"),
		reportDoc(reportA, siteA),
		reportDoc(reportB, siteB),
		reportDoc(reportC, siteC),
	}}
	svc := newVisibility(idx, testGroups())
	role := managerRole("Matanzas State Forest")

	rule := svc.RuleFor(context.Background(), role, heritage.ScoutReport)
	require.Equal(t, rules.KindResourceIDMatch, rule.Kind)
	assert.ElementsMatch(t, []uuid.UUID{reportA, reportB}, rule.IDs)
}

func TestScoutReportProjectionNoVisibleSites(t *testing.T) {
	report := uuid.New()
	idx := &memoryIndex{docs: []*heritage.Document{
		siteDoc(uuid.New(), "Faver-Dykes State Park"),
		reportDoc(report, uuid.New()),
	}}
	svc := newVisibility(idx, testGroups())
	role := managerRole("Matanzas State Forest")

	rule := svc.RuleFor(context.Background(), role, heritage.ScoutReport)
	require.Equal(t, rules.KindResourceIDMatch, rule.Kind)
	assert.Empty(t, rule.IDs)

	ids, err := svc.Search(context.Background(), role, []heritage.ResourceType{heritage.ScoutReport}, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestScoutReportProjectionSkippedForBlanketRules(t *testing.T) {
	idx := &memoryIndex{err: errors.New("index down")}
	svc := newVisibility(idx, testGroups())

	// Superuser never touches the index.
	rule := svc.RuleFor(context.Background(), rules.Role{Kind: rules.RoleSuperuser}, heritage.ScoutReport)
	assert.Equal(t, rules.KindFullAccess, rule.Kind)

	// Adrift is blanket no-access on reports.
	rule = svc.RuleFor(context.Background(), rules.Role{Kind: rules.RoleAdrift, Username: "legacy"}, heritage.ScoutReport)
	assert.Equal(t, rules.KindNoAccess, rule.Kind)
}

func TestScoutReportProjectionFailsClosed(t *testing.T) {
	idx := &memoryIndex{err: errors.New("index down")}
	svc := newVisibility(idx, testGroups())
	role := managerRole("Matanzas State Forest")

	rule := svc.RuleFor(context.Background(), role, heritage.ScoutReport)
	assert.Equal(t, rules.KindNoAccess, rule.Kind)
}

func TestSearchExcludesUntranslatableTypes(t *testing.T) {
	// No Assigned To mapping for sites: the anonymous site rule cannot
	// translate, so sites disappear while public types stay visible.
	cemetery := uuid.New()
	idx := &memoryIndex{docs: []*heritage.Document{
		siteDoc(uuid.New(), "Matanzas State Forest"),
		{ResourceID: cemetery, Type: heritage.HistoricCemetery},
	}}
	groups := staticGroups{"Archaeological Site|Management Area": "as-mgmt-area"}
	compiler := rules.NewCompiler(rules.DefaultPolicy(), testGroups(), zerolog.Nop())
	svc := NewVisibilityService(compiler, groups, idx, 0, zerolog.Nop())

	scope := []heritage.ResourceType{heritage.ArchaeologicalSite, heritage.HistoricCemetery}
	ids, err := svc.Search(context.Background(), rules.Role{Kind: rules.RoleAnonymous}, scope, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{cemetery}, ids)
}

func TestSearchWithBaseQueryIntersects(t *testing.T) {
	visible, hidden := uuid.New(), uuid.New()
	idx := &memoryIndex{docs: []*heritage.Document{
		func() *heritage.Document {
			d := siteDoc(visible, "Matanzas State Forest")
			d.Name = "Shell Midden"
			return d
		}(),
		func() *heritage.Document {
			d := siteDoc(hidden, "Faver-Dykes State Park")
			d.Name = "Shell Midden"
			return d
		}(),
	}}
	svc := newVisibility(idx, testGroups())
	role := managerRole("Matanzas State Forest")

	base := &search.Bool{Must: []search.Clause{search.TypeIs{Type: heritage.ArchaeologicalSite}}}
	ids, err := svc.Search(context.Background(), role, []heritage.ResourceType{heritage.ArchaeologicalSite}, base)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{visible}, ids)
}

func TestResolveIDs(t *testing.T) {
	siteA := uuid.New()
	idx := &memoryIndex{docs: []*heritage.Document{
		siteDoc(siteA, "Matanzas State Forest"),
		siteDoc(uuid.New(), "Faver-Dykes State Park"),
	}}
	svc := newVisibility(idx, testGroups())

	ids, all, err := svc.ResolveIDs(context.Background(), rules.Role{Kind: rules.RoleSuperuser}, heritage.ArchaeologicalSite)
	require.NoError(t, err)
	assert.True(t, all)
	assert.Nil(t, ids)

	ids, all, err = svc.ResolveIDs(context.Background(), rules.Role{Kind: rules.RoleAdrift, Username: "legacy"}, heritage.ArchaeologicalSite)
	require.NoError(t, err)
	assert.False(t, all)
	assert.Nil(t, ids)

	ids, all, err = svc.ResolveIDs(context.Background(), managerRole("Matanzas State Forest"), heritage.ArchaeologicalSite)
	require.NoError(t, err)
	assert.False(t, all)
	assert.Equal(t, []uuid.UUID{siteA}, ids)
}
