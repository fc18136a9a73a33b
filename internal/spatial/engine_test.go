package spatial

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/domain/lands"
)

type fakeAreaStore struct {
	byResource map[uuid.UUID][]lands.ManagementArea
	byArea     map[uuid.UUID][]uuid.UUID
	errs       map[uuid.UUID]error
}

func (s *fakeAreaStore) IntersectingAreas(_ context.Context, resourceID uuid.UUID) ([]lands.ManagementArea, error) {
	if err := s.errs[resourceID]; err != nil {
		return nil, err
	}
	return s.byResource[resourceID], nil
}

func (s *fakeAreaStore) IntersectingResourceIDs(_ context.Context, areaID uuid.UUID) ([]uuid.UUID, error) {
	return s.byArea[areaID], nil
}

type fakeResourceStore struct {
	resources map[uuid.UUID]*heritage.Resource
	derived   map[uuid.UUID]heritage.DerivedAreas
	writes    int
}

func (s *fakeResourceStore) GetResource(_ context.Context, id uuid.UUID) (*heritage.Resource, error) {
	res, ok := s.resources[id]
	if !ok {
		return nil, errors.New("resource not found")
	}
	return res, nil
}

func (s *fakeResourceStore) SetDerivedAreas(_ context.Context, id uuid.UUID, derived heritage.DerivedAreas) error {
	if s.derived == nil {
		s.derived = make(map[uuid.UUID]heritage.DerivedAreas)
	}
	s.derived[id] = derived
	s.writes++
	return nil
}

func pointGeometry() *geojson.Geometry {
	return geojson.NewGeometry(orb.Point{-81.3, 29.7})
}

func newTestEngine(areas *fakeAreaStore, resources *fakeResourceStore) (*Engine, *ReindexQueue) {
	queue := NewReindexQueue(zerolog.Nop())
	return NewEngine(areas, resources, queue, zerolog.Nop()), queue
}

func TestUpdateResourceCategorySegregation(t *testing.T) {
	resID := uuid.New()
	fwc := &lands.ManagementAgency{Code: "FWC", Name: "Florida Fish and Wildlife Conservation Commission"}
	areas := &fakeAreaStore{
		byResource: map[uuid.UUID][]lands.ManagementArea{
			resID: {
				{Name: "Matanzas State Forest", Category: lands.CategoryStateForest, Agency: fwc},
				{Name: "Northeast", Category: lands.CategoryFPANRegion},
				{Name: "St. Johns", Category: lands.CategoryCounty},
				{Name: "Pellicer Creek", Category: lands.CategoryAquaticPreserve},
			},
		},
	}
	resources := &fakeResourceStore{
		resources: map[uuid.UUID]*heritage.Resource{
			resID: {ID: resID, Type: heritage.ArchaeologicalSite, Geometry: pointGeometry()},
		},
	}
	engine, _ := newTestEngine(areas, resources)

	require.NoError(t, engine.UpdateResource(context.Background(), resID))

	got := resources.derived[resID]
	assert.Equal(t, []string{"Matanzas State Forest", "Pellicer Creek"}, got.Areas)
	assert.Equal(t, []string{"Florida Fish and Wildlife Conservation Commission"}, got.Agencies)
	assert.Equal(t, []string{"Northeast"}, got.Regions)
	assert.Equal(t, []string{"St. Johns"}, got.Counties)
}

func TestUpdateResourceIdempotent(t *testing.T) {
	resID := uuid.New()
	areas := &fakeAreaStore{
		byResource: map[uuid.UUID][]lands.ManagementArea{
			resID: {
				{Name: "Faver-Dykes State Park", Category: lands.CategoryStatePark},
				{Name: "Northeast", Category: lands.CategoryFPANRegion},
			},
		},
	}
	resources := &fakeResourceStore{
		resources: map[uuid.UUID]*heritage.Resource{
			resID: {ID: resID, Type: heritage.ArchaeologicalSite, Geometry: pointGeometry()},
		},
	}
	engine, _ := newTestEngine(areas, resources)

	require.NoError(t, engine.UpdateResource(context.Background(), resID))
	first := resources.derived[resID]
	require.NoError(t, engine.UpdateResource(context.Background(), resID))
	second := resources.derived[resID]

	assert.Equal(t, first, second)
	assert.Equal(t, 2, resources.writes)
}

func TestUpdateResourceDropsStaleDerivation(t *testing.T) {
	// A second run after the area set shrank must rebuild from
	// scratch, not merge with the previous values.
	resID := uuid.New()
	areas := &fakeAreaStore{
		byResource: map[uuid.UUID][]lands.ManagementArea{
			resID: {
				{Name: "Matanzas State Forest", Category: lands.CategoryStateForest},
				{Name: "Faver-Dykes State Park", Category: lands.CategoryStatePark},
			},
		},
	}
	resources := &fakeResourceStore{
		resources: map[uuid.UUID]*heritage.Resource{
			resID: {ID: resID, Type: heritage.ArchaeologicalSite, Geometry: pointGeometry()},
		},
	}
	engine, _ := newTestEngine(areas, resources)
	require.NoError(t, engine.UpdateResource(context.Background(), resID))
	require.Len(t, resources.derived[resID].Areas, 2)

	areas.byResource[resID] = areas.byResource[resID][:1]
	require.NoError(t, engine.UpdateResource(context.Background(), resID))
	assert.Equal(t, []string{"Matanzas State Forest"}, resources.derived[resID].Areas)
}

func TestUpdateResourceNoGeometrySkips(t *testing.T) {
	resID := uuid.New()
	resources := &fakeResourceStore{
		resources: map[uuid.UUID]*heritage.Resource{
			resID: {ID: resID, Type: heritage.HistoricStructure},
		},
	}
	engine, _ := newTestEngine(&fakeAreaStore{}, resources)

	require.NoError(t, engine.UpdateResource(context.Background(), resID))
	assert.Zero(t, resources.writes)
}

func TestJoinAreaContinuesPastBadGeometry(t *testing.T) {
	areaID := uuid.New()
	good, bad := uuid.New(), uuid.New()
	areas := &fakeAreaStore{
		byResource: map[uuid.UUID][]lands.ManagementArea{
			good: {{Name: "Matanzas State Forest", Category: lands.CategoryStateForest}},
		},
		byArea: map[uuid.UUID][]uuid.UUID{
			areaID: {bad, good},
		},
		errs: map[uuid.UUID]error{bad: ErrBadGeometry},
	}
	resources := &fakeResourceStore{
		resources: map[uuid.UUID]*heritage.Resource{
			good: {ID: good, Type: heritage.ArchaeologicalSite, Geometry: pointGeometry()},
			bad:  {ID: bad, Type: heritage.ArchaeologicalSite, Geometry: pointGeometry()},
		},
	}
	engine, queue := newTestEngine(areas, resources)

	updated, err := engine.JoinAreaToResources(context.Background(), areaID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, []string{"Matanzas State Forest"}, resources.derived[good].Areas)
	assert.Equal(t, 1, queue.Len())
}

func TestUpdateResourceEvictsLockEntry(t *testing.T) {
	resID := uuid.New()
	areas := &fakeAreaStore{
		byResource: map[uuid.UUID][]lands.ManagementArea{
			resID: {{Name: "Matanzas State Forest", Category: lands.CategoryStateForest}},
		},
	}
	resources := &fakeResourceStore{
		resources: map[uuid.UUID]*heritage.Resource{
			resID: {ID: resID, Type: heritage.ArchaeologicalSite, Geometry: pointGeometry()},
		},
	}
	engine, _ := newTestEngine(areas, resources)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = engine.UpdateResource(context.Background(), resID)
		}()
	}
	wg.Wait()

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Empty(t, engine.locks)
}

type recordingReindexer struct {
	calls map[uuid.UUID]int
	fail  map[uuid.UUID]bool
}

func (r *recordingReindexer) Reindex(_ context.Context, id uuid.UUID) error {
	if r.calls == nil {
		r.calls = make(map[uuid.UUID]int)
	}
	r.calls[id]++
	if r.fail[id] {
		return errors.New("index unavailable")
	}
	return nil
}

func TestReindexQueueRetainsFailures(t *testing.T) {
	ok, failing := uuid.New(), uuid.New()
	q := NewReindexQueue(zerolog.Nop())
	q.Enqueue(ok)
	q.Enqueue(failing)
	q.Enqueue(failing)
	require.Equal(t, 2, q.Len())

	idx := &recordingReindexer{fail: map[uuid.UUID]bool{failing: true}}
	q.Drain(context.Background(), idx)

	assert.Equal(t, 1, idx.calls[ok])
	assert.Equal(t, 1, idx.calls[failing])
	assert.Equal(t, 1, q.Len())

	idx.fail[failing] = false
	q.Drain(context.Background(), idx)
	assert.Zero(t, q.Len())
	assert.Equal(t, 2, idx.calls[failing])
}
