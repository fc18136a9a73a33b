package spatial

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/domain/lands"
	"hms-service/internal/utils"
)

// ErrBadGeometry marks a geometry the store could not repair. The
// resource is skipped and logged; it is never fatal to a batch.
var ErrBadGeometry = errors.New("geometry invalid beyond repair")

// AreaStore answers spatial intersection questions. The production
// implementation runs ST_Intersects in PostGIS with ST_MakeValid
// repair applied to the resource geometry first.
type AreaStore interface {
	IntersectingAreas(ctx context.Context, resourceID uuid.UUID) ([]lands.ManagementArea, error)
	IntersectingResourceIDs(ctx context.Context, areaID uuid.UUID) ([]uuid.UUID, error)
}

// ResourceStore reads resources and applies derived-attribute updates.
type ResourceStore interface {
	GetResource(ctx context.Context, id uuid.UUID) (*heritage.Resource, error)
	SetDerivedAreas(ctx context.Context, id uuid.UUID, derived heritage.DerivedAreas) error
}

// Engine keeps each resource's denormalized area attributes consistent
// with its geometry and the current area set. Updates to one resource
// are serialized through a per-resource mutex; different resources run
// independently.
type Engine struct {
	areas     AreaStore
	resources ResourceStore
	queue     *ReindexQueue
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*resourceLock
}

// resourceLock is a refcounted entry in the keyed-mutex map. The entry
// is evicted when the last holder releases, so the map is bounded by
// concurrent updates, not by every resource ever touched.
type resourceLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(areas AreaStore, resources ResourceStore, queue *ReindexQueue, log zerolog.Logger) *Engine {
	return &Engine{
		areas:     areas,
		resources: resources,
		queue:     queue,
		log:       log,
		locks:     make(map[uuid.UUID]*resourceLock),
	}
}

func (e *Engine) acquire(id uuid.UUID) *resourceLock {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &resourceLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return l
}

func (e *Engine) release(id uuid.UUID, l *resourceLock) {
	l.mu.Unlock()

	e.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(e.locks, id)
	}
	e.mu.Unlock()
}

// UpdateResource re-derives the Management Area / Management Agency /
// FPAN Region / County attributes from the resource's geometry. The
// four sets are rebuilt fresh on every run and written atomically, so
// the operation is idempotent and dangling references to deleted areas
// fall away on the next pass.
func (e *Engine) UpdateResource(ctx context.Context, resourceID uuid.UUID) error {
	lock := e.acquire(resourceID)
	defer e.release(resourceID, lock)

	res, err := e.resources.GetResource(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("load resource %s: %w", resourceID, err)
	}
	if res.Geometry == nil {
		e.log.Debug().Str("resource_id", resourceID.String()).Msg("resource has no geometry, skipping spatial join")
		return nil
	}

	areas, err := e.areas.IntersectingAreas(ctx, resourceID)
	if err != nil {
		if errors.Is(err, ErrBadGeometry) {
			e.log.Warn().
				Str("resource_id", resourceID.String()).
				Msg("resource geometry invalid beyond repair, skipping spatial join")
			return ErrBadGeometry
		}
		return fmt.Errorf("intersect areas for resource %s: %w", resourceID, err)
	}

	derived := accumulate(areas)
	if err := e.resources.SetDerivedAreas(ctx, resourceID, derived); err != nil {
		return fmt.Errorf("write derived areas for resource %s: %w", resourceID, err)
	}

	e.log.Info().
		Str("resource_id", resourceID.String()).
		Int("areas", len(derived.Areas)).
		Int("agencies", len(derived.Agencies)).
		Int("regions", len(derived.Regions)).
		Int("counties", len(derived.Counties)).
		Msg("spatial join updated resource")
	return nil
}

// JoinAreaToResources runs the inverse direction for a created or
// changed area: every resource intersecting it is re-derived and
// queued for reindexing, since the search index does not track the
// resource store on its own. Per-resource failures are logged and the
// batch continues.
func (e *Engine) JoinAreaToResources(ctx context.Context, areaID uuid.UUID) (int, error) {
	ids, err := e.areas.IntersectingResourceIDs(ctx, areaID)
	if err != nil {
		return 0, fmt.Errorf("intersect resources for area %s: %w", areaID, err)
	}

	updated := 0
	for _, id := range ids {
		if err := e.UpdateResource(ctx, id); err != nil {
			if errors.Is(err, ErrBadGeometry) {
				continue
			}
			e.log.Error().
				Err(err).
				Str("area_id", areaID.String()).
				Str("resource_id", id.String()).
				Msg("spatial join failed for resource")
			continue
		}
		updated++
		e.queue.Enqueue(id)
	}

	e.log.Info().
		Str("area_id", areaID.String()).
		Int("intersecting", len(ids)).
		Int("updated", updated).
		Msg("area joined to resources")
	return updated, nil
}

// accumulate buckets matched areas into the four derived sets: region
// and county categories segregate into their own slots, everything
// else lands under Management Area. All matches are kept; a resource
// can belong to several non-exclusive areas at once.
func accumulate(areas []lands.ManagementArea) heritage.DerivedAreas {
	var d heritage.DerivedAreas
	for _, a := range areas {
		switch a.Category {
		case lands.CategoryFPANRegion:
			d.Regions = append(d.Regions, a.Name)
		case lands.CategoryCounty:
			d.Counties = append(d.Counties, a.Name)
		default:
			d.Areas = append(d.Areas, a.Name)
		}
		if a.Agency != nil {
			d.Agencies = append(d.Agencies, a.Agency.Name)
		}
	}
	d.Areas = utils.NormalizeSet(d.Areas)
	d.Agencies = utils.NormalizeSet(d.Agencies)
	d.Regions = utils.NormalizeSet(d.Regions)
	d.Counties = utils.NormalizeSet(d.Counties)
	return d
}
