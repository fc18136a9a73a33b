package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/repository"
	"hms-service/internal/search"
	"hms-service/internal/spatial"
)

// IndexingService denormalizes resources into search documents. It is
// the spatial.Reindexer used by the reindex queue and also serves
// direct reindex requests from the API.
type IndexingService struct {
	resources *repository.ResourceRepository
	groups    search.GroupResolver
	index     search.Index
	log       zerolog.Logger
}

func NewIndexingService(
	resources *repository.ResourceRepository,
	groups search.GroupResolver,
	index search.Index,
	log zerolog.Logger,
) *IndexingService {
	return &IndexingService{
		resources: resources,
		groups:    groups,
		index:     index,
		log:       log,
	}
}

// Reindex rebuilds one resource's document from the store. A resource
// that disappeared is removed from the index instead.
func (s *IndexingService) Reindex(ctx context.Context, resourceID uuid.UUID) error {
	res, err := s.resources.GetResource(ctx, resourceID)
	if err == gorm.ErrRecordNotFound {
		return s.index.Remove(ctx, resourceID)
	}
	if err != nil {
		return fmt.Errorf("load resource %s: %w", resourceID, err)
	}

	doc, err := s.BuildDocument(res)
	if err != nil {
		return err
	}
	if err := s.index.IndexDocument(ctx, doc); err != nil {
		return fmt.Errorf("index resource %s: %w", resourceID, err)
	}
	return nil
}

// BuildDocument maps logical attribute names onto the physical group
// ids the index stores them under. Attributes with no group mapping
// for the type are skipped with a warning; they cannot be queried, so
// indexing them under a made-up id would only mask the schema gap.
func (s *IndexingService) BuildDocument(res *heritage.Resource) (*heritage.Document, error) {
	doc := &heritage.Document{
		ResourceID: res.ID,
		Type:       res.Type,
		Name:       res.Name,
		Groups:     make(map[string][]string, len(res.Attributes)),
		Geometry:   res.Geometry,
	}
	for name, values := range res.Attributes {
		gid, err := s.groups.GroupID(res.Type, name)
		if err != nil {
			s.log.Warn().
				Str("resource_id", res.ID.String()).
				Str("resource_type", string(res.Type)).
				Str("attribute", name).
				Msg("attribute has no group mapping, not indexed")
			continue
		}
		doc.Groups[gid] = values
	}
	return doc, nil
}

// StartReindexWorker schedules queue drains. Draining is retryable and
// at-least-once; the returned cron is already running.
func StartReindexWorker(queue *spatial.ReindexQueue, indexer *IndexingService, schedule string, log zerolog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if queue.Len() == 0 {
			return
		}
		log.Debug().Int("pending", queue.Len()).Msg("draining reindex queue")
		queue.Drain(context.Background(), indexer)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reindex worker: %w", err)
	}
	c.Start()
	return c, nil
}
