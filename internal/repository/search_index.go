package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/search"
)

// PostgresIndex implements search.Index over a JSONB document table.
// Query fragments are evaluated in-process against the type-scoped
// document set, fetched in batches. A caller-supplied cap is always
// enforced; zero means the default cap, never unbounded.
type PostgresIndex struct {
	db *gorm.DB
}

func NewPostgresIndex(db *gorm.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

func (SearchDocumentRecord) TableName() string {
	return "search_documents"
}

type SearchDocumentRecord struct {
	ResourceID   uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ResourceType string         `gorm:"not null"`
	Document     datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt    time.Time
}

const executeBatchSize = 500

func (x *PostgresIndex) Execute(ctx context.Context, q *search.Bool, scope []heritage.ResourceType, limit int) ([]uuid.UUID, error) {
	if limit <= 0 || limit > search.DefaultResultCap {
		limit = search.DefaultResultCap
	}

	types := make([]string, 0, len(scope))
	for _, rt := range scope {
		types = append(types, string(rt))
	}

	var (
		matched []uuid.UUID
		lastID  uuid.UUID
	)
	for {
		var recs []SearchDocumentRecord
		query := x.db.WithContext(ctx).
			Order("resource_id").
			Limit(executeBatchSize)
		if len(types) > 0 {
			query = query.Where("resource_type IN ?", types)
		}
		if lastID != uuid.Nil {
			query = query.Where("resource_id > ?", lastID)
		}
		if err := query.Find(&recs).Error; err != nil {
			return nil, fmt.Errorf("fetch search documents: %w", err)
		}
		if len(recs) == 0 {
			break
		}

		for _, rec := range recs {
			lastID = rec.ResourceID
			var doc heritage.Document
			if err := json.Unmarshal(rec.Document, &doc); err != nil {
				return nil, fmt.Errorf("unmarshal document %s: %w", rec.ResourceID, err)
			}
			if q.Matches(&doc) {
				matched = append(matched, doc.ResourceID)
				if len(matched) >= limit {
					return matched, nil
				}
			}
		}
		if len(recs) < executeBatchSize {
			break
		}
	}
	return matched, nil
}

func (x *PostgresIndex) IndexDocument(ctx context.Context, doc *heritage.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ResourceID, err)
	}
	rec := SearchDocumentRecord{
		ResourceID:   doc.ResourceID,
		ResourceType: string(doc.Type),
		Document:     datatypes.JSON(raw),
		UpdatedAt:    time.Now(),
	}
	return x.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "resource_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"resource_type", "document", "updated_at"}),
		}).
		Create(&rec).Error
}

func (x *PostgresIndex) Remove(ctx context.Context, resourceID uuid.UUID) error {
	return x.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Delete(&SearchDocumentRecord{}).Error
}
