package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/search"
)

type ResourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (ResourceRecord) TableName() string {
	return "resources"
}

func (AttributeGroupRecord) TableName() string {
	return "attribute_groups"
}

func (ReportPhotoRecord) TableName() string {
	return "report_photos"
}

type ResourceRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	ResourceType string    `gorm:"not null"`
	Name         string
	Geometry     datatypes.JSON `gorm:"type:jsonb"`
	Attributes   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AttributeGroupRecord struct {
	ResourceType  string `gorm:"primaryKey"`
	AttributeName string `gorm:"primaryKey"`
	GroupID       string `gorm:"not null"`
}

type ReportPhotoRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	ReportID    uuid.UUID `gorm:"type:uuid;not null"`
	URL         string    `gorm:"not null"`
	ContentType *string
	CreatedAt   time.Time
}

func (r *ResourceRepository) CreateResource(ctx context.Context, res *heritage.Resource) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	rec := ResourceRecord{
		ID:           res.ID,
		ResourceType: string(res.Type),
		Name:         res.Name,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if res.Attributes != nil {
		raw, err := json.Marshal(res.Attributes)
		if err != nil {
			return fmt.Errorf("marshal attributes: %w", err)
		}
		rec.Attributes = datatypes.JSON(raw)
	}
	if res.Geometry != nil {
		raw, err := json.Marshal(res.Geometry)
		if err != nil {
			return fmt.Errorf("marshal geometry: %w", err)
		}
		rec.Geometry = datatypes.JSON(raw)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create resource: %w", err)
		}
		if res.Geometry == nil {
			return nil
		}
		// Mirror the GeoJSON into the PostGIS column so the
		// intersection queries can use the spatial index.
		return tx.Exec(
			`UPDATE resources
			 SET geom = ST_MakeValid(ST_SetSRID(ST_GeomFromGeoJSON(?), 4326))
			 WHERE id = ?`,
			string(rec.Geometry), res.ID,
		).Error
	})
}

func (r *ResourceRepository) GetResource(ctx context.Context, id uuid.UUID) (*heritage.Resource, error) {
	var rec ResourceRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return recordToResource(rec)
}

func (r *ResourceRepository) GetResources(ctx context.Context, ids []uuid.UUID) ([]heritage.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recs []ResourceRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]heritage.Resource, 0, len(recs))
	for _, rec := range recs {
		res, err := recordToResource(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}

func (r *ResourceRepository) ListByType(ctx context.Context, rt heritage.ResourceType) ([]heritage.Resource, error) {
	var recs []ResourceRecord
	err := r.db.WithContext(ctx).
		Where("resource_type = ?", string(rt)).
		Order("created_at").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]heritage.Resource, 0, len(recs))
	for _, rec := range recs {
		res, err := recordToResource(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}

// SetDerivedAreas replaces the four spatial-join attributes in one
// write. The surrounding read-modify-write is serialized by the
// spatial engine's per-resource lock; row locking here guards against
// writers outside the engine.
func (r *ResourceRepository) SetDerivedAreas(ctx context.Context, id uuid.UUID, derived heritage.DerivedAreas) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec ResourceRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&rec).Error
		if err != nil {
			return err
		}

		attrs := map[string][]string{}
		if len(rec.Attributes) > 0 {
			if err := json.Unmarshal(rec.Attributes, &attrs); err != nil {
				return fmt.Errorf("unmarshal attributes for %s: %w", id, err)
			}
		}
		attrs[heritage.AttrManagementArea] = derived.Areas
		attrs[heritage.AttrManagementAgency] = derived.Agencies
		attrs[heritage.AttrFPANRegion] = derived.Regions
		attrs[heritage.AttrCounty] = derived.Counties

		raw, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("marshal attributes for %s: %w", id, err)
		}
		return tx.Model(&ResourceRecord{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"attributes": datatypes.JSON(raw),
				"updated_at": time.Now(),
			}).Error
	})
}

// AddReportPhoto records an uploaded photo against a scout report.
func (r *ResourceRepository) AddReportPhoto(ctx context.Context, reportID uuid.UUID, url, contentType string) (uuid.UUID, error) {
	rec := ReportPhotoRecord{
		ID:        uuid.New(),
		ReportID:  reportID,
		URL:       url,
		CreatedAt: time.Now(),
	}
	if contentType != "" {
		rec.ContentType = &contentType
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to record report photo: %w", err)
	}
	return rec.ID, nil
}

// LookupGroupID resolves the physical group id one resource type
// stores a logical attribute under. Satisfies search.GroupSource; a
// missing row is ErrUnknownAttribute, never a passthrough.
func (r *ResourceRepository) LookupGroupID(rt heritage.ResourceType, name string) (string, error) {
	var rec AttributeGroupRecord
	err := r.db.
		Where("resource_type = ? AND attribute_name = ?", string(rt), name).
		First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return "", fmt.Errorf("%w: %s / %s", search.ErrUnknownAttribute, rt, name)
	}
	if err != nil {
		return "", err
	}
	return rec.GroupID, nil
}

func recordToResource(rec ResourceRecord) (*heritage.Resource, error) {
	res := &heritage.Resource{
		ID:        rec.ID,
		Type:      heritage.ResourceType(rec.ResourceType),
		Name:      rec.Name,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if len(rec.Attributes) > 0 {
		if err := json.Unmarshal(rec.Attributes, &res.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal attributes for %s: %w", rec.ID, err)
		}
	}
	if len(rec.Geometry) > 0 {
		var geom geojson.Geometry
		if err := json.Unmarshal(rec.Geometry, &geom); err != nil {
			return nil, fmt.Errorf("unmarshal geometry for %s: %w", rec.ID, err)
		}
		res.Geometry = &geom
	}
	return res, nil
}
