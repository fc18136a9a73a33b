package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hms-service/internal/domain/lands"
	"hms-service/internal/spatial"
)

type AreaRepository struct {
	db *gorm.DB
}

func NewAreaRepository(db *gorm.DB) *AreaRepository {
	return &AreaRepository{db: db}
}

func (ManagementAgencyRecord) TableName() string {
	return "management_agencies"
}

func (ManagementAreaRecord) TableName() string {
	return "management_areas"
}

func (ManagementAreaGroupRecord) TableName() string {
	return "management_area_groups"
}

func (AreaGroupMember) TableName() string {
	return "management_area_group_members"
}

type ManagementAgencyRecord struct {
	Code      string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
}

type ManagementAreaRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Name        string    `gorm:"not null"`
	Category    *string
	AgencyCode  *string
	Nickname    *string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ManagementAreaGroupRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Name      string    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

type AreaGroupMember struct {
	GroupID uuid.UUID `gorm:"type:uuid;primaryKey"`
	AreaID  uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// CreateArea persists an area with its geometry. The display name is
// recomputed here on every save, and the geometry goes through
// ST_MakeValid so only repairable input is stored.
func (r *AreaRepository) CreateArea(ctx context.Context, area *lands.ManagementArea) error {
	if area.ID == uuid.Nil {
		area.ID = uuid.New()
	}
	area.DisplayName = area.ComputeDisplayName()

	rec := ManagementAreaRecord{
		ID:          area.ID,
		Name:        area.Name,
		DisplayName: area.DisplayName,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if area.Category != "" {
		cat := string(area.Category)
		rec.Category = &cat
	}
	if area.Agency != nil {
		rec.AgencyCode = &area.Agency.Code
	}
	if area.Nickname != "" {
		rec.Nickname = &area.Nickname
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create management area: %w", err)
		}
		if area.Geometry == nil {
			return nil
		}
		raw, err := json.Marshal(area.Geometry)
		if err != nil {
			return fmt.Errorf("marshal area geometry: %w", err)
		}
		err = tx.Exec(
			`UPDATE management_areas
			 SET geom = ST_Multi(ST_MakeValid(ST_SetSRID(ST_GeomFromGeoJSON(?), 4326)))
			 WHERE id = ?`,
			string(raw), area.ID,
		).Error
		if err != nil {
			return classifyGeometryErr(err)
		}
		return nil
	})
}

func (r *AreaRepository) GetArea(ctx context.Context, id uuid.UUID) (*lands.ManagementArea, error) {
	var rec ManagementAreaRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return r.toDomain(ctx, rec)
}

// IntersectingAreas finds every area whose polygon intersects the
// stored geometry of a resource. The resource geometry is repaired
// with ST_MakeValid before the predicate runs; input PostGIS still
// rejects is surfaced as ErrBadGeometry.
func (r *AreaRepository) IntersectingAreas(ctx context.Context, resourceID uuid.UUID) ([]lands.ManagementArea, error) {
	var recs []ManagementAreaRecord
	err := r.db.WithContext(ctx).Raw(
		`SELECT ma.id, ma.name, ma.category, ma.agency_code, ma.nickname, ma.display_name
		 FROM management_areas ma
		 JOIN resources res ON res.id = ?
		 WHERE res.geom IS NOT NULL
		   AND ma.geom IS NOT NULL
		   AND ST_Intersects(ma.geom, ST_MakeValid(res.geom))`,
		resourceID,
	).Scan(&recs).Error
	if err != nil {
		return nil, classifyGeometryErr(err)
	}

	areas := make([]lands.ManagementArea, 0, len(recs))
	for _, rec := range recs {
		a, err := r.toDomain(ctx, rec)
		if err != nil {
			return nil, err
		}
		areas = append(areas, *a)
	}
	return areas, nil
}

// IntersectingResourceIDs is the inverse query: every resource whose
// geometry intersects the given area.
func (r *AreaRepository) IntersectingResourceIDs(ctx context.Context, areaID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(
		`SELECT res.id
		 FROM resources res
		 JOIN management_areas ma ON ma.id = ?
		 WHERE res.geom IS NOT NULL
		   AND ma.geom IS NOT NULL
		   AND ST_Intersects(ST_MakeValid(res.geom), ma.geom)`,
		areaID,
	).Scan(&ids).Error
	if err != nil {
		return nil, classifyGeometryErr(err)
	}
	return ids, nil
}

// GroupsWithAreas loads the named groups with their member areas,
// used when expanding a land manager's grants.
func (r *AreaRepository) GroupsWithAreas(ctx context.Context, groupIDs []uuid.UUID) ([]lands.ManagementAreaGroup, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var recs []ManagementAreaGroupRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", groupIDs).Find(&recs).Error; err != nil {
		return nil, err
	}

	groups := make([]lands.ManagementAreaGroup, 0, len(recs))
	for _, rec := range recs {
		var areaRecs []ManagementAreaRecord
		err := r.db.WithContext(ctx).
			Table("management_areas").
			Joins("JOIN management_area_group_members m ON m.area_id = management_areas.id").
			Where("m.group_id = ?", rec.ID).
			Find(&areaRecs).Error
		if err != nil {
			return nil, err
		}
		g := lands.ManagementAreaGroup{ID: rec.ID, Name: rec.Name}
		for _, ar := range areaRecs {
			a, err := r.toDomain(ctx, ar)
			if err != nil {
				return nil, err
			}
			g.Areas = append(g.Areas, *a)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (r *AreaRepository) GetAgency(ctx context.Context, code string) (*lands.ManagementAgency, error) {
	var rec ManagementAgencyRecord
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&rec).Error; err != nil {
		return nil, err
	}
	return &lands.ManagementAgency{Code: rec.Code, Name: rec.Name}, nil
}

func (r *AreaRepository) toDomain(ctx context.Context, rec ManagementAreaRecord) (*lands.ManagementArea, error) {
	a := &lands.ManagementArea{
		ID:          rec.ID,
		Name:        rec.Name,
		DisplayName: rec.DisplayName,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if rec.Category != nil {
		a.Category = lands.AreaCategory(*rec.Category)
	}
	if rec.Nickname != nil {
		a.Nickname = *rec.Nickname
	}
	if rec.AgencyCode != nil {
		agency, err := r.GetAgency(ctx, *rec.AgencyCode)
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}
		// A dangling agency code is dropped rather than failing
		// the lookup.
		if err == nil {
			a.Agency = agency
		}
	}
	return a, nil
}

func classifyGeometryErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid geometry") ||
		strings.Contains(msg, "parseexception") ||
		strings.Contains(msg, "self-intersection") ||
		strings.Contains(msg, "topologyexception") {
		return fmt.Errorf("%w: %v", spatial.ErrBadGeometry, err)
	}
	return err
}
