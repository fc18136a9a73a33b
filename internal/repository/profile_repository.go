package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hms-service/internal/domain/users"
)

type ProfileRepository struct {
	db    *gorm.DB
	areas *AreaRepository
}

func NewProfileRepository(db *gorm.DB, areas *AreaRepository) *ProfileRepository {
	return &ProfileRepository{db: db, areas: areas}
}

func (UserRecord) TableName() string {
	return "users"
}

func (LandManagerRecord) TableName() string {
	return "land_managers"
}

func (LandManagerAreaGrant) TableName() string {
	return "land_manager_areas"
}

func (LandManagerGroupGrant) TableName() string {
	return "land_manager_groups"
}

func (ScoutRecord) TableName() string {
	return "scouts"
}

type UserRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Username    string    `gorm:"not null;uniqueIndex"`
	IsSuperuser bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

type LandManagerRecord struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccessMode string    `gorm:"not null"`
	AgencyCode *string
	CreatedAt  time.Time
}

type LandManagerAreaGrant struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	AreaID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

type LandManagerGroupGrant struct {
	UserID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	GroupID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

type ScoutRecord struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccessMode string    `gorm:"not null"`
	Regions    *string
	CreatedAt  time.Time
}

// LoadUser resolves an account with whichever profiles it carries,
// grants expanded. Returns nil without error for an unknown username
// so callers fall through to anonymous handling.
func (r *ProfileRepository) LoadUser(ctx context.Context, username string) (*users.User, error) {
	var rec UserRecord
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u := &users.User{
		ID:          rec.ID,
		Username:    rec.Username,
		IsSuperuser: rec.IsSuperuser,
	}

	lm, err := r.loadLandManager(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	u.LandManager = lm

	scout, err := r.loadScout(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	u.Scout = scout

	return u, nil
}

func (r *ProfileRepository) loadLandManager(ctx context.Context, userID uuid.UUID) (*users.LandManagerProfile, error) {
	var rec LandManagerRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p := &users.LandManagerProfile{
		UserID: rec.UserID,
		Mode:   users.AccessMode(rec.AccessMode),
	}
	if rec.AgencyCode != nil {
		agency, err := r.areas.GetAgency(ctx, *rec.AgencyCode)
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}
		if err == nil {
			p.Agency = agency
		}
	}

	var areaGrants []LandManagerAreaGrant
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&areaGrants).Error; err != nil {
		return nil, err
	}
	for _, grant := range areaGrants {
		area, err := r.areas.GetArea(ctx, grant.AreaID)
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		p.Areas = append(p.Areas, *area)
	}

	var groupGrants []LandManagerGroupGrant
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&groupGrants).Error; err != nil {
		return nil, err
	}
	if len(groupGrants) > 0 {
		ids := make([]uuid.UUID, 0, len(groupGrants))
		for _, grant := range groupGrants {
			ids = append(ids, grant.GroupID)
		}
		groups, err := r.areas.GroupsWithAreas(ctx, ids)
		if err != nil {
			return nil, err
		}
		p.Groups = groups
	}

	return p, nil
}

func (r *ProfileRepository) loadScout(ctx context.Context, userID uuid.UUID) (*users.ScoutProfile, error) {
	var rec ScoutRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p := &users.ScoutProfile{
		UserID: rec.UserID,
		Mode:   users.AccessMode(rec.AccessMode),
	}
	if rec.Regions != nil && *rec.Regions != "" {
		for _, region := range strings.Split(*rec.Regions, ",") {
			if region = strings.TrimSpace(region); region != "" {
				p.Regions = append(p.Regions, region)
			}
		}
	}
	return p, nil
}
