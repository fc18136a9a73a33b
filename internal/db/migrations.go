package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS postgis;`,

	`CREATE TABLE IF NOT EXISTS management_agencies (
		code        TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,

	`CREATE TABLE IF NOT EXISTS management_areas (
		id           UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name         TEXT NOT NULL,
		category     TEXT,
		agency_code  TEXT REFERENCES management_agencies(code) ON DELETE SET NULL,
		nickname     TEXT,
		display_name TEXT NOT NULL DEFAULT '',
		geom         geometry(MultiPolygon, 4326),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_management_areas_geom ON management_areas USING GIST(geom);`,
	`CREATE INDEX IF NOT EXISTS idx_management_areas_category ON management_areas(category);`,
	`CREATE INDEX IF NOT EXISTS idx_management_areas_name ON management_areas(name);`,

	`CREATE TABLE IF NOT EXISTS management_area_groups (
		id         UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_management_area_groups_name ON management_area_groups(name);`,

	`CREATE TABLE IF NOT EXISTS management_area_group_members (
		group_id UUID REFERENCES management_area_groups(id) ON DELETE CASCADE,
		area_id  UUID REFERENCES management_areas(id) ON DELETE CASCADE,
		PRIMARY KEY (group_id, area_id)
	);`,

	`CREATE TABLE IF NOT EXISTS users (
		id           UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		username     TEXT NOT NULL,
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username ON users(username);`,

	`CREATE TABLE IF NOT EXISTS land_managers (
		user_id     UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		access_mode TEXT NOT NULL DEFAULT 'NONE',
		agency_code TEXT REFERENCES management_agencies(code) ON DELETE SET NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,

	`CREATE TABLE IF NOT EXISTS land_manager_areas (
		user_id UUID REFERENCES land_managers(user_id) ON DELETE CASCADE,
		area_id UUID REFERENCES management_areas(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, area_id)
	);`,

	`CREATE TABLE IF NOT EXISTS land_manager_groups (
		user_id  UUID REFERENCES land_managers(user_id) ON DELETE CASCADE,
		group_id UUID REFERENCES management_area_groups(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, group_id)
	);`,

	`CREATE TABLE IF NOT EXISTS scouts (
		user_id     UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		access_mode TEXT NOT NULL DEFAULT 'ASSIGNEDTO',
		regions     TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,

	`CREATE TABLE IF NOT EXISTS resources (
		id            UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		resource_type TEXT NOT NULL,
		name          TEXT,
		geometry      JSONB,
		attributes    JSONB,
		geom          geometry(Geometry, 4326),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_resources_type ON resources(resource_type);`,
	`CREATE INDEX IF NOT EXISTS idx_resources_geom ON resources USING GIST(geom);`,

	// Logical attribute name -> physical group id, per resource
	// type. The same logical name deliberately maps to a different
	// group id on every type.
	`CREATE TABLE IF NOT EXISTS attribute_groups (
		resource_type  TEXT NOT NULL,
		attribute_name TEXT NOT NULL,
		group_id       TEXT NOT NULL,
		PRIMARY KEY (resource_type, attribute_name)
	);`,
	`INSERT INTO attribute_groups (resource_type, attribute_name, group_id) VALUES
		('Archaeological Site', 'Assigned To',       'as-assigned-to'),
		('Archaeological Site', 'Management Area',   'as-mgmt-area'),
		('Archaeological Site', 'Management Agency', 'as-mgmt-agency'),
		('Archaeological Site', 'FPAN Region',       'as-fpan-region'),
		('Archaeological Site', 'County',            'as-county'),
		('Historic Cemetery',   'Management Area',   'hc-mgmt-area'),
		('Historic Cemetery',   'Management Agency', 'hc-mgmt-agency'),
		('Historic Cemetery',   'FPAN Region',       'hc-fpan-region'),
		('Historic Cemetery',   'County',            'hc-county'),
		('Historic Structure',  'Management Area',   'hs-mgmt-area'),
		('Historic Structure',  'Management Agency', 'hs-mgmt-agency'),
		('Historic Structure',  'FPAN Region',       'hs-fpan-region'),
		('Historic Structure',  'County',            'hs-county'),
		('Scout Report',        'Site',              'sr-site')
	ON CONFLICT (resource_type, attribute_name) DO NOTHING;`,

	`CREATE TABLE IF NOT EXISTS search_documents (
		resource_id   UUID PRIMARY KEY,
		resource_type TEXT NOT NULL,
		document      JSONB NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_search_documents_type ON search_documents(resource_type);`,

	`CREATE TABLE IF NOT EXISTS report_photos (
		id          UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		report_id   UUID NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		url         TEXT NOT NULL,
		content_type TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_report_photos_report_id ON report_photos(report_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
