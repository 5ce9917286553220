package migrations

import (
	"context"
	"database/sql"
)

// createLocalStorageTable creates the local_storage table.
// Each row is one key of one client's local storage.
func createLocalStorageTable() Migration {
	return Migration{
		Name:        "create_local_storage_table",
		Description: "Creates the local_storage table",
		TableName:   "local_storage",
		RunSQL: func(ctx context.Context, tx *sql.Tx) error {
			query := `
				CREATE TABLE IF NOT EXISTS local_storage (
					client_id VARCHAR(64) NOT NULL,
					storage_key VARCHAR(191) NOT NULL,
					storage_value TEXT NOT NULL,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (client_id, storage_key)
				)
			`
			_, err := tx.ExecContext(ctx, query)
			return err
		},
	}
}

// createResourcesTable creates the resources table
func createResourcesTable() Migration {
	return Migration{
		Name:        "create_resources_table",
		Description: "Creates the resources table",
		TableName:   "resources",
		RunSQL: func(ctx context.Context, tx *sql.Tx) error {
			query := `
				CREATE TABLE IF NOT EXISTS resources (
					resource_id VARCHAR(36) PRIMARY KEY,
					mimetype VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				)
			`
			_, err := tx.ExecContext(ctx, query)
			return err
		},
	}
}

// createResourceTagsTable creates the resource_tags table.
// The primary key serves lookups by tag, the unique constraint lookups by resource.
func createResourceTagsTable() Migration {
	return Migration{
		Name:        "create_resource_tags_table",
		Description: "Creates the resource_tags table",
		TableName:   "resource_tags",
		RunSQL: func(ctx context.Context, tx *sql.Tx) error {
			query := `
				CREATE TABLE IF NOT EXISTS resource_tags (
					tag VARCHAR(191) NOT NULL,
					resource_id VARCHAR(36) NOT NULL,
					PRIMARY KEY (tag, resource_id),
					CONSTRAINT idx_resource_tag UNIQUE (resource_id, tag),
					CONSTRAINT fk_resource FOREIGN KEY (resource_id) REFERENCES resources(resource_id) ON DELETE CASCADE
				)
			`
			_, err := tx.ExecContext(ctx, query)
			return err
		},
	}
}
