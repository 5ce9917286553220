package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/database"
	"github.com/blubywaff/ftag/internal/models"
	"github.com/blubywaff/ftag/internal/utils"
)

// ResourceRepository defines methods for interacting with resources and their tags
type ResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, id string) (*models.Resource, error)
	ChangeTags(ctx context.Context, id string, add, del models.TagSet) error
	Query(ctx context.Context, q models.Query) ([]models.Resource, int, error)
	ListIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// SQLResourceRepository is a database/sql implementation of ResourceRepository
type SQLResourceRepository struct {
	db *database.Pool
}

// NewResourceRepository creates a new ResourceRepository
func NewResourceRepository(db *database.Pool) ResourceRepository {
	return &SQLResourceRepository{
		db: db,
	}
}

// Create inserts a resource and its tags in one transaction
func (r *SQLResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	createdAt := resource.Created()
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.UTC().Truncate(time.Second)
	resource.CreatedAt = models.FormatTime(createdAt)

	tags := resource.TagSet()

	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		startTime := time.Now()

		query := r.db.Rebind(`
            INSERT INTO resources (resource_id, mimetype, created_at)
            VALUES (?, ?, ?)
        `)

		_, err := tx.ExecContext(ctx, query, resource.Id, resource.Mimetype, createdAt)

		utils.LogDBQuery(query, []interface{}{resource.Id, resource.Mimetype, createdAt}, time.Since(startTime), err)

		if err != nil {
			if utils.IsDuplicateKeyError(err) {
				return utils.NewDuplicateError("Resource", "id", resource.Id)
			}
			return fmt.Errorf("failed to create resource: %w", err)
		}

		return r.insertTags(ctx, tx, resource.Id, tags.Slice())
	})
	if err != nil {
		return err
	}

	resource.Tags = tags.Slice()

	log.Info().
		Str("resource_id", resource.Id).
		Str("mimetype", resource.Mimetype).
		Int("tags", len(resource.Tags)).
		Msg("Resource created")

	return nil
}

// GetByID retrieves a resource together with its sorted tags
func (r *SQLResourceRepository) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	startTime := time.Now()

	query := r.db.Rebind(`
        SELECT resource_id, mimetype, created_at
        FROM resources
        WHERE resource_id = ?
    `)

	var createdAt time.Time
	resource := &models.Resource{Tags: []string{}}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&resource.Id,
		&resource.Mimetype,
		&createdAt,
	)

	utils.LogDBQuery(query, []interface{}{id}, time.Since(startTime), ignoreNoRows(err))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("Resource", id)
		}
		return nil, fmt.Errorf("failed to get resource by ID: %w", err)
	}
	resource.CreatedAt = models.FormatTime(createdAt)

	tags, err := r.tagsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if t, ok := tags[id]; ok {
		resource.Tags = t
	}

	return resource, nil
}

// ChangeTags attaches add and then detaches del, so a tag in both ends up detached
func (r *SQLResourceRepository) ChangeTags(ctx context.Context, id string, add, del models.TagSet) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		existing, err := r.currentTags(ctx, tx, id)
		if err != nil {
			return err
		}

		var toAdd []string
		for _, tag := range add.Slice() {
			if !existing.Contains(tag) && !del.Contains(tag) {
				toAdd = append(toAdd, tag)
			}
		}
		if err := r.insertTags(ctx, tx, id, toAdd); err != nil {
			return err
		}

		var toDel []string
		for _, tag := range del.Slice() {
			if existing.Contains(tag) {
				toDel = append(toDel, tag)
			}
		}
		if len(toDel) == 0 {
			return nil
		}

		startTime := time.Now()
		query := r.db.Rebind(`DELETE FROM resource_tags WHERE resource_id = ? AND tag IN (` + placeholders(len(toDel)) + `)`)
		args := append([]interface{}{id}, stringArgs(toDel)...)

		_, err = tx.ExecContext(ctx, query, args...)

		utils.LogDBQuery(query, args, time.Since(startTime), err)

		if err != nil {
			return fmt.Errorf("failed to remove resource tags: %w", err)
		}
		return nil
	})
}

// currentTags verifies the resource exists and returns its current tags
func (r *SQLResourceRepository) currentTags(ctx context.Context, tx *sql.Tx, id string) (models.TagSet, error) {
	startTime := time.Now()

	query := r.db.Rebind(`SELECT COUNT(*) FROM resources WHERE resource_id = ?`)

	var count int
	err := tx.QueryRowContext(ctx, query, id).Scan(&count)

	utils.LogDBQuery(query, []interface{}{id}, time.Since(startTime), err)

	if err != nil {
		return models.TagSet{}, fmt.Errorf("failed to check resource: %w", err)
	}
	if count == 0 {
		return models.TagSet{}, utils.NewNotFoundError("Resource", id)
	}

	startTime = time.Now()
	query = r.db.Rebind(`SELECT tag FROM resource_tags WHERE resource_id = ?`)

	rows, err := tx.QueryContext(ctx, query, id)

	utils.LogDBQuery(query, []interface{}{id}, time.Since(startTime), err)

	if err != nil {
		return models.TagSet{}, fmt.Errorf("failed to get resource tags: %w", err)
	}
	defer closeRows(rows)

	var existing models.TagSet
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return models.TagSet{}, fmt.Errorf("failed to scan resource tag: %w", err)
		}
		// Stored tags were validated on the way in
		_ = existing.Add(tag)
	}

	return existing, rows.Err()
}

// insertTags attaches tags to a resource inside tx
func (r *SQLResourceRepository) insertTags(ctx context.Context, tx *sql.Tx, id string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	startTime := time.Now()

	values := make([]string, len(tags))
	args := make([]interface{}, 0, len(tags)*2)
	for i, tag := range tags {
		values[i] = "(?, ?)"
		args = append(args, tag, id)
	}

	query := r.db.Rebind(`INSERT INTO resource_tags (tag, resource_id) VALUES ` + strings.Join(values, ", "))

	_, err := tx.ExecContext(ctx, query, args...)

	utils.LogDBQuery(query, args, time.Since(startTime), err)

	if err != nil {
		return fmt.Errorf("failed to add resource tags: %w", err)
	}
	return nil
}

// Query returns one page of resources matching q, newest first, and the total match count
func (r *SQLResourceRepository) Query(ctx context.Context, q models.Query) ([]models.Resource, int, error) {
	where, whereArgs := queryFilter(q)

	startTime := time.Now()
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM resources r` + where)

	var total int
	err := r.db.QueryRowContext(ctx, countQuery, whereArgs...).Scan(&total)

	utils.LogDBQuery(countQuery, whereArgs, time.Since(startTime), err)

	if err != nil {
		return nil, 0, fmt.Errorf("failed to count resources: %w", err)
	}
	if total == 0 || q.Offset >= total {
		return []models.Resource{}, total, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = math.MaxInt32
	}

	startTime = time.Now()
	query := r.db.Rebind(`
        SELECT r.resource_id, r.mimetype, r.created_at
        FROM resources r` + where + `
        ORDER BY r.created_at DESC, r.resource_id ASC
        LIMIT ? OFFSET ?
    `)
	args := append(append([]interface{}{}, whereArgs...), limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)

	utils.LogDBQuery(query, args, time.Since(startTime), err)

	if err != nil {
		return nil, 0, fmt.Errorf("failed to query resources: %w", err)
	}
	defer closeRows(rows)

	resources := []models.Resource{}
	var ids []string
	for rows.Next() {
		var createdAt time.Time
		resource := models.Resource{Tags: []string{}}
		if err := rows.Scan(&resource.Id, &resource.Mimetype, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan resource: %w", err)
		}
		resource.CreatedAt = models.FormatTime(createdAt)
		resources = append(resources, resource)
		ids = append(ids, resource.Id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating resources: %w", err)
	}

	tags, err := r.tagsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range resources {
		if t, ok := tags[resources[i].Id]; ok {
			resources[i].Tags = t
		}
	}

	return resources, total, nil
}

// queryFilter renders the include and exclude conditions of q as a WHERE clause
func queryFilter(q models.Query) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	if include := q.Include.Slice(); len(include) > 0 {
		conds = append(conds, `(SELECT COUNT(*) FROM resource_tags t WHERE t.resource_id = r.resource_id AND t.tag IN (`+placeholders(len(include))+`)) = ?`)
		args = append(args, stringArgs(include)...)
		args = append(args, len(include))
	}

	if exclude := q.Exclude.Slice(); len(exclude) > 0 {
		conds = append(conds, `NOT EXISTS (SELECT 1 FROM resource_tags t WHERE t.resource_id = r.resource_id AND t.tag IN (`+placeholders(len(exclude))+`))`)
		args = append(args, stringArgs(exclude)...)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// tagsFor loads the sorted tags of each listed resource
func (r *SQLResourceRepository) tagsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	tags := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}

	startTime := time.Now()
	query := r.db.Rebind(`
        SELECT resource_id, tag
        FROM resource_tags
        WHERE resource_id IN (` + placeholders(len(ids)) + `)
        ORDER BY resource_id, tag
    `)
	args := stringArgs(ids)

	rows, err := r.db.QueryContext(ctx, query, args...)

	utils.LogDBQuery(query, args, time.Since(startTime), err)

	if err != nil {
		return nil, fmt.Errorf("failed to get resource tags: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan resource tag: %w", err)
		}
		tags[id] = append(tags[id], tag)
	}

	return tags, rows.Err()
}

// ListIDs returns the ids of all resources in ascending order
func (r *SQLResourceRepository) ListIDs(ctx context.Context) ([]string, error) {
	startTime := time.Now()

	query := `SELECT resource_id FROM resources ORDER BY resource_id`

	rows, err := r.db.QueryContext(ctx, query)

	utils.LogDBQuery(query, nil, time.Since(startTime), err)

	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer closeRows(rows)

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan resource id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Delete removes a resource and its tags
func (r *SQLResourceRepository) Delete(ctx context.Context, id string) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		startTime := time.Now()
		query := r.db.Rebind(`DELETE FROM resource_tags WHERE resource_id = ?`)

		_, err := tx.ExecContext(ctx, query, id)

		utils.LogDBQuery(query, []interface{}{id}, time.Since(startTime), err)

		if err != nil {
			return fmt.Errorf("failed to delete resource tags: %w", err)
		}

		startTime = time.Now()
		query = r.db.Rebind(`DELETE FROM resources WHERE resource_id = ?`)

		result, err := tx.ExecContext(ctx, query, id)

		utils.LogDBQuery(query, []interface{}{id}, time.Since(startTime), err)

		if err != nil {
			return fmt.Errorf("failed to delete resource: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return utils.NewNotFoundError("Resource", id)
		}

		log.Info().Str("resource_id", id).Msg("Resource deleted")
		return nil
	})
}

// placeholders returns n comma separated '?' markers
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close rows")
	}
}
