package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blubywaff/ftag/internal/database"
	"github.com/blubywaff/ftag/internal/models"
	"github.com/blubywaff/ftag/internal/repository"
	"github.com/blubywaff/ftag/internal/utils"
)

// setupResourceRepositoryTest creates a repository over a mocked database
func setupResourceRepositoryTest(t *testing.T) (repository.ResourceRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := repository.NewResourceRepository(&database.Pool{DB: db})

	return repo, mock, func() {
		db.Close()
	}
}

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestResourceRepository_Create(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	resource := models.NewResource("id-1", "image/png", created, models.NewTagSet("dogs", "cats"))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO resources \\(resource_id, mimetype, created_at\\)").
		WithArgs("id-1", "image/png", created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO resource_tags (tag, resource_id) VALUES (?, ?), (?, ?)")).
		WithArgs("cats", "id-1", "dogs", "id-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), &resource)

	assert.NoError(t, err)
	assert.Equal(t, []string{"cats", "dogs"}, resource.Tags)
	assert.Equal(t, "2024-03-01T12:00:00Z", resource.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_Create_NoTags(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	resource := models.NewResource("id-1", "text/plain; charset=utf-8", created, models.TagSet{})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO resources").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.Create(context.Background(), &resource))
	assert.Equal(t, []string{}, resource.Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_Create_Duplicate(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	resource := models.NewResource("id-1", "image/png", created, models.TagSet{})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO resources").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &resource)

	require.Error(t, err)
	assert.True(t, utils.IsDuplicateError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_Create_TagFailureRollsBack(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	resource := models.NewResource("id-1", "image/png", created, models.NewTagSet("cats"))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO resources").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO resource_tags").
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &resource)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_GetByID(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT resource_id, mimetype, created_at FROM resources WHERE resource_id = \\?").
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows([]string{"resource_id", "mimetype", "created_at"}).
			AddRow("id-1", "image/png", created))
	mock.ExpectQuery("SELECT resource_id, tag FROM resource_tags WHERE resource_id IN \\(\\?\\)").
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows([]string{"resource_id", "tag"}).
			AddRow("id-1", "cats").
			AddRow("id-1", "dogs"))

	resource, err := repo.GetByID(context.Background(), "id-1")

	require.NoError(t, err)
	assert.Equal(t, models.Resource{
		Id:        "id-1",
		Mimetype:  "image/png",
		CreatedAt: "2024-03-01T12:00:00Z",
		Tags:      []string{"cats", "dogs"},
	}, *resource)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_GetByID_NoTags(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT resource_id, mimetype, created_at FROM resources").
		WillReturnRows(sqlmock.NewRows([]string{"resource_id", "mimetype", "created_at"}).
			AddRow("id-1", "image/png", created))
	mock.ExpectQuery("SELECT resource_id, tag FROM resource_tags").
		WillReturnRows(sqlmock.NewRows([]string{"resource_id", "tag"}))

	resource, err := repo.GetByID(context.Background(), "id-1")

	require.NoError(t, err)
	assert.NotNil(t, resource.Tags)
	assert.Empty(t, resource.Tags)
}

func TestResourceRepository_GetByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT resource_id, mimetype, created_at FROM resources").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	resource, err := repo.GetByID(context.Background(), "missing")

	assert.Nil(t, resource)
	assert.True(t, utils.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_ChangeTags(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM resources WHERE resource_id = \\?").
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT tag FROM resource_tags WHERE resource_id = \\?").
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows([]string{"tag"}).AddRow("cats").AddRow("dogs"))
	// cats is already attached and both is added then removed
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO resource_tags (tag, resource_id) VALUES (?, ?)")).
		WithArgs("birds", "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM resource_tags WHERE resource_id = ? AND tag IN (?)")).
		WithArgs("id-1", "dogs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ChangeTags(context.Background(), "id-1",
		models.NewTagSet("cats", "birds", "both"),
		models.NewTagSet("dogs", "both", "fish"))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_ChangeTags_NotFound(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM resources").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := repo.ChangeTags(context.Background(), "missing", models.NewTagSet("cats"), models.TagSet{})

	assert.True(t, utils.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_Query(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	q := models.Query{
		Include: models.NewTagSet("cats"),
		Exclude: models.NewTagSet("nsfw", "dogs"),
		Offset:  1,
		Limit:   1,
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM resources r WHERE (SELECT COUNT(*) FROM resource_tags t WHERE t.resource_id = r.resource_id AND t.tag IN (?)) = ? AND NOT EXISTS (SELECT 1 FROM resource_tags t WHERE t.resource_id = r.resource_id AND t.tag IN (?, ?))")).
		WithArgs("cats", 1, "dogs", "nsfw").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY r.created_at DESC, r.resource_id ASC LIMIT ? OFFSET ?")).
		WithArgs("cats", 1, "dogs", "nsfw", 1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"resource_id", "mimetype", "created_at"}).
			AddRow("id-2", "image/gif", created))
	mock.ExpectQuery("SELECT resource_id, tag FROM resource_tags").
		WithArgs("id-2").
		WillReturnRows(sqlmock.NewRows([]string{"resource_id", "tag"}).AddRow("id-2", "cats"))

	resources, total, err := repo.Query(context.Background(), q)

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, resources, 1)
	assert.Equal(t, "id-2", resources[0].Id)
	assert.Equal(t, []string{"cats"}, resources[0].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_Query_NoFilter(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM resources r")).
		WithArgs().
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	resources, total, err := repo.Query(context.Background(), models.Query{Limit: 1})

	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, resources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_Query_OffsetPastEnd(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	resources, total, err := repo.Query(context.Background(), models.Query{Offset: 2, Limit: 1})

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, resources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_ListIDs(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT resource_id FROM resources ORDER BY resource_id").
		WillReturnRows(sqlmock.NewRows([]string{"resource_id"}).AddRow("a").AddRow("b"))

	ids, err := repo.ListIDs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_Delete(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM resource_tags WHERE resource_id = \\?").
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM resources WHERE resource_id = \\?").
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.Delete(context.Background(), "id-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_Delete_NotFound(t *testing.T) {
	repo, mock, cleanup := setupResourceRepositoryTest(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM resource_tags").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM resources").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "missing")

	assert.True(t, utils.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
