package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/database"
	"github.com/blubywaff/ftag/internal/utils"
)

// LocalStorageRepository defines methods for interacting with per-client local storage
type LocalStorageRepository interface {
	Get(ctx context.Context, clientID, key string) (string, bool, error)
	Set(ctx context.Context, clientID, key, value string) error
	Remove(ctx context.Context, clientID, key string) error
	RemoveClient(ctx context.Context, clientID string) error
}

// SQLLocalStorageRepository is a database/sql implementation of LocalStorageRepository
type SQLLocalStorageRepository struct {
	db *database.Pool
}

// NewLocalStorageRepository creates a new LocalStorageRepository
func NewLocalStorageRepository(db *database.Pool) LocalStorageRepository {
	return &SQLLocalStorageRepository{
		db: db,
	}
}

// Get retrieves the value stored under key for a client
func (r *SQLLocalStorageRepository) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	startTime := time.Now()

	query := r.db.Rebind(`
        SELECT storage_value
        FROM local_storage
        WHERE client_id = ? AND storage_key = ?
    `)

	var value string
	err := r.db.QueryRowContext(ctx, query, clientID, key).Scan(&value)

	utils.LogDBQuery(query, []interface{}{clientID, key}, time.Since(startTime), ignoreNoRows(err))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get local storage item: %w", err)
	}

	return value, true, nil
}

// Set stores value under key for a client, overwriting any prior value
func (r *SQLLocalStorageRepository) Set(ctx context.Context, clientID, key, value string) error {
	updated, err := r.update(ctx, clientID, key, value)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	startTime := time.Now()
	now := time.Now().UTC()

	query := r.db.Rebind(`
        INSERT INTO local_storage (client_id, storage_key, storage_value, updated_at)
        VALUES (?, ?, ?, ?)
    `)

	_, err = r.db.ExecContext(ctx, query, clientID, key, value, now)

	utils.LogDBQuery(query, []interface{}{clientID, key, value, now}, time.Since(startTime), err)

	if err != nil {
		// A concurrent writer created the row first; last write wins
		if utils.IsDuplicateKeyError(err) {
			_, err = r.update(ctx, clientID, key, value)
			return err
		}
		return fmt.Errorf("failed to insert local storage item: %w", err)
	}

	log.Debug().
		Str("client_id", clientID).
		Str("key", key).
		Msg("Local storage item created")

	return nil
}

// update overwrites an existing row and reports whether one was found.
// MySQL reports zero affected rows for an unchanged row, so a missing
// row is only assumed when the insert that follows succeeds.
func (r *SQLLocalStorageRepository) update(ctx context.Context, clientID, key, value string) (bool, error) {
	startTime := time.Now()
	now := time.Now().UTC()

	query := r.db.Rebind(`
        UPDATE local_storage
        SET storage_value = ?, updated_at = ?
        WHERE client_id = ? AND storage_key = ?
    `)

	result, err := r.db.ExecContext(ctx, query, value, now, clientID, key)

	utils.LogDBQuery(query, []interface{}{value, now, clientID, key}, time.Since(startTime), err)

	if err != nil {
		return false, fmt.Errorf("failed to update local storage item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Remove deletes key for a client. Removing an absent key is not an error.
func (r *SQLLocalStorageRepository) Remove(ctx context.Context, clientID, key string) error {
	startTime := time.Now()

	query := r.db.Rebind(`DELETE FROM local_storage WHERE client_id = ? AND storage_key = ?`)

	_, err := r.db.ExecContext(ctx, query, clientID, key)

	utils.LogDBQuery(query, []interface{}{clientID, key}, time.Since(startTime), err)

	if err != nil {
		return fmt.Errorf("failed to remove local storage item: %w", err)
	}
	return nil
}

// RemoveClient deletes every key stored for a client
func (r *SQLLocalStorageRepository) RemoveClient(ctx context.Context, clientID string) error {
	startTime := time.Now()

	query := r.db.Rebind(`DELETE FROM local_storage WHERE client_id = ?`)

	result, err := r.db.ExecContext(ctx, query, clientID)

	utils.LogDBQuery(query, []interface{}{clientID}, time.Since(startTime), err)

	if err != nil {
		return fmt.Errorf("failed to remove local storage for client: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	log.Info().
		Str("client_id", clientID).
		Int64("keys_removed", rowsAffected).
		Msg("Local storage cleared for client")

	return nil
}

// ClientStorage is one client's view of a LocalStorageRepository.
// It satisfies settings.Storage.
type ClientStorage struct {
	repo     LocalStorageRepository
	clientID string
}

// NewClientStorage scopes repo to a single client
func NewClientStorage(repo LocalStorageRepository, clientID string) *ClientStorage {
	return &ClientStorage{repo: repo, clientID: clientID}
}

// GetItem returns the value stored under key
func (c *ClientStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	return c.repo.Get(ctx, c.clientID, key)
}

// SetItem stores value under key
func (c *ClientStorage) SetItem(ctx context.Context, key, value string) error {
	return c.repo.Set(ctx, c.clientID, key, value)
}

// RemoveItem deletes key
func (c *ClientStorage) RemoveItem(ctx context.Context, key string) error {
	return c.repo.Remove(ctx, c.clientID, key)
}

// ignoreNoRows hides sql.ErrNoRows from query logging
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
