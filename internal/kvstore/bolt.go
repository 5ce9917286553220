package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/constants"
)

// RootBucket holds one nested bucket per client namespace.
var RootBucket = []byte(constants.TableLocalStorage)

// ErrMissingBucket is returned when a namespace bucket is unexpectedly absent.
type ErrMissingBucket []byte

func (e ErrMissingBucket) Error() string {
	return fmt.Sprintf("no such bucket %#q", string(e))
}

// IsMissingBucket reports whether err is an ErrMissingBucket.
func IsMissingBucket(err error) bool {
	_, ok := errors.Cause(err).(ErrMissingBucket)
	return ok
}

// Bolt keeps local storage in a BoltDB file.
type Bolt struct {
	db *bolt.DB
	ns []byte
}

// OpenBolt opens (creating if needed) the bolt file at path and prepares the
// root bucket. The returned store is scoped to the default namespace.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: constants.BoltOpenTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bolt file %s", path)
	}

	if err := db.Update(setupRoot); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to prepare local storage bucket")
	}

	log.Info().Str("path", path).Msg("Opened bolt local storage")
	return NewBolt(db), nil
}

// NewBolt wraps an already opened bolt database. The root bucket is created
// lazily on first write.
func NewBolt(db *bolt.DB) *Bolt {
	return &Bolt{db: db, ns: []byte(constants.LocalNamespace)}
}

// ForClient returns a view of the store scoped to the client's namespace.
// An empty id selects the default namespace.
func (b *Bolt) ForClient(clientID string) *Bolt {
	if clientID == "" {
		clientID = constants.LocalNamespace
	}
	return &Bolt{db: b.db, ns: []byte(clientID)}
}

// Close closes the underlying bolt database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// GetItem returns the value stored under key.
func (b *Bolt) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var (
		value string
		found bool
	)
	start := time.Now()
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := namespace(tx, b.ns)
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	logBoltOp("get", b.ns, key, start, err)
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read %#q", key)
	}
	return value, found, nil
}

// SetItem stores value under key.
func (b *Bolt) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := b.db.Update(wrap(
		setupRoot,
		setupNamespace(b.ns),
		put(b.ns, []byte(key), []byte(value)),
	))
	logBoltOp("put", b.ns, key, start, err)
	return errors.Wrapf(err, "failed to write %#q", key)
}

// RemoveItem deletes key.
func (b *Bolt) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := namespace(tx, b.ns)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	logBoltOp("delete", b.ns, key, start, err)
	return errors.Wrapf(err, "failed to delete %#q", key)
}

// RemoveClient drops the client's namespace bucket. Removing a namespace
// that was never written succeeds.
func (b *Bolt) RemoveClient(ctx context.Context, clientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ns := b.ForClient(clientID).ns
	start := time.Now()
	err := b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(RootBucket)
		if root == nil {
			return ErrMissingBucket(RootBucket)
		}
		if err := root.DeleteBucket(ns); err != nil {
			if err == bolt.ErrBucketNotFound {
				return ErrMissingBucket(ns)
			}
			return err
		}
		return nil
	})
	if IsMissingBucket(err) {
		err = nil
	}
	logBoltOp("drop", ns, "", start, err)
	return errors.Wrapf(err, "failed to drop namespace %#q", clientID)
}

func setupRoot(tx *bolt.Tx) error {
	_, err := tx.CreateBucketIfNotExists(RootBucket)
	return err
}

func setupNamespace(ns []byte) func(*bolt.Tx) error {
	return func(tx *bolt.Tx) error {
		root := tx.Bucket(RootBucket)
		if root == nil {
			return ErrMissingBucket(RootBucket)
		}
		_, err := root.CreateBucketIfNotExists(ns)
		return err
	}
}

func put(ns, key, val []byte) func(*bolt.Tx) error {
	return func(tx *bolt.Tx) error {
		bucket := namespace(tx, ns)
		if bucket == nil {
			return ErrMissingBucket(ns)
		}
		return bucket.Put(key, val)
	}
}

func wrap(apps ...func(*bolt.Tx) error) func(*bolt.Tx) error {
	return func(tx *bolt.Tx) error {
		for _, app := range apps {
			if err := app(tx); err != nil {
				return err
			}
		}
		return nil
	}
}

// namespace returns the client's bucket, or nil if it does not exist yet.
func namespace(tx *bolt.Tx, ns []byte) *bolt.Bucket {
	root := tx.Bucket(RootBucket)
	if root == nil {
		return nil
	}
	return root.Bucket(ns)
}

func logBoltOp(op string, ns []byte, key string, start time.Time, err error) {
	event := log.Debug()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.
		Str("op", op).
		Str("namespace", string(ns)).
		Str("key", key).
		Dur("duration", time.Since(start)).
		Msg("Bolt operation")
}
