// Package boltstore implements blob.Store on a single bolt database file,
// for offline runs and local staging.
package boltstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"

	"github.com/agentstation/mastermap/pkg/blob"
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
)

var _ blob.Store = (*Store)(nil)

var objectsBucket = []byte("objects")

// Store is a blob.Store backed by bolt.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	db, err := bolt.Open(path, constants.SecureFilePermissions, &bolt.Options{Timeout: constants.BoltOpenTimeout})
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(objectsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("create", "bucket", string(objectsBucket), err)
	}
	return &Store{db: db}, nil
}

// Close syncs and closes the database.
func (s *Store) Close() error {
	if err := s.db.Sync(); err != nil {
		return errors.WrapIO("sync", s.db.Path(), err)
	}
	return s.db.Close()
}

// Get implements blob.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v, ok := lookup(tx.Bucket(objectsBucket), key)
		if !ok {
			return errors.NewNotFoundError("object", key)
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// Put implements blob.Store.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return errors.NewValidationError("key", key, "cannot be empty")
	}
	if data == nil {
		data = []byte{}
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(objectsBucket).Put([]byte(key), data)
	})
	return errors.WrapIO("put", key, err)
}

// Delete implements blob.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(objectsBucket)
		if _, ok := lookup(b, key); !ok {
			return errors.NewNotFoundError("object", key)
		}
		return b.Delete([]byte(key))
	})
}

// List implements blob.Store. Bolt keeps keys in byte order, so a prefix scan
// yields them sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	p := []byte(prefix)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(objectsBucket).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// lookup seeks to key so that empty values are told apart from missing keys.
func lookup(b *bolt.Bucket, key string) ([]byte, bool) {
	k, v := b.Cursor().Seek([]byte(key))
	if k == nil || !bytes.Equal(k, []byte(key)) {
		return nil, false
	}
	return v, true
}
