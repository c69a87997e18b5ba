package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

const bucketName = "annotations"

// BoltStore persists annotation records on local disk
type BoltStore struct {
	db     *bolt.DB
	logger *logrus.Logger
}

// NewBoltStore opens (or creates) annotations.db under dir
func NewBoltStore(dir string, logger *logrus.Logger) (*BoltStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	path := filepath.Join(dir, "annotations.db")
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &BoltStore{db: db, logger: logger}, nil
}

// Get retrieves a cached record from bbolt
func (s *BoltStore) Get(ctx context.Context, file string) (*models.CacheEntry, bool, error) {
	var entry *models.CacheEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(file))
		if data == nil {
			return nil
		}
		entry = &models.CacheEntry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry for %s: %w", file, err)
	}
	return entry, entry != nil, nil
}

// Put stores a record in bbolt
func (s *BoltStore) Put(ctx context.Context, file string, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(file), data)
	})
}

func (s *BoltStore) Delete(ctx context.Context, file string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(file))
	})
}

// Clear drops and recreates the bucket
func (s *BoltStore) Clear(ctx context.Context) error {
	s.logger.Info("Clearing annotation cache")
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Files lists every cached file
func (s *BoltStore) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			files = append(files, string(k))
			return nil
		})
	})
	return files, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
