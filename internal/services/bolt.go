package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
	bolt "go.etcd.io/bbolt"
)

// BoltDB indexes generated images in a BoltDB file, so the gallery survives a restart even though the
// page itself only keeps images generated in the current visit.
type BoltDB struct {
	db *bolt.DB
}

var imagesBucket = []byte("images")

// NewBoltDB creates a new BoltDB instance with the specified file path. It initializes the database
// with required buckets and returns an error if the database cannot be opened or initialized. The
// database file is created with 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(imagesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return BoltDB{}, fmt.Errorf("failed to create images bucket: %w", err)
	}

	return BoltDB{db: db}, nil
}

// Close releases the database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}

// AddImage stores a generated image record. Keys are sequence numbers so iteration follows insertion
// order.
func (b BoltDB) AddImage(_ context.Context, image models.GeneratedImage) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(imagesBucket)
		if bk == nil {
			return fmt.Errorf("bucket %s not found", imagesBucket)
		}

		seq, err := bk.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}

		v, err := json.Marshal(image)
		if err != nil {
			return fmt.Errorf("failed to marshal image: %w", err)
		}

		return bk.Put([]byte(fmt.Sprintf("%020d", seq)), v)
	})
}

// Images retrieves up to limit stored image records, most recent first. A non-positive limit returns
// every record.
func (b BoltDB) Images(_ context.Context, limit int) ([]models.GeneratedImage, error) {
	var images []models.GeneratedImage
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(imagesBucket)
		if bk == nil {
			return nil
		}

		c := bk.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var image models.GeneratedImage
			if err := json.Unmarshal(v, &image); err != nil {
				return fmt.Errorf("failed to unmarshal image: %w", err)
			}
			images = append(images, image)
			if limit > 0 && len(images) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}
