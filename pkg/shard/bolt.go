package shard

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/persistsink/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketParts = []byte("parts")

// blobStore holds uploaded-but-not-yet-committed batch parts. Uploading
// (put) never touches Raft; only compare-and-append needs consensus, so
// staging is as cheap as a local BoltDB write.
type blobStore struct {
	db *bolt.DB
}

func newBlobStore(dataDir string) (*blobStore, error) {
	db, err := bolt.Open(filepath.Join(dataDir, "blobs.db"), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("shard: open blob store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketParts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("shard: create parts bucket: %w", err)
	}

	return &blobStore{db: db}, nil
}

func (b *blobStore) put(partID string, updates []types.Update) error {
	data, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("shard: marshal batch part: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketParts).Put([]byte(partID), data)
	})
}

func (b *blobStore) get(partID string) ([]types.Update, error) {
	var updates []types.Update
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketParts).Get([]byte(partID))
		if data == nil {
			return fmt.Errorf("shard: batch part %s not found", partID)
		}
		return json.Unmarshal(data, &updates)
	})
	return updates, err
}

func (b *blobStore) delete(partID string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketParts).Delete([]byte(partID))
	})
}

func (b *blobStore) close() error {
	return b.db.Close()
}
