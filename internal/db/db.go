package db

import (
	"time"

	"github.com/boltdb/bolt"
)

var (
	preferencesBucket = []byte("Preferences")
	foldersBucket     = []byte("Folders")
)

func Connect(path string) (*bolt.DB, error) {
	return bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
}

// Init creates the buckets used by the preference store.
func Init(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{preferencesBucket, foldersBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		return nil
	})
}
