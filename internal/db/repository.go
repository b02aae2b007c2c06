package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fedragon/status-saver/internal/models"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var firstRunKey = []byte("first_run_done")

// PreferenceStore persists the granted folder handle and the "permission granted" flag per source.
type PreferenceStore interface {
	Folder(src models.Source) (string, bool, error)
	SetFolder(src models.Source, handle string) error
	ClearFolder(src models.Source) error
	Granted(src models.Source) (bool, error)
	SetGranted(src models.Source) error
}

type folderEntry struct {
	Handle    string
	Granted   bool
	GrantedAt time.Time
}

type BoltRepository struct {
	db     *bolt.DB
	logger *zap.Logger
}

func NewRepository(db *bolt.DB, logger *zap.Logger) (*BoltRepository, error) {
	r := &BoltRepository{
		db:     db,
		logger: logger,
	}

	if err := r.resetOnFirstRun(); err != nil {
		return nil, err
	}

	return r, nil
}

// resetOnFirstRun drops leftovers from a previous installation the first time the store is opened.
func (r *BoltRepository) resetOnFirstRun() error {
	return r.db.Update(func(tx *bolt.Tx) error {
		prefs := tx.Bucket(preferencesBucket)
		if prefs == nil {
			return fmt.Errorf("bucket %s doesn't exist", string(preferencesBucket))
		}
		if prefs.Get(firstRunKey) != nil {
			return nil
		}

		r.logger.Info("First run: clearing stored preferences")
		if err := tx.DeleteBucket(foldersBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		if _, err := tx.CreateBucket(foldersBucket); err != nil {
			return err
		}

		return prefs.Put(firstRunKey, []byte{1})
	})
}

func (r *BoltRepository) get(tx *bolt.Tx, src models.Source) (*folderEntry, error) {
	bucket := tx.Bucket(foldersBucket)
	if bucket == nil {
		return nil, fmt.Errorf("bucket %s doesn't exist", string(foldersBucket))
	}

	bytes := bucket.Get([]byte(src))
	if bytes == nil {
		return nil, nil
	}

	var entry folderEntry
	if err := json.Unmarshal(bytes, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *BoltRepository) put(tx *bolt.Tx, src models.Source, entry *folderEntry) error {
	marshalled, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return tx.Bucket(foldersBucket).Put([]byte(src), marshalled)
}

func (r *BoltRepository) Folder(src models.Source) (string, bool, error) {
	var handle string
	err := r.db.View(func(tx *bolt.Tx) error {
		entry, err := r.get(tx, src)
		if err != nil || entry == nil {
			return err
		}
		handle = entry.Handle
		return nil
	})

	return handle, handle != "", err
}

func (r *BoltRepository) SetFolder(src models.Source, handle string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		entry, err := r.get(tx, src)
		if err != nil {
			return err
		}
		if entry == nil {
			entry = &folderEntry{}
		}
		entry.Handle = handle

		r.logger.Debug("Storing folder handle", zap.String("source", string(src)), zap.String("handle", handle))
		return r.put(tx, src, entry)
	})
}

// ClearFolder forgets the folder handle and the granted flag, e.g. after access was lost.
func (r *BoltRepository) ClearFolder(src models.Source) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		r.logger.Info("Clearing folder handle", zap.String("source", string(src)))
		return tx.Bucket(foldersBucket).Delete([]byte(src))
	})
}

func (r *BoltRepository) Granted(src models.Source) (bool, error) {
	var granted bool
	err := r.db.View(func(tx *bolt.Tx) error {
		entry, err := r.get(tx, src)
		if err != nil || entry == nil {
			return err
		}
		granted = entry.Granted
		return nil
	})

	return granted, err
}

func (r *BoltRepository) SetGranted(src models.Source) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		entry, err := r.get(tx, src)
		if err != nil {
			return err
		}
		if entry == nil {
			entry = &folderEntry{}
		}
		if entry.Granted {
			return nil
		}
		entry.Granted = true
		entry.GrantedAt = time.Now()

		return r.put(tx, src, entry)
	})
}
