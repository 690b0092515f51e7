package index

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketMeta = []byte("jsonrag.meta")
	keyMeta    = []byte("current")
)

type boltBackend struct{}

func (boltBackend) Name() string { return BackendBolt }

func (boltBackend) FileName(collection string) string { return collection + ".db" }

func (boltBackend) Write(path string, meta Meta, entries []Entry) (err error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("open bolt index: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close bolt index: %w", cerr)
		}
	}()

	return db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(meta.Collection))
		if err != nil {
			return err
		}
		for _, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := b.Put(positionKey(entry.Position), data); err != nil {
				return fmt.Errorf("put entry %d: %w", entry.Position, err)
			}
		}

		mb, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return mb.Put(keyMeta, data)
	})
}

func (boltBackend) Read(path, collection string) (Meta, []Entry, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return Meta{}, nil, fmt.Errorf("open bolt index: %w", err)
	}
	defer db.Close()

	var (
		meta    Meta
		entries []Entry
	)
	err = db.View(func(tx *bbolt.Tx) error {
		mb := tx.Bucket(bucketMeta)
		b := tx.Bucket([]byte(collection))
		if mb == nil || b == nil {
			return errMissingCollection
		}
		data := mb.Get(keyMeta)
		if data == nil {
			return errMissingCollection
		}
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("decode index meta: %w", err)
		}
		if meta.Collection != collection {
			return errMissingCollection
		}
		return b.ForEach(func(_, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode index entry: %w", err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, errMissingCollection) {
			return Meta{}, nil, fmt.Errorf("%w: %s", errMissingCollection, collection)
		}
		return Meta{}, nil, err
	}
	return meta, entries, nil
}

// positionKey encodes big-endian so cursor order matches chunk order.
func positionKey(position int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(position))
	return key
}
