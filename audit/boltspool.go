package audit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var spoolBucket = []byte("audit_spool")

// BoltSpool is a persistent spool for daemon mode. Entries survive process
// restarts and keep their append order; same bounded, oldest-evicted
// semantics as the memory spool.
type BoltSpool struct {
	db       *bolt.DB
	capacity int
}

// OpenBoltSpool opens or creates a bolt-backed spool at path
func OpenBoltSpool(path string, capacity int) (*BoltSpool, error) {
	if capacity <= 0 {
		capacity = DefaultSpoolCapacity
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open spool db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(spoolBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create spool bucket: %w", err)
	}

	return &BoltSpool{db: db, capacity: capacity}, nil
}

// Append adds an entry, evicting the oldest when full
func (s *BoltSpool) Append(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(spoolBucket)

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), data); err != nil {
			return err
		}

		// Enforce capacity oldest-first. Counting by cursor because
		// bucket stats lag uncommitted writes.
		count := 0
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			count++
		}
		for ; count > s.capacity; count-- {
			k, _ := c.First()
			if k == nil {
				break
			}
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Oldest returns the next entry without consuming it
func (s *BoltSpool) Oldest() (Entry, bool, error) {
	var entry Entry
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket(spoolBucket).Cursor().First()
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read spool: %w", err)
	}
	return entry, found, nil
}

// Shift drops the oldest entry
func (s *BoltSpool) Shift() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(spoolBucket)
		k, _ := b.Cursor().First()
		if k == nil {
			return nil
		}
		return b.Delete(k)
	})
}

// Len returns the number of buffered entries
func (s *BoltSpool) Len() int {
	var n int
	_ = s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(spoolBucket).Stats().KeyN
		return nil
	})
	return n
}

// Close closes the underlying database
func (s *BoltSpool) Close() error {
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
