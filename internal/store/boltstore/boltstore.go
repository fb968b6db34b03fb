// Package boltstore is the durable Store implementation: bbolt for the
// append-only logs and snapshot table with a bucket per concern,
// ristretto as a read-through cache over recently written ticks.
package boltstore

import (
	"bytes"
	"encoding/binary"
	"os"
	"path"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/deterministic-world/authority/internal/events"
	"github.com/deterministic-world/authority/internal/store"
)

const (
	databaseFileName = "authority.db"

	// tickCacheSize covers a few thousand recent ticks' worth of
	// events, not the whole run.
	tickCacheSize = int64(1 << 21)
)

var (
	inputEventsBucket  = []byte("input_events")
	observationsBucket = []byte("observations")
	snapshotsBucket    = []byte("snapshots")
	metaBucket         = []byte("meta")

	lastEventHashKey  = []byte("last_event_hash")
	latestSnapshotKey = []byte("latest_snapshot_tick")
)

// Store is a bbolt-backed store.Store implementation.
type Store struct {
	db           *bbolt.DB
	databasePath string
	tickCache    *ristretto.Cache
}

// Open initializes or opens the bbolt database at dirPath and ensures
// its bucket schema exists.
func Open(dirPath string) (*Store, error) {
	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return nil, errors.Wrap(err, "boltstore: create directory")
	}
	datafile := path.Join(dirPath, databaseFileName)
	db, err := bbolt.Open(datafile, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "boltstore: open database")
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     tickCacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "boltstore: init cache")
	}

	s := &Store{db: db, databasePath: dirPath, tickCache: cache}
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{inputEventsBucket, observationsBucket, snapshotsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "boltstore: create buckets")
	}
	return s, nil
}

func tickKey(tick uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], tick)
	return k[:]
}

func tickSeqKey(tick, seq uint64) []byte {
	var k [16]byte
	binary.BigEndian.PutUint64(k[:8], tick)
	binary.BigEndian.PutUint64(k[8:], seq)
	return k[:]
}

func (s *Store) AppendInputEvent(e events.InputEvent) error {
	buf := encodeInputEvent(e)
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		// Keyed by (tick, bucket-wide append counter): events sharing a
		// tick and sequence never overwrite each other, and a tick's
		// events read back in append order.
		bucket := tx.Bucket(inputEventsBucket)
		n, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		if err := bucket.Put(tickSeqKey(e.Tick, n), buf); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(lastEventHashKey, e.Hash[:])
	}); err != nil {
		return errors.Wrap(err, "boltstore: append input event")
	}
	s.tickCache.Del(string(tickKey(e.Tick)))
	return nil
}

func (s *Store) EventsInTick(tick uint64) ([]events.InputEvent, error) {
	if cached, ok := s.tickCache.Get(string(tickKey(tick))); ok {
		return cached.([]events.InputEvent), nil
	}
	prefix := tickKey(tick)
	var out []events.InputEvent
	if err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(inputEventsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			e, err := decodeInputEvent(v)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "boltstore: read events in tick")
	}
	// ristretto applies Set through an async buffer; Wait makes the
	// entry visible before returning so a later Del on append cannot be
	// reordered ahead of it and leave a stale tick cached.
	s.tickCache.Set(string(tickKey(tick)), out, int64(len(out)+1))
	s.tickCache.Wait()
	return out, nil
}

func (s *Store) LastEventHash() ([32]byte, error) {
	var out [32]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(lastEventHashKey)
		copy(out[:], v)
		return nil
	})
	if err != nil {
		return out, errors.Wrap(err, "boltstore: read last event hash")
	}
	return out, nil
}

func (s *Store) LatestEventTick() (uint64, bool, error) {
	var tick uint64
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, _ := tx.Bucket(inputEventsBucket).Cursor().Last()
		if k == nil {
			return nil
		}
		tick = binary.BigEndian.Uint64(k[:8])
		found = true
		return nil
	})
	if err != nil {
		return 0, false, errors.Wrap(err, "boltstore: read latest event tick")
	}
	return tick, found, nil
}

func (s *Store) AppendObservation(o events.ObservationEvent) error {
	buf := encodeObservationEvent(o)
	key := tickSeqKey(o.Tick, o.ID)
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(observationsBucket).Put(key, buf)
	}); err != nil {
		return errors.Wrap(err, "boltstore: append observation")
	}
	return nil
}

func (s *Store) ObservationsInTick(tick uint64) ([]events.ObservationEvent, error) {
	prefix := tickKey(tick)
	var out []events.ObservationEvent
	if err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(observationsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			o, err := decodeObservationEvent(v)
			if err != nil {
				return err
			}
			out = append(out, o)
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "boltstore: read observations in tick")
	}
	return out, nil
}

func (s *Store) WriteSnapshot(rec store.SnapshotRecord) error {
	buf := encodeSnapshot(rec)
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(snapshotsBucket).Put(tickKey(rec.Tick), buf); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(latestSnapshotKey, tickKey(rec.Tick))
	})
}

func (s *Store) ReadSnapshot(tick uint64) (store.SnapshotRecord, bool, error) {
	var rec store.SnapshotRecord
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(snapshotsBucket).Get(tickKey(tick))
		if v == nil {
			return nil
		}
		var err error
		rec, err = decodeSnapshot(v)
		found = err == nil
		return err
	})
	if err != nil {
		return rec, false, errors.Wrap(err, "boltstore: read snapshot")
	}
	return rec, found, nil
}

func (s *Store) LatestSnapshotTick() (uint64, bool, error) {
	var tick uint64
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(latestSnapshotKey)
		if v == nil {
			return nil
		}
		tick = binary.BigEndian.Uint64(v)
		found = true
		return nil
	})
	if err != nil {
		return 0, false, errors.Wrap(err, "boltstore: read latest snapshot tick")
	}
	return tick, found, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
