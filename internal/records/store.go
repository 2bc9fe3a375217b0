// Package records archives every search hit the user has seen. Writes happen
// on a background goroutine so the UI never waits on disk.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/csheth/pneo/internal/debuglog"
	"github.com/csheth/pneo/internal/paper"
)

var recordsBucket = []byte("records")

// ErrNotFound is returned by Get for unknown control numbers.
var ErrNotFound = errors.New("record not found")

// Record is the archived form of a search hit.
type Record struct {
	ControlNumber string    `json:"control_number"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors"`
	Created       string    `json:"created"`
	Venue         string    `json:"venue,omitempty"`
	Year          string    `json:"year,omitempty"`
	Eprint        string    `json:"eprint,omitempty"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Seen          int       `json:"seen"`
}

type Store struct {
	db    *bolt.DB
	queue chan []paper.Entry
	done  chan struct{}
	now   func() time.Time

	mu     sync.Mutex
	closed bool
}

// Open opens the archive at path and starts its writer.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	s := &Store{
		db:    db,
		queue: make(chan []paper.Entry, 64),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	go s.run()
	return s, nil
}

func (s *Store) run() {
	defer close(s.done)
	for batch := range s.queue {
		if err := s.write(batch); err != nil {
			debuglog.Errorf("[records] upsert %d records: %v", len(batch), err)
		}
	}
}

// Upsert queues entries for archiving and returns immediately. Batches are
// dropped with a warning when the writer falls behind or the store is
// closed.
func (s *Store) Upsert(entries []paper.Entry) {
	if len(entries) == 0 {
		return
	}
	batch := append([]paper.Entry(nil), entries...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		debuglog.Warnf("[records] store closed, dropping %d records", len(batch))
		return
	}
	select {
	case s.queue <- batch:
	default:
		debuglog.Warnf("[records] writer busy, dropping %d records", len(batch))
	}
}

func (s *Store) write(batch []paper.Entry) error {
	now := s.now().UTC()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		for _, e := range batch {
			rec := Record{FirstSeen: now}
			if data := b.Get([]byte(e.ID)); data != nil {
				if err := json.Unmarshal(data, &rec); err != nil {
					return fmt.Errorf("decode %s: %w", e.ID, err)
				}
			}
			rec.ControlNumber = e.ID
			rec.Title = e.Title
			rec.Authors = e.Authors
			rec.Created = e.Created
			rec.Venue = e.Venue
			rec.Year = e.Year
			rec.Eprint = e.DownloadRef
			rec.LastSeen = now
			rec.Seen++

			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(e.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns the archived record for a control number.
func (s *Store) Get(controlNumber string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(recordsBucket).Get([]byte(controlNumber))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// Count returns the number of archived records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(recordsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Close drains queued batches and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return s.db.Close()
}
