// Package profits persists per-trade profit records in a WAL.
package profits

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/kazusol/soltrader/internal/entity"
)

const (
	DefaultDir   = "./wal/profits"
	segmentLimit = 1000
	maxSegments  = 100

	profitKeyPrefix = "profit_"
)

// WALStore is a WAL-backed profit record store.
type WALStore struct {
	wal     *gowal.Wal
	mu      sync.RWMutex
	records []entity.ProfitRecord
}

// NewWALStore opens the profit WAL under dir and recovers persisted records.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "profit_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init profit WAL")
	}

	s := &WALStore{wal: wal}
	for m := range wal.Iterator() {
		var rec entity.ProfitRecord
		if err := json.Unmarshal(m.Value, &rec); err != nil {
			return nil, errors.Wrap(err, "decode profit record")
		}
		s.records = append(s.records, rec)
	}

	return s, nil
}

// Save appends the profit record.
func (s *WALStore) Save(_ context.Context, rec *entity.ProfitRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("profit store is not initialized")
	}
	if rec.ID == "" {
		return errors.New("profit record id is required")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal profit record")
	}

	key := fmt.Sprintf("%s%s", profitKeyPrefix, rec.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return errors.Wrap(err, "write profit record")
	}
	s.records = append(s.records, *rec)
	return nil
}

// Latest returns the most recent profit record, nil when none exist.
func (s *WALStore) Latest(context.Context) (*entity.ProfitRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("profit store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}
	rec := s.records[len(s.records)-1]
	return &rec, nil
}

// Since returns all records with a timestamp at or after cutoff, oldest first.
func (s *WALStore) Since(_ context.Context, cutoff time.Time) ([]entity.ProfitRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("profit store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entity.ProfitRecord
	for _, rec := range s.records {
		if !rec.Timestamp.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Prune drops records older than cutoff from the served history and reports
// how many were dropped. On-disk entries age out separately through segment
// rotation.
func (s *WALStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("profit store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, rec := range s.records {
		if !rec.Timestamp.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	dropped := len(s.records) - len(kept)
	s.records = kept
	return dropped, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("profit store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
