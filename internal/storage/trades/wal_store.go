// Package trades persists executed trade records in a WAL. Records are
// written exactly once per executed swap and never mutated.
package trades

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
	DefaultDir   = "./wal/trades"
	segmentLimit = 1000
	maxSegments  = 100

	tradeKeyPrefix = "trade_"
)

// WALStore is a WAL-backed trade store. Persisted records are recovered into
// memory at startup; reads are served from memory, writes go to both.
type WALStore struct {
	wal     *gowal.Wal
	mu      sync.RWMutex
	records []entity.TradeRecord
}

// NewWALStore opens (or creates) the trade WAL under dir and recovers all
// persisted records.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "trade_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init trade WAL")
	}

	s := &WALStore{wal: wal}
	for m := range wal.Iterator() {
		var rec entity.TradeRecord
		if err := json.Unmarshal(m.Value, &rec); err != nil {
			return nil, errors.Wrap(err, "decode trade record")
		}
		s.records = append(s.records, rec)
	}

	return s, nil
}

// Save appends the trade record.
func (s *WALStore) Save(_ context.Context, rec *entity.TradeRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("trade store is not initialized")
	}
	if rec.ID == "" {
		return errors.New("trade record id is required")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal trade record")
	}

	key := fmt.Sprintf("%s%s", tradeKeyPrefix, rec.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return errors.Wrap(err, "write trade record")
	}
	s.records = append(s.records, *rec)
	return nil
}

// Latest returns the most recently saved trade, nil when none exist.
func (s *WALStore) Latest(context.Context) (*entity.TradeRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("trade store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}
	rec := s.records[len(s.records)-1]
	return &rec, nil
}

// Recent returns up to limit trades, newest first.
func (s *WALStore) Recent(_ context.Context, limit int) ([]entity.TradeRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("trade store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]entity.TradeRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Prune drops trades older than cutoff from the served history and reports
// how many were dropped. On-disk entries age out separately through segment
// rotation.
func (s *WALStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("trade store is not initialized")
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
		return errors.New("trade store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
