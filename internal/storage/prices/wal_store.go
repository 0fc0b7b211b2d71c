// Package prices persists per-cycle price samples in a WAL. Old samples age
// out naturally through segment rotation.
package prices

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
	DefaultDir   = "./wal/prices"
	segmentLimit = 1000
	maxSegments  = 100

	priceKeyPrefix = "price_"
)

// WALStore is a WAL-backed price sample store.
type WALStore struct {
	wal     *gowal.Wal
	mu      sync.RWMutex
	samples []entity.PriceSample
}

// NewWALStore opens the price WAL under dir and recovers persisted samples.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "price_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init price WAL")
	}

	s := &WALStore{wal: wal}
	for m := range wal.Iterator() {
		var sample entity.PriceSample
		if err := json.Unmarshal(m.Value, &sample); err != nil {
			return nil, errors.Wrap(err, "decode price sample")
		}
		s.samples = append(s.samples, sample)
	}

	return s, nil
}

// Save appends the price sample.
func (s *WALStore) Save(_ context.Context, sample *entity.PriceSample) error {
	if s == nil || s.wal == nil {
		return errors.New("price store is not initialized")
	}
	if sample.ID == "" {
		return errors.New("price sample id is required")
	}

	payload, err := json.Marshal(sample)
	if err != nil {
		return errors.Wrap(err, "marshal price sample")
	}

	key := fmt.Sprintf("%s%s", priceKeyPrefix, sample.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return errors.Wrap(err, "write price sample")
	}
	s.samples = append(s.samples, *sample)
	return nil
}

// Window returns all samples with a timestamp at or after cutoff, oldest
// first.
func (s *WALStore) Window(_ context.Context, cutoff time.Time) ([]entity.PriceSample, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("price store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entity.PriceSample
	for _, sample := range s.samples {
		if !sample.Timestamp.Before(cutoff) {
			out = append(out, sample)
		}
	}
	return out, nil
}

// All returns every recovered sample, oldest first.
func (s *WALStore) All(context.Context) ([]entity.PriceSample, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("price store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.PriceSample, len(s.samples))
	copy(out, s.samples)
	return out, nil
}

// Prune drops samples older than cutoff from the served history and reports
// how many were dropped. On-disk entries age out separately through segment
// rotation.
func (s *WALStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("price store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.samples[:0]
	for _, sample := range s.samples {
		if !sample.Timestamp.Before(cutoff) {
			kept = append(kept, sample)
		}
	}
	dropped := len(s.samples) - len(kept)
	s.samples = kept
	return dropped, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("price store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
