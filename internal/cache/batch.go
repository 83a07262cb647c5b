package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/zettelgen/internal/model"
)

// BatchStore caches validated note batches keyed by backend and source text
type BatchStore struct {
	cache Cache
	ttl   time.Duration
}

// NewBatchStore wraps c. A zero ttl defers to each layer's default.
func NewBatchStore(c Cache, ttl time.Duration) *BatchStore {
	return &BatchStore{cache: c, ttl: ttl}
}

// BatchKey identifies the extraction of text by one provider and model
func BatchKey(provider, modelName, text string) string {
	return CacheKey(provider, modelName, text)
}

// Get returns the cached batch, if any. Undecodable entries are dropped.
func (s *BatchStore) Get(key string) (model.Batch, bool) {
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}

	var batch model.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		_ = s.cache.Delete(key)
		return nil, false
	}
	return batch, true
}

// Put stores batch under key
func (s *BatchStore) Put(key string, batch model.Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	if err := s.cache.Set(key, data, s.ttl); err != nil {
		return fmt.Errorf("store batch: %w", err)
	}
	return nil
}
