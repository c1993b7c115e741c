package app

import (
	"slices"

	"gobrick/domain/brick"
	"gobrick/domain/core"
	"gobrick/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

// storedBrick keeps a decoded brick with its evaluation so overlays can be
// re-derived without decoding the payload again
type storedBrick struct {
	brick  *brick.Brick
	record *models.Evaluation
}

// brickStore is a fixed-capacity LRU of decoded bricks
type brickStore struct {
	cache *lru.Cache[core.EvaluationID, *storedBrick]
}

// newBrickStore calls onEvict with the ID of every brick pushed out of the store
func newBrickStore(capacity int, onEvict func(core.EvaluationID)) (*brickStore, error) {
	if capacity < 1 {
		capacity = 1
	}
	cache, err := lru.NewWithEvict(capacity, func(id core.EvaluationID, _ *storedBrick) {
		if onEvict != nil {
			onEvict(id)
		}
	})
	if err != nil {
		return nil, err
	}
	return &brickStore{cache: cache}, nil
}

// put inserts or refreshes an entry and reports whether another was evicted
func (s *brickStore) put(b *brick.Brick, record *models.Evaluation) bool {
	return s.cache.Add(record.ID, &storedBrick{brick: b, record: record})
}

func (s *brickStore) get(id core.EvaluationID) (*storedBrick, bool) {
	return s.cache.Get(id)
}

// records returns cached evaluation records, most recently used first
func (s *brickStore) records() []*models.Evaluation {
	entries := s.cache.Values()
	slices.Reverse(entries)
	out := make([]*models.Evaluation, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.record)
	}
	return out
}

func (s *brickStore) size() int {
	return s.cache.Len()
}
