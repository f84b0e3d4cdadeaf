package ml

import "sync"

// predictionCache holds whole-population prediction lists keyed by
// (school, period, model version). The trained-at timestamp in the key
// makes staleness impossible: retraining produces a new key, so an old
// entry can never be served for a new model. Eviction is therefore a
// hygiene concern only; Train drops a school's entries eagerly to bound
// growth.
type predictionCache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]Prediction
}

type cacheKey struct {
	school    string
	period    string
	trainedAt string
}

func newPredictionCache() *predictionCache {
	return &predictionCache{entries: make(map[cacheKey][]Prediction)}
}

func (c *predictionCache) get(key cacheKey) ([]Prediction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	preds, ok := c.entries[key]
	return preds, ok
}

func (c *predictionCache) put(key cacheKey, preds []Prediction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = preds
}

// invalidate drops every cached population for the school.
func (c *predictionCache) invalidate(school string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.school == school {
			delete(c.entries, key)
		}
	}
}
