package embedding

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"cerno/internal/logging"
)

// CachedEngine wraps an EmbeddingEngine with an LRU-ish bounded cache: when
// the cache exceeds its size cap, the oldest 10% by insertion time are
// evicted in one pass, matching the eviction policy named in the resource
// model rather than a strict per-access LRU.
type CachedEngine struct {
	inner EmbeddingEngine
	cap   int

	mu      sync.Mutex
	entries map[string]*list.Element // key -> element holding cacheEntry
	order   *list.List               // front = oldest
}

type cacheEntry struct {
	key       string
	embedding []float32
}

// NewCachedEngine wraps inner with a cache capped at size entries. size <= 0
// disables the cache entirely (every call passes through).
func NewCachedEngine(inner EmbeddingEngine, size int) *CachedEngine {
	return &CachedEngine{
		inner:   inner,
		cap:     size,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Embed returns the cached embedding for text if present, otherwise
// delegates to the wrapped engine and stores the result.
func (c *CachedEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(cacheEntry)
		c.mu.Unlock()
		logging.EmbeddingDebug("cache hit for key %s", key[:8])
		return entry.embedding, nil
	}
	c.mu.Unlock()

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.store(key, vec)
	return vec, nil
}

// EmbedBatch embeds a slice of texts, serving cache hits individually and
// batching the remainder through the wrapped engine's EmbedBatch.
func (c *CachedEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		key := cacheKey(t)
		c.mu.Lock()
		el, ok := c.entries[key]
		c.mu.Unlock()
		if ok {
			results[i] = el.Value.(cacheEntry).embedding
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	embedded, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		results[idx] = embedded[j]
		c.store(cacheKey(missTexts[j]), embedded[j])
	}
	return results, nil
}

func (c *CachedEngine) Dimensions() int { return c.inner.Dimensions() }
func (c *CachedEngine) Name() string    { return c.inner.Name() }

func (c *CachedEngine) store(key string, vec []float32) {
	if c.cap <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value = cacheEntry{key: key, embedding: vec}
		return
	}

	el := c.order.PushBack(cacheEntry{key: key, embedding: vec})
	c.entries[key] = el

	if c.order.Len() <= c.cap {
		return
	}
	evictCount := c.order.Len() / 10
	if evictCount < 1 {
		evictCount = 1
	}
	for i := 0; i < evictCount && c.order.Len() > 0; i++ {
		front := c.order.Front()
		if front == nil {
			break
		}
		entry := front.Value.(cacheEntry)
		delete(c.entries, entry.key)
		c.order.Remove(front)
	}
	logging.EmbeddingDebug("cache eviction: removed %d oldest entries, size now %d", evictCount, c.order.Len())
}

// BatchPool coalesces concurrent single-text embedding requests into
// flush-window batches, matching the batching resource described for the
// embedding pool (default 500ms flush window, cap 20 per batch).
type BatchPool struct {
	engine     EmbeddingEngine
	flushAfter time.Duration
	batchCap   int

	mu      sync.Mutex
	pending []pendingRequest
	timer   *time.Timer
}

type pendingRequest struct {
	text   string
	result chan batchResult
}

type batchResult struct {
	vec []float32
	err error
}

// NewBatchPool creates a pool over engine with the given flush window and
// per-batch cap. flushAfter <= 0 defaults to 500ms; batchCap <= 0 defaults
// to 20.
func NewBatchPool(engine EmbeddingEngine, flushAfter time.Duration, batchCap int) *BatchPool {
	if flushAfter <= 0 {
		flushAfter = 500 * time.Millisecond
	}
	if batchCap <= 0 {
		batchCap = 20
	}
	return &BatchPool{engine: engine, flushAfter: flushAfter, batchCap: batchCap}
}

// Embed enqueues text and blocks until its batch flushes.
func (p *BatchPool) Embed(ctx context.Context, text string) ([]float32, error) {
	req := pendingRequest{text: text, result: make(chan batchResult, 1)}

	p.mu.Lock()
	p.pending = append(p.pending, req)
	shouldFlushNow := len(p.pending) >= p.batchCap
	if shouldFlushNow {
		batch := p.pending
		p.pending = nil
		if p.timer != nil {
			p.timer.Stop()
			p.timer = nil
		}
		go p.flush(ctx, batch)
	} else if p.timer == nil {
		p.timer = time.AfterFunc(p.flushAfter, func() {
			p.mu.Lock()
			batch := p.pending
			p.pending = nil
			p.timer = nil
			p.mu.Unlock()
			if len(batch) > 0 {
				p.flush(ctx, batch)
			}
		})
	}
	p.mu.Unlock()

	select {
	case res := <-req.result:
		return res.vec, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *BatchPool) flush(ctx context.Context, batch []pendingRequest) {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.text
	}
	vecs, err := p.engine.EmbedBatch(ctx, texts)
	if err != nil {
		for _, r := range batch {
			r.result <- batchResult{err: err}
		}
		return
	}
	for i, r := range batch {
		r.result <- batchResult{vec: vecs[i]}
	}
}
