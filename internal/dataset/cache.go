package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hussaintmg/Population-Weather-App/internal/metrics"
)

// Opener returns the raw bytes of a source.
type Opener func(sourceID string) (io.ReadCloser, error)

// OpenFile is the default Opener: sourceID is a file path.
func OpenFile(sourceID string) (io.ReadCloser, error) {
	return os.Open(sourceID)
}

type cacheKey struct {
	source string
	schema string
}

// Cache memoizes Load by source identity. The first GetOrLoad for a
// (source, schema) pair reads and normalizes the source; later calls return
// the same *Dataset until Invalidate is called for that source.
//
// Concurrent first calls for the same key share one load.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*Dataset
	// gens counts invalidations per source. A load started under an older
	// generation is returned to its callers but not stored.
	gens  map[string]uint64
	group singleflight.Group

	open   Opener
	opt    LoadOptions
	logger *slog.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithOpener replaces the file-system opener, e.g. for embedded sources.
func WithOpener(o Opener) CacheOption { return func(c *Cache) { c.open = o } }

// WithLoadOptions sets the parsing options used for every load.
func WithLoadOptions(opt LoadOptions) CacheOption { return func(c *Cache) { c.opt = opt } }

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache builds an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[cacheKey]*Dataset),
		gens:    make(map[string]uint64),
		open:    OpenFile,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With(slog.String("component", "dataset_cache"))
	return c
}

// GetOrLoad returns the cached Dataset for sourceID under schema, loading
// it on first use. A source that cannot be opened yields an error wrapping
// ErrSourceUnavailable and nothing is cached.
func (c *Cache) GetOrLoad(ctx context.Context, sourceID string, schema Schema) (*Dataset, error) {
	key := cacheKey{source: sourceID, schema: schema.Name()}
	if ds := c.lookup(key); ds != nil {
		metrics.CacheHits.WithLabelValues(key.schema).Inc()
		c.logger.Debug("dataset cache hit", slog.String("source", sourceID), slog.String("schema", key.schema))
		return ds, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	gen := c.gens[sourceID]
	c.mu.RUnlock()

	flight := fmt.Sprintf("%s\x00%s\x00%d", key.source, key.schema, gen)
	ch := c.group.DoChan(flight, func() (any, error) {
		// Another caller may have finished loading between lookup and here.
		if ds := c.lookup(key); ds != nil {
			return ds, nil
		}
		metrics.CacheMisses.WithLabelValues(key.schema).Inc()
		ds, err := c.load(sourceID, schema)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gens[sourceID] != gen {
			c.logger.Debug("dataset invalidated during load, not cached", slog.String("source", sourceID))
			return ds, nil
		}
		if prev, ok := c.entries[key]; ok {
			ds = prev
		} else {
			c.entries[key] = ds
		}
		return ds, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dataset), nil
	}
}

func (c *Cache) load(sourceID string, schema Schema) (*Dataset, error) {
	rc, err := c.open(sourceID)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", sourceID, ErrSourceUnavailable, err)
	}
	defer rc.Close()
	ds, err := Load(sourceID, rc, schema, c.opt)
	if err != nil {
		c.logger.Error("dataset load failed", slog.String("source", sourceID), slog.String("schema", schema.Name()), slog.Any("error", err))
		return nil, err
	}
	metrics.LoadDuration.WithLabelValues(schema.Name()).Observe(ds.Stats.Duration.Seconds())
	metrics.RowsDropped.WithLabelValues(schema.Name()).Add(float64(ds.Stats.DroppedRows))
	metrics.CellsCoerced.WithLabelValues(schema.Name()).Add(float64(ds.Stats.CoercedCells))
	logLoad(c.logger, ds)
	return ds, nil
}

func (c *Cache) lookup(key cacheKey) *Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// Invalidate drops every cached dataset loaded from sourceID, whatever its
// schema. The next GetOrLoad reads the source again, and a load already in
// flight for sourceID is not stored.
func (c *Cache) Invalidate(sourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[sourceID]++
	for k := range c.entries {
		if k.source == sourceID {
			delete(c.entries, k)
		}
	}
	c.logger.Debug("dataset cache invalidated", slog.String("source", sourceID))
}

// Len returns the number of cached datasets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
