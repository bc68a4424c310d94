package template

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/stmpl/log"
)

// Cache holds compiled templates keyed by a hash of their source. Identical
// content compiles once and every caller shares the same [*Template].
//
// A Cache is safe for concurrent use.
type Cache struct {
	entries sync.Map // uint64 -> *cacheEntry
	opts    []Option
	logger  log.Logger
}

type cacheEntry struct {
	once sync.Once
	tmpl *Template
	err  error
}

// NewCache returns a Cache that compiles with opts.
func NewCache(opts ...Option) *Cache {
	var probe Template

	applyOptions(&probe, opts...)

	return &Cache{opts: opts, logger: probe.logger}
}

// Load reads r to the end and returns the compiled template for its content.
// A failed compile is cached too, so identical content fails identically
// without recompiling.
func (c *Cache) Load(ctx context.Context, r io.Reader) (*Template, error) {
	// Pre-fetch input asynchronously while earlier chunks are consumed.
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).
			With(slog.String("source", "reader"))
	}

	return c.LoadBytes(ctx, data)
}

// LoadBytes returns the compiled template for src. See [Cache.Load].
func (c *Cache) LoadBytes(ctx context.Context, src []byte) (*Template, error) {
	key := xxh3.Hash(src)

	value, hit := c.entries.LoadOrStore(key, new(cacheEntry))
	entry, _ := value.(*cacheEntry)

	c.logger.TraceContext(ctx, "cache lookup",
		slog.String("source_hash", strconv.FormatUint(key, 16)),
		slog.Bool("cache_hit", hit))

	entry.once.Do(func() {
		entry.tmpl, entry.err = Compile(ctx, src, c.opts...)
	})

	return entry.tmpl, entry.err
}

// Len returns the number of distinct sources in the cache.
func (c *Cache) Len() int {
	n := 0

	c.entries.Range(func(any, any) bool {
		n++

		return true
	})

	return n
}

// Clear removes every cached template.
func (c *Cache) Clear() {
	c.entries.Clear()
}
