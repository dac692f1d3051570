// Package cache keeps rendered figures in Redis, indexed by dataset so a
// dataset update can drop every figure drawn from it.
package cache

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/mohammed-shakir/repp-atlas/internal/cache/keys"
	"github.com/mohammed-shakir/repp-atlas/internal/core/observability"
)

type Interface interface {
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	SetIndexed(ctx context.Context, key string, val []byte, ttl time.Duration, index string) error
	Purge(ctx context.Context, index string) (int, error)
}

// Entry is one cached figure.
type Entry struct {
	ContentType string
	Body        []byte
}

// Renders is a best-effort figure cache: store failures are logged and turn
// into misses. A nil *Renders is a disabled cache.
type Renders struct {
	store     Interface
	ttl       time.Duration
	opTimeout time.Duration
	log       *slog.Logger
}

func New(store Interface, ttl, opTimeout time.Duration, log *slog.Logger) *Renders {
	if log == nil {
		log = slog.Default()
	}
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &Renders{store: store, ttl: ttl, opTimeout: opTimeout, log: log}
}

// Key returns the cache key of a render request.
func (c *Renders) Key(kind, dataset string, params url.Values) string {
	return keys.Render(kind, dataset, params)
}

func (c *Renders) Get(ctx context.Context, key string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	got, err := c.store.MGet(ctx, []string{key})
	if err != nil {
		c.log.WarnContext(ctx, "render cache read failed", "key", key, "err", err)
		observability.IncCacheMiss()
		return Entry{}, false
	}
	raw, ok := got[key]
	if !ok {
		observability.IncCacheMiss()
		return Entry{}, false
	}
	e, ok := decode(raw)
	if !ok {
		c.log.WarnContext(ctx, "render cache entry corrupt", "key", key)
		observability.IncCacheMiss()
		return Entry{}, false
	}
	observability.IncCacheHit()
	return e, true
}

func (c *Renders) Put(ctx context.Context, dataset, key string, e Entry) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.store.SetIndexed(ctx, key, encode(e), c.ttl, keys.Index(dataset)); err != nil {
		c.log.WarnContext(ctx, "render cache write failed", "key", key, "err", err)
	}
}

// InvalidateDataset drops every cached figure drawn from dataset.
func (c *Renders) InvalidateDataset(ctx context.Context, dataset string) (int, error) {
	if c == nil {
		return 0, nil
	}
	return c.store.Purge(ctx, keys.Index(dataset))
}

// content type, NUL, body
func encode(e Entry) []byte {
	out := make([]byte, 0, len(e.ContentType)+1+len(e.Body))
	out = append(out, e.ContentType...)
	out = append(out, 0)
	return append(out, e.Body...)
}

func decode(raw []byte) (Entry, bool) {
	i := bytes.IndexByte(raw, 0)
	if i <= 0 {
		return Entry{}, false
	}
	return Entry{ContentType: string(raw[:i]), Body: raw[i+1:]}, true
}
