package plants

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/repp-atlas/internal/core/model"
	"github.com/mohammed-shakir/repp-atlas/internal/core/ogc"
)

// Loader yields a plant table.
type Loader interface {
	Load(ctx context.Context) (Table, error)
}

// FileSource reads a GeoJSON file from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) (Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open plants: %w", err)
	}
	defer func() { _ = f.Close() }()
	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return t, nil
}

// Fetcher is the part of the WFS executor the WFS source needs.
type Fetcher interface {
	FetchGetFeature(ctx context.Context, q model.FeatureQuery) ([]byte, string, error)
}

// WFSSource loads plants from a GeoServer layer. Countries, when set, are
// pushed down as a CQL filter.
type WFSSource struct {
	Fetcher   Fetcher
	Layer     string
	Countries []string
	Logger    *slog.Logger
}

func (s WFSSource) Load(ctx context.Context) (Table, error) {
	q := model.FeatureQuery{
		Layer:   s.Layer,
		Filters: ogc.InFilter(ColCountry, s.Countries),
	}
	body, ct, err := s.Fetcher.FetchGetFeature(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("wfs %s: %w", s.Layer, err)
	}
	if ct != "" && !strings.Contains(ct, "json") {
		return nil, fmt.Errorf("wfs %s: unexpected content type %q", s.Layer, ct)
	}
	t, err := Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("wfs %s: %w", s.Layer, err)
	}
	if s.Logger != nil {
		s.Logger.Debug("plants loaded", "layer", s.Layer, "count", len(t))
	}
	return t, nil
}

// Cached reuses the last table loaded by its Loader for TTL. Failed loads
// are not remembered.
type Cached struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time

	mu  sync.Mutex
	t   Table
	at  time.Time
	hit bool
}

func NewCached(l Loader, ttl time.Duration) *Cached {
	return &Cached{loader: l, ttl: ttl, now: time.Now}
}

func (c *Cached) Load(ctx context.Context) (Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hit && c.now().Sub(c.at) < c.ttl {
		return c.t, nil
	}
	t, err := c.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.t, c.at, c.hit = t, c.now(), true
	return t, nil
}

// Reset forgets the cached table.
func (c *Cached) Reset() {
	c.mu.Lock()
	c.hit = false
	c.t = nil
	c.mu.Unlock()
}
