package grid

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Loader func(path string) (*Dataset, error)

// Cache keeps recently opened datasets in memory, keyed by path.
type Cache struct {
	lru  *lru.Cache[string, *Dataset]
	load Loader
}

func NewCache(size int, load Loader) (*Cache, error) {
	if size <= 0 {
		size = 16
	}
	if load == nil {
		load = OpenNetCDF
	}
	c, err := lru.New[string, *Dataset](size)
	if err != nil {
		return nil, fmt.Errorf("dataset cache: %w", err)
	}
	return &Cache{lru: c, load: load}, nil
}

func (c *Cache) Get(path string) (*Dataset, error) {
	if ds, ok := c.lru.Get(path); ok {
		return ds, nil
	}
	ds, err := c.load(path)
	if err != nil {
		return nil, err
	}
	c.lru.Add(path, ds)
	return ds, nil
}

// Invalidate drops path and reports whether it was cached.
func (c *Cache) Invalidate(path string) bool {
	return c.lru.Remove(path)
}

func (c *Cache) Len() int { return c.lru.Len() }
