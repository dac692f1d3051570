package grid

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoDataset is returned for a dataset name with no file in the catalog.
var ErrNoDataset = errors.New("dataset not found")

// Catalog resolves bare dataset names to NetCDF files under Dir and keeps
// the opened datasets in a Cache.
type Catalog struct {
	Dir   string
	cache *Cache
}

func NewCatalog(dir string, size int) (*Catalog, error) {
	c, err := NewCache(size, nil)
	if err != nil {
		return nil, err
	}
	return &Catalog{Dir: dir, cache: c}, nil
}

// DatasetName is the canonical form of a dataset name: "ecmwf" and
// " ecmwf.nc" both name dataset "ecmwf".
func DatasetName(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ".nc")
}

// Path returns the file backing name. Names may not leave Dir.
func (c *Catalog) Path(name string) (string, error) {
	name = DatasetName(name)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrNoDataset, name)
	}
	return filepath.Join(c.Dir, name+".nc"), nil
}

func (c *Catalog) Open(name string) (*Dataset, error) {
	p, err := c.Path(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNoDataset, name)
	}
	return c.cache.Get(p)
}

// Drop evicts name from memory so the next Open rereads the file.
func (c *Catalog) Drop(name string) bool {
	p, err := c.Path(name)
	if err != nil {
		return false
	}
	return c.cache.Invalidate(p)
}

// Loaded is the number of datasets held in memory.
func (c *Catalog) Loaded() int { return c.cache.Len() }

// Names lists the datasets in Dir, sorted.
func (c *Catalog) Names() ([]string, error) {
	ents, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".nc" {
			out = append(out, strings.TrimSuffix(e.Name(), ".nc"))
		}
	}
	slices.Sort(out)
	return out, nil
}
