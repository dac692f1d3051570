package invalidation

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Dedupe drops replayed or out-of-order events: an event is applied only
// when its timestamp is newer than the last one applied for its dataset.
type Dedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, time.Time]
}

func NewDedupe(size int) *Dedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, time.Time](size)
	return &Dedupe{lru: c}
}

// ShouldApply records ev when it is newer than the last applied event.
func (d *Dedupe) ShouldApply(ev Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(ev.Dataset); ok && !ev.TS.After(last) {
		return false
	}
	d.lru.Add(ev.Dataset, ev.TS)
	return true
}

// Forget lets the next event for dataset through regardless of its
// timestamp; used when applying an event failed.
func (d *Dedupe) Forget(dataset string) {
	d.mu.Lock()
	d.lru.Remove(dataset)
	d.mu.Unlock()
}
