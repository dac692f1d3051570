// Package invalidation defines the dataset update events that expire cached
// figures.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

// Event announces that a dataset was rewritten (update) or removed (delete).
type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Dataset string    `json:"dataset"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case "update", "delete":
	default:
		return fmt.Errorf("op must be update|delete")
	}
	if strings.TrimSpace(e.Dataset) == "" {
		return fmt.Errorf("dataset is required")
	}
	if strings.ContainsAny(e.Dataset, `/\`) {
		return fmt.Errorf("dataset must be a bare name")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
