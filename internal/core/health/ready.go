package health

import (
	"encoding/json"
	"net/http"
	"sort"
)

// ReadinessReporter is implemented by the invalidation consumer; partitions
// are the ones it currently owns.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

type componentStatus struct {
	Ready      bool    `json:"ready"`
	Partitions []int32 `json:"partitions,omitempty"`
}

type readiness struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
	NotReady   []string                   `json:"not_ready,omitempty"`
}

// Readiness answers 200 only when every named component is ready, 503
// otherwise. The body lists each component and the laggards.
func Readiness(components map[string]ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := readiness{Status: "ready", Components: map[string]componentStatus{}}
		for name, rr := range components {
			ok, parts := rr.Readiness()
			out.Components[name] = componentStatus{Ready: ok, Partitions: parts}
			if !ok {
				out.NotReady = append(out.NotReady, name)
			}
		}
		sort.Strings(out.NotReady)

		w.Header().Set("Content-Type", "application/json")
		if len(out.NotReady) > 0 {
			out.Status = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
