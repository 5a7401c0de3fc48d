package testutil

import (
	"sync"

	"github.com/printbeast/rngp-patcher/patchtypes"
)

// ProgressRecorder collects progress events.
type ProgressRecorder struct {
	mu     sync.Mutex
	Events []patchtypes.Progress
}

// Func returns a ProgressFunc appending to the recorder.
func (r *ProgressRecorder) Func() patchtypes.ProgressFunc {
	return func(p patchtypes.Progress) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.Events = append(r.Events, p)
	}
}

// Paths returns the reported paths in order.
func (r *ProgressRecorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		paths = append(paths, e.Path)
	}
	return paths
}

// Last returns the last event, or the zero value.
func (r *ProgressRecorder) Last() patchtypes.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Events) == 0 {
		return patchtypes.Progress{}
	}
	return r.Events[len(r.Events)-1]
}
