package booking

import "sync"

// inflight tracks booking ids with a status change currently dispatched.
type inflight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{ids: make(map[string]struct{})}
}

func (f *inflight) acquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, busy := f.ids[id]; busy {
		return false
	}

	f.ids[id] = struct{}{}
	return true
}

func (f *inflight) release(id string) {
	f.mu.Lock()
	delete(f.ids, id)
	f.mu.Unlock()
}
