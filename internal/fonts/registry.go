package fonts

import (
	"errors"
	"sort"

	"subforge/internal/fontname"
)

// ErrRegistryCleared is returned by Reset when the registry was already
// cleared during the current batch.
var ErrRegistryCleared = errors.New("font name registry already cleared for this batch")

// NameRegistry remembers the name table written into each renamed font so the
// merge phase can restore it onto merged output. It is owned by the batch
// worker and is not safe for concurrent use.
type NameRegistry struct {
	batchID   string
	snapshots map[string]fontname.Snapshot
	cleared   bool
}

// NewNameRegistry returns an empty registry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{snapshots: make(map[string]fontname.Snapshot)}
}

// Begin starts a new batch with an empty registry.
func (r *NameRegistry) Begin(batchID string) {
	r.batchID = batchID
	r.snapshots = make(map[string]fontname.Snapshot)
	r.cleared = false
}

// BatchID returns the batch passed to Begin.
func (r *NameRegistry) BatchID() string {
	return r.batchID
}

// Record stores the snapshot for a renamed font path.
func (r *NameRegistry) Record(path string, snap fontname.Snapshot) {
	if r.snapshots == nil {
		r.snapshots = make(map[string]fontname.Snapshot)
	}
	r.snapshots[path] = snap.Clone()
}

// Lookup returns the snapshot recorded for path. A nil registry holds nothing.
func (r *NameRegistry) Lookup(path string) (fontname.Snapshot, bool) {
	if r == nil {
		return nil, false
	}
	snap, ok := r.snapshots[path]
	if !ok {
		return nil, false
	}
	return snap.Clone(), true
}

// Paths lists recorded font paths in sorted order.
func (r *NameRegistry) Paths() []string {
	paths := make([]string, 0, len(r.snapshots))
	for path := range r.snapshots {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of recorded fonts.
func (r *NameRegistry) Len() int {
	return len(r.snapshots)
}

// Reset clears the registry. Only the first call per batch succeeds.
func (r *NameRegistry) Reset() error {
	if r.cleared {
		return ErrRegistryCleared
	}
	r.snapshots = make(map[string]fontname.Snapshot)
	r.cleared = true
	return nil
}
