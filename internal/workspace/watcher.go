// Package workspace implements the watcher-registration surface of §6.2:
// a client registers interest in a set of files/library members, and the
// workspace layer notifies it when a dependency changes so cached analyses
// (and internal/library's Cache) can be invalidated.
package workspace

import (
	"sync"

	"github.com/google/uuid"
)

// WatcherID uniquely identifies one registration across process restarts;
// backed by a uuid rather than a small counter so two editor sessions
// reconnecting concurrently never collide (spec text calls these
// "watcher_<n>" but doesn't mandate the id's shape).
type WatcherID string

// ChangeKind classifies a notification delivered to a watcher.
type ChangeKind uint8

const (
	ChangeModified ChangeKind = iota
	ChangeDeleted
	ChangeCreated
)

// Change is one file/library-member change event.
type Change struct {
	Path string
	Kind ChangeKind
}

// Watcher receives Change notifications for the paths/logical names it
// registered interest in.
type Watcher interface {
	Notify(c Change)
}

// Registry tracks registered Watchers and the set of paths each is
// interested in (§6.2). It is the workspace-layer-only piece of state that
// coordinates parallel per-file analyses invalidating each other's cached
// results; single-analysis code never touches it directly.
type Registry struct {
	mu       sync.Mutex
	watchers map[WatcherID]Watcher
	interest map[WatcherID]map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		watchers: make(map[WatcherID]Watcher),
		interest: make(map[WatcherID]map[string]bool),
	}
}

// Register adds w, watching the given paths, and returns its id.
func (r *Registry) Register(w Watcher, paths ...string) WatcherID {
	id := WatcherID(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers[id] = w
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	r.interest[id] = set
	return id
}

// Unregister removes a watcher; a re-registration after an editor restart
// gets a fresh id, so stale notifications never reach a dead watcher.
func (r *Registry) Unregister(id WatcherID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watchers, id)
	delete(r.interest, id)
}

// AddInterest extends an existing registration's path set, e.g. when a
// COPY is discovered mid-analysis and the member's backing file should
// also be watched.
func (r *Registry) AddInterest(id WatcherID, paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.interest[id]
	if !ok {
		return
	}
	for _, p := range paths {
		set[p] = true
	}
}

// Publish delivers c to every watcher whose interest set includes c.Path.
func (r *Registry) Publish(c Change) {
	r.mu.Lock()
	targets := make([]Watcher, 0, len(r.watchers))
	for id, w := range r.watchers {
		if r.interest[id][c.Path] {
			targets = append(targets, w)
		}
	}
	r.mu.Unlock()
	for _, w := range targets {
		w.Notify(c)
	}
}
