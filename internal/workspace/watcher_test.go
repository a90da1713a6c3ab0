package workspace

import "testing"

type recordingWatcher struct {
	changes []Change
}

func (w *recordingWatcher) Notify(c Change) {
	w.changes = append(w.changes, c)
}

func TestPublishOnlyReachesInterestedWatchers(t *testing.T) {
	r := NewRegistry()
	a := &recordingWatcher{}
	b := &recordingWatcher{}
	r.Register(a, "copybook.cpy")
	r.Register(b, "other.cpy")

	r.Publish(Change{Path: "copybook.cpy", Kind: ChangeModified})

	if len(a.changes) != 1 {
		t.Fatalf("expected watcher a to receive 1 change, got %d", len(a.changes))
	}
	if len(b.changes) != 0 {
		t.Fatalf("expected watcher b to receive no changes, got %d", len(b.changes))
	}
}

func TestUnregisterStopsNotifications(t *testing.T) {
	r := NewRegistry()
	w := &recordingWatcher{}
	id := r.Register(w, "file.hlasm")
	r.Unregister(id)

	r.Publish(Change{Path: "file.hlasm", Kind: ChangeDeleted})
	if len(w.changes) != 0 {
		t.Fatalf("expected no changes after unregister, got %d", len(w.changes))
	}
}

func TestAddInterestExtendsRegistration(t *testing.T) {
	r := NewRegistry()
	w := &recordingWatcher{}
	id := r.Register(w, "main.hlasm")
	r.AddInterest(id, "copied.cpy")

	r.Publish(Change{Path: "copied.cpy", Kind: ChangeModified})
	if len(w.changes) != 1 {
		t.Fatalf("expected the extended interest to receive the change, got %d", len(w.changes))
	}
}

func TestTwoRegistrationsGetDistinctIDs(t *testing.T) {
	r := NewRegistry()
	id1 := r.Register(&recordingWatcher{}, "a")
	id2 := r.Register(&recordingWatcher{}, "a")
	if id1 == id2 {
		t.Fatalf("expected distinct watcher ids, got the same: %s", id1)
	}
}
