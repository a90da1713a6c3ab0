// Package library implements the library-provider client contract of §6.1:
// resolving a logical COPY/macro-library name to source text, with a
// singleflight-coalesced, content-hash-keyed cache so concurrent analyses
// (the workspace-layer parallelism of §5) don't refetch the same member.
package library

import (
	"context"
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// Provider resolves a logical member name (a COPY operand or a macro name
// not yet defined in-file) to its source text. Implementations talk to
// whatever transport a workspace configures (filesystem directories,
// network dataset service, archive); this package only defines the
// contract and the caching/coalescing wrapper around it.
type Provider interface {
	Fetch(ctx context.Context, logicalName string) (text string, found bool, err error)
}

// Member is a resolved library member: its text plus the content hash used
// as part of the statement cache key (§4.5).
type Member struct {
	Name string
	Text string
	Hash string // hex blake2b-256 of Text
}

// Cache wraps a Provider with singleflight coalescing of concurrent fetches
// for the same name, plus an in-memory map from name to the last resolved
// Member so a repeat COPY of the same member within one analysis doesn't
// even reach singleflight.
type Cache struct {
	provider Provider
	group    singleflight.Group

	mu      sync.RWMutex
	members map[string]Member
}

func NewCache(provider Provider) *Cache {
	return &Cache{provider: provider, members: make(map[string]Member)}
}

// Resolve fetches logicalName, using the in-memory cache first, then
// coalescing concurrent misses through singleflight so parallel analyses
// requesting the same copybook while a fetch is in flight share that one
// Provider.Fetch call. A request that missed the map just before an earlier
// fetch finished can still start a second fetch once the first has returned.
func (c *Cache) Resolve(ctx context.Context, logicalName string) (Member, bool, error) {
	c.mu.RLock()
	if m, ok := c.members[logicalName]; ok {
		c.mu.RUnlock()
		return m, true, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(logicalName, func() (interface{}, error) {
		text, found, ferr := c.provider.Fetch(ctx, logicalName)
		if ferr != nil || !found {
			return Member{}, ferr
		}
		m := Member{Name: logicalName, Text: text, Hash: contentHash(text)}
		c.mu.Lock()
		c.members[logicalName] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return Member{}, false, err
	}
	m, ok := v.(Member)
	return m, ok && m.Name != "", nil
}

// Invalidate drops a cached member, e.g. when a workspace file-change
// notification indicates a copybook's backing file was edited.
func (c *Cache) Invalidate(logicalName string) {
	c.mu.Lock()
	delete(c.members, logicalName)
	c.mu.Unlock()
}

func contentHash(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
