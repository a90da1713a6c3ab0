package library

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

type countingProvider struct {
	calls int32
	text  string
}

func (p *countingProvider) Fetch(ctx context.Context, logicalName string) (string, bool, error) {
	atomic.AddInt32(&p.calls, 1)
	return p.text, true, nil
}

func TestCacheCoalescesConcurrentFetches(t *testing.T) {
	p := &countingProvider{text: "MACRO BODY"}
	c := NewCache(p)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, found, err := c.Resolve(context.Background(), "MYMAC")
			if err != nil || !found {
				t.Errorf("unexpected resolve failure: %v %v", found, err)
			}
			if m.Text != "MACRO BODY" {
				t.Errorf("unexpected text %q", m.Text)
			}
		}()
	}
	wg.Wait()

	if p.calls > 2 {
		t.Fatalf("expected fetch to be coalesced/cached, got %d calls", p.calls)
	}
}

func TestCacheInvalidate(t *testing.T) {
	p := &countingProvider{text: "V1"}
	c := NewCache(p)
	m, _, _ := c.Resolve(context.Background(), "X")
	if m.Text != "V1" {
		t.Fatalf("expected V1, got %q", m.Text)
	}
	c.Invalidate("X")
	p.text = "V2"
	m, _, _ = c.Resolve(context.Background(), "X")
	if m.Text != "V2" {
		t.Fatalf("expected V2 after invalidate, got %q", m.Text)
	}
}
