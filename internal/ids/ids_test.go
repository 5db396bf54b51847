package ids

import (
	"sync"
	"testing"
)

func TestNewUniqueAndSortable(t *testing.T) {
	prev := ""
	for i := 0; i < 1000; i++ {
		id := New()
		if len(id) != 26 {
			t.Fatalf("unexpected id length: %q", id)
		}
		if id <= prev {
			t.Fatalf("ids not strictly increasing: %q <= %q", id, prev)
		}
		prev = id
	}
}

func TestNewConcurrent(t *testing.T) {
	const n = 200
	seen := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- New()
		}()
	}
	wg.Wait()
	close(seen)

	uniq := make(map[string]struct{}, n)
	for id := range seen {
		if _, dup := uniq[id]; dup {
			t.Fatalf("duplicate id generated: %q", id)
		}
		uniq[id] = struct{}{}
	}
}
