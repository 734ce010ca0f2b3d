package ids

import (
	"sync"
	"testing"
)

func TestGenerateUniqueAndOrdered(t *testing.T) {
	const n = 5000
	prev := Generate()
	for i := 0; i < n; i++ {
		id := Generate()
		if id <= prev {
			t.Fatalf("ids must be strictly increasing: %d then %d", prev, id)
		}
		prev = id
	}
}

func TestGenerateConcurrentUnique(t *testing.T) {
	const workers = 8
	const perWorker = 1000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, Generate())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Fatalf("want %d unique ids, got %d", workers*perWorker, len(seen))
	}
}

func TestSetNodeIDClampsRange(t *testing.T) {
	SetNodeID(2048)
	if defaultGen.nodeID != 1 {
		t.Fatalf("out-of-range node id must fall back to 1, got %d", defaultGen.nodeID)
	}
	SetNodeID(7)
	if defaultGen.nodeID != 7 {
		t.Fatalf("want node id 7, got %d", defaultGen.nodeID)
	}
	SetNodeID(1)
}
