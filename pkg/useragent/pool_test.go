package useragent

import (
	"sync"
	"testing"
)

func TestPool_GetSequential(t *testing.T) {
	p := NewPool([]string{"A", "B", "C"})

	for _, want := range []string{"A", "B", "C", "A"} {
		if got := p.GetSequential(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}

func TestPool_FallsBackToDesktopDefaults(t *testing.T) {
	p := NewPool(nil)
	if len(p.GetAll()) != len(DesktopDefaults) {
		t.Errorf("expected pool length %d, got %d", len(DesktopDefaults), len(p.GetAll()))
	}
	if got := p.GetSequential(); got != DesktopDefaults[0] {
		t.Errorf("expected %s, got %s", DesktopDefaults[0], got)
	}
}

func TestPool_GetRandom(t *testing.T) {
	p := NewPool([]string{"A", "B"})

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		got := p.GetRandom()
		if got != "A" && got != "B" {
			t.Fatalf("unexpected UA: %s", got)
		}
		seen[got] = true
	}
	if !seen["A"] || !seen["B"] {
		t.Errorf("expected both strings to appear over 100 draws, saw %v", seen)
	}
}

func TestPool_Concurrent(t *testing.T) {
	uas := []string{"X", "Y", "Z"}
	p := NewPool(uas)

	const routines = 100
	const iterations = 1000

	var wg sync.WaitGroup
	results := make(chan string, routines*iterations)

	for i := 0; i < routines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				results <- p.GetSequential()
			}
		}()
	}

	wg.Wait()
	close(results)

	counts := map[string]int{}
	for r := range results {
		counts[r]++
	}

	// Round-robin over the full set distributes evenly.
	expectedBase := (routines * iterations) / len(uas)
	remainder := (routines * iterations) % len(uas)
	for k, count := range counts {
		if count < expectedBase || count > expectedBase+remainder {
			t.Errorf("expected between %d and %d hits for %s, got %d", expectedBase, expectedBase+remainder, k, count)
		}
	}
}

func TestPool_Empty(t *testing.T) {
	p := &Pool{uas: []string{}}

	if got := p.GetSequential(); got != "" {
		t.Errorf("expected empty string from empty pool, got %s", got)
	}
	if got := p.GetRandom(); got != "" {
		t.Errorf("expected empty string from empty pool, got %s", got)
	}
}
