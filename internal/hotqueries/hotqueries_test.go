package hotqueries

import "testing"

func TestRecordAndSnapshot(t *testing.T) {
	tr, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr.Record("a")
	tr.Record("b")
	tr.Record("a")

	snap := tr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}
	hits := map[string]int64{}
	for _, e := range snap {
		hits[e.Key] = e.Hits
	}
	if hits["a"] != 2 || hits["b"] != 1 {
		t.Fatalf("hits = %v", hits)
	}
}

func TestEviction(t *testing.T) {
	tr, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr.Record("a")
	tr.Record("b")
	tr.Record("c") // evicts a

	snap := tr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}
	for _, e := range snap {
		if e.Key == "a" {
			t.Fatalf("oldest key should have been evicted")
		}
	}
}
