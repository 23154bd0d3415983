package memory

import (
	"context"
	"errors"
	"testing"

	"solana-sandwich-watch/internal/storage"
)

func TestAttackerStoreSeedAndContains(t *testing.T) {
	s := NewAttackerStore("addr-1", "addr-2", "")
	ctx := context.Background()

	for _, addr := range []string{"addr-1", "addr-2"} {
		ok, err := s.Contains(ctx, addr)
		if err != nil {
			t.Fatalf("Contains(%s): %v", addr, err)
		}
		if !ok {
			t.Errorf("seeded address %s missing", addr)
		}
	}

	ok, _ := s.Contains(ctx, "addr-unknown")
	if ok {
		t.Error("unknown address reported as contained")
	}
}

func TestAttackerStoreAddRemove(t *testing.T) {
	s := NewAttackerStore()
	ctx := context.Background()

	if err := s.Add(ctx, "addr-1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Adding twice is a no-op, not an error.
	if err := s.Add(ctx, "addr-1"); err != nil {
		t.Fatalf("double Add: %v", err)
	}

	if err := s.Remove(ctx, "addr-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	ok, _ := s.Contains(ctx, "addr-1")
	if ok {
		t.Error("address still contained after Remove")
	}

	if err := s.Add(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty Add: %v", err)
	}
	if err := s.Remove(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty Remove: %v", err)
	}
}

func TestAttackerStoreListSorted(t *testing.T) {
	s := NewAttackerStore("charlie", "alpha", "bravo")

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alpha", "bravo", "charlie"}
	if len(list) != len(want) {
		t.Fatalf("list = %v", list)
	}
	for i := range want {
		if list[i] != want[i] {
			t.Errorf("list[%d] = %s, want %s", i, list[i], want[i])
		}
	}
}
