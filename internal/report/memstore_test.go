package report_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hangulab/scriptlive/internal/report"
)

func TestMemStoreSave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("assigns an ID when empty", func(t *testing.T) {
		t.Parallel()
		s := report.NewMemStore()

		saved, err := s.Save(ctx, report.Report{Reference: "대본"})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if saved.ID == "" {
			t.Fatal("Save: expected a generated ID")
		}

		got, err := s.Get(ctx, saved.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Reference != "대본" {
			t.Errorf("Get: reference = %q, want %q", got.Reference, "대본")
		}
	})

	t.Run("duplicate ID returns ErrDuplicateID", func(t *testing.T) {
		t.Parallel()
		s := report.NewMemStore()

		if _, err := s.Save(ctx, report.Report{ID: "fixed"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if _, err := s.Save(ctx, report.Report{ID: "fixed"}); !errors.Is(err, report.ErrDuplicateID) {
			t.Fatalf("Save duplicate: expected ErrDuplicateID, got %v", err)
		}
	})

	t.Run("zero value store is usable", func(t *testing.T) {
		t.Parallel()
		var s report.MemStore

		if _, err := s.Save(ctx, report.Report{}); err != nil {
			t.Fatalf("Save on zero value: %v", err)
		}
	})
}

func TestMemStoreGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := report.NewMemStore()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, report.ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := report.NewMemStore()

	// Insertion order differs from the expected chronological order.
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	_, _ = s.Save(ctx, report.Report{ID: "late", FinishedAt: base.Add(2 * time.Minute)})
	_, _ = s.Save(ctx, report.Report{ID: "early", FinishedAt: base})
	_, _ = s.Save(ctx, report.Report{ID: "mid", FinishedAt: base.Add(time.Minute)})

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"early", "mid", "late"}
	if len(got) != len(want) {
		t.Fatalf("List: got %d reports, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("List[%d]: ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestMemStoreConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := report.NewMemStore()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				if _, err := s.Save(ctx, report.Report{}); err != nil {
					t.Errorf("Save: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 8*25 {
		t.Errorf("List: got %d reports, want %d", len(got), 8*25)
	}
}
