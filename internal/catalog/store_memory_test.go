package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ItemCatalog/internal/catalog"
)

func newItem(id, name string, price int64) catalog.Item {
	return catalog.Item{
		ID:          id,
		Name:        name,
		Price:       decimal.NewFromInt(price),
		CreatedDate: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMemStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := catalog.NewMemStore()

	if err := s.Create(ctx, newItem("a", "Potion", 5)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, ok, err := s.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Name != "Potion" {
		t.Fatalf("name=%q", got.Name)
	}

	if err := s.Update(ctx, got.With("Hi-Potion", decimal.NewFromInt(9))); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _, _ = s.Get(ctx, "a")
	if got.Name != "Hi-Potion" || !got.Price.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("after update: %+v", got)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := s.Get(ctx, "a"); ok || err != nil {
		t.Fatalf("get after delete: ok=%v err=%v", ok, err)
	}
}

func TestMemStore_GetMissingIsAbsentNotError(t *testing.T) {
	s := catalog.NewMemStore()

	_, ok, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if ok {
		t.Fatalf("expected absent")
	}
}

func TestMemStore_ContractViolations(t *testing.T) {
	ctx := context.Background()
	s := catalog.NewMemStore()
	_ = s.Create(ctx, newItem("a", "Potion", 5))

	if err := s.Create(ctx, newItem("a", "Other", 1)); !errors.Is(err, catalog.ErrDuplicateID) {
		t.Fatalf("duplicate create err=%v", err)
	}
	if err := s.Update(ctx, newItem("b", "Other", 1)); !errors.Is(err, catalog.ErrInvariantViolation) {
		t.Fatalf("update unknown err=%v", err)
	}
	if err := s.Delete(ctx, "b"); !errors.Is(err, catalog.ErrInvariantViolation) {
		t.Fatalf("delete unknown err=%v", err)
	}

	got, _, _ := s.Get(ctx, "a")
	if got.Name != "Potion" {
		t.Fatalf("duplicate create overwrote item: %+v", got)
	}
	if s.Len() != 1 {
		t.Fatalf("len=%d", s.Len())
	}
}

func TestMemStore_ListIsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := catalog.NewMemStore()
	_ = s.Create(ctx, newItem("a", "Potion", 5))

	items, _ := s.List(ctx)
	items[0].Name = "mutated"

	got, _, _ := s.Get(ctx, "a")
	if got.Name != "Potion" {
		t.Fatalf("list exposed stored value: %+v", got)
	}
}

func TestMemStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := catalog.NewMemStore()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", i)
			if err := s.Create(ctx, newItem(id, "x", int64(i))); err != nil {
				t.Errorf("create %s: %v", id, err)
				return
			}
			if _, err := s.List(ctx); err != nil {
				t.Errorf("list: %v", err)
			}
			if err := s.Update(ctx, newItem(id, "y", int64(i))); err != nil {
				t.Errorf("update %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != n {
		t.Fatalf("len=%d want=%d", len(items), n)
	}
	for _, it := range items {
		if it.Name != "y" {
			t.Fatalf("lost update on %s", it.ID)
		}
	}
}
