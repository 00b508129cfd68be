package store

import (
	"context"
	"testing"
)

func TestChildCRUD(t *testing.T) {
	ctx := context.Background()
	cs := NewChildStore(setupTestDB(t))

	c, err := cs.Create(ctx, "Ada", "#FF0000", "🦊", 10)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if c.Name != "Ada" || c.CoinRate != 10 || c.SortOrder != 0 {
		t.Errorf("child = %+v", c)
	}

	second, err := cs.Create(ctx, "Ben", "#00FF00", "", 5)
	if err != nil {
		t.Fatalf("create second child: %v", err)
	}
	if second.SortOrder != 1 {
		t.Errorf("sort_order = %d, want 1", second.SortOrder)
	}

	updated, err := cs.Update(ctx, c.ID, "Ada L.", "#0000FF", "🐙", 12)
	if err != nil {
		t.Fatalf("update child: %v", err)
	}
	if updated.Name != "Ada L." || updated.CoinRate != 12 {
		t.Errorf("updated = %+v", updated)
	}

	all, err := cs.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(all) != 2 || all[0].ID != c.ID {
		t.Errorf("children = %+v, want Ada first", all)
	}

	exists, err := cs.NameExists(ctx, "Ben", c.ID)
	if err != nil {
		t.Fatalf("name exists: %v", err)
	}
	if !exists {
		t.Error("expected Ben to exist")
	}

	if err := cs.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := cs.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}
