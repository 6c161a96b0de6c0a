package store

import (
	"testing"
	"time"

	"github.com/micasa-app/micasa/internal/database"
	"github.com/micasa-app/micasa/internal/model"
)

func setupChoreTestDB(t *testing.T) (*ChoreStore, *model.User) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	u, err := NewUserStore(db).Create("maria", "Maria", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewChoreStore(db), u
}

func TestChoreCRUD(t *testing.T) {
	cs, u := setupChoreTestDB(t)

	due := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	c, err := cs.Create("5-12", "Dishes", "after dinner", u.ID, "daily", due, "medium", "cleaning")
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if c.Title != "Dishes" || c.IsCompleted {
		t.Fatalf("unexpected chore %+v", c)
	}

	updated, err := cs.Update(c.ID, "Dishes + counters", "", u.ID, "daily", due, "high", "cleaning")
	if err != nil {
		t.Fatalf("update chore: %v", err)
	}
	if updated.Title != "Dishes + counters" || updated.Priority != "high" {
		t.Fatalf("unexpected updated chore %+v", updated)
	}

	if err := cs.Delete(c.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}
	gone, err := cs.GetByID(c.ID)
	if err != nil {
		t.Fatalf("get deleted chore: %v", err)
	}
	if gone != nil {
		t.Fatalf("chore still present after delete: %+v", gone)
	}
}

func TestChoreCompleteToggle(t *testing.T) {
	cs, u := setupChoreTestDB(t)

	c, err := cs.Create("5-12", "Laundry", "", u.ID, "weekly", time.Now(), "low", "laundry")
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	done, err := cs.SetCompleted(c.ID, true, u.ID)
	if err != nil {
		t.Fatalf("complete chore: %v", err)
	}
	if !done.IsCompleted || done.CompletedBy == nil || *done.CompletedBy != u.ID {
		t.Fatalf("unexpected completed chore %+v", done)
	}

	undone, err := cs.SetCompleted(c.ID, false, u.ID)
	if err != nil {
		t.Fatalf("uncomplete chore: %v", err)
	}
	if undone.IsCompleted || undone.CompletedBy != nil || undone.CompletedAt != nil {
		t.Fatalf("unexpected uncompleted chore %+v", undone)
	}
}

func TestChoreHouseholdIsolation(t *testing.T) {
	cs, u := setupChoreTestDB(t)

	if _, err := cs.Create("5-12", "Vacuum", "", u.ID, "weekly", time.Now(), "medium", "cleaning"); err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if _, err := cs.Create("7", "Mop", "", u.ID, "weekly", time.Now(), "medium", "cleaning"); err != nil {
		t.Fatalf("create chore: %v", err)
	}

	mine, err := cs.ListByHousehold("5-12")
	if err != nil {
		t.Fatalf("list chores: %v", err)
	}
	if len(mine) != 1 || mine[0].Title != "Vacuum" {
		t.Fatalf("listed %+v, want only Vacuum", mine)
	}
}
