package migration

import "testing"

func TestPendingOrdersAndFilters(t *testing.T) {
	migrations := []Migration{
		{Version: 3, Name: "c"},
		{Version: 1, Name: "a"},
		{Version: 2, Name: "b"},
	}

	got := Pending(migrations, 1)
	if len(got) != 2 || got[0].Version != 2 || got[1].Version != 3 {
		t.Errorf("unexpected pending migrations %+v", got)
	}

	if got := Pending(migrations, 3); len(got) != 0 {
		t.Errorf("expected nothing pending, got %+v", got)
	}

	if migrations[0].Version != 3 {
		t.Error("Pending must not reorder the input")
	}
}

func TestMigrationsAreUniqueAndComplete(t *testing.T) {
	seen := map[int]bool{}
	for _, m := range getAllMigrations() {
		if seen[m.Version] {
			t.Errorf("duplicate migration version %d", m.Version)
		}
		seen[m.Version] = true
		if m.Name == "" || m.Up == "" || m.Down == "" {
			t.Errorf("migration %d is incomplete", m.Version)
		}
	}
}
