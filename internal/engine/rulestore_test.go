package engine

import (
	"testing"
	"time"

	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/pkg/logger"
)

func warnRule(id, kpiID string) models.Rule {
	return models.Rule{
		ID: id,
		When: models.RuleCondition{
			KPIID:    kpiID,
			Severity: []models.Severity{models.SeverityWarn},
		},
		Action: models.ActionSalesNotify,
	}
}

func TestSnapshotStoreFindMatching(t *testing.T) {
	store := NewSnapshotStore(logger.NewNop())

	windowed := warnRule("r-windowed", "sales_post")
	windowed.Window = &models.Window{Days: []int{1}, Start: "09:00", End: "17:00"} // Tuesday

	multi := models.Rule{
		ID: "r-multi",
		When: models.RuleCondition{
			KPIID:    "sales_post",
			Severity: []models.Severity{models.SeverityWarn, models.SeverityCrit},
		},
		Action: models.ActionSalesNotify,
	}

	store.Replace([]models.Rule{windowed, multi, warnRule("r-other", "purchase_post")}, 1)

	tuesdayNoon := time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC)
	tuesdayEvening := time.Date(2025, 1, 7, 18, 0, 0, 0, time.UTC)
	mondayNoon := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		kpiID    string
		severity models.Severity
		now      time.Time
		expected []string
	}{
		{"both match inside window", "sales_post", models.SeverityWarn, tuesdayNoon, []string{"r-windowed", "r-multi"}},
		{"window excludes evening", "sales_post", models.SeverityWarn, tuesdayEvening, []string{"r-multi"}},
		{"window excludes monday", "sales_post", models.SeverityWarn, mondayNoon, []string{"r-multi"}},
		{"severity filters windowed rule", "sales_post", models.SeverityCrit, tuesdayNoon, []string{"r-multi"}},
		{"severity ok matches nothing", "sales_post", models.SeverityOK, tuesdayNoon, nil},
		{"unknown kpi", "inventory_level", models.SeverityWarn, tuesdayNoon, nil},
		{"other kpi", "purchase_post", models.SeverityWarn, mondayNoon, []string{"r-other"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched := store.FindMatching(tt.kpiID, tt.severity, tt.now)

			var ids []string
			for _, r := range matched {
				ids = append(ids, r.ID)
			}

			if len(ids) != len(tt.expected) {
				t.Fatalf("FindMatching returned %v, want %v", ids, tt.expected)
			}
			for i := range ids {
				if ids[i] != tt.expected[i] {
					t.Errorf("FindMatching order: got %v, want %v", ids, tt.expected)
					break
				}
			}
		})
	}
}

func TestSnapshotStoreInsertionOrderPreserved(t *testing.T) {
	store := NewSnapshotStore(logger.NewNop())

	// Two rules watching the same kpi/severity; callers depend on insertion
	// order for first-match resolution.
	store.Replace([]models.Rule{warnRule("first", "k"), warnRule("second", "k")}, 1)

	matched := store.FindMatching("k", models.SeverityWarn, time.Now())
	if len(matched) != 2 || matched[0].ID != "first" || matched[1].ID != "second" {
		t.Fatalf("expected [first second], got %v", matched)
	}
}

func TestSnapshotStoreReplace(t *testing.T) {
	store := NewSnapshotStore(logger.NewNop())

	if store.Version() != 0 || len(store.List()) != 0 {
		t.Fatal("new store should be empty at version 0")
	}

	store.Replace([]models.Rule{warnRule("r1", "k")}, 7)
	if store.Version() != 7 {
		t.Errorf("Version() = %d, want 7", store.Version())
	}
	if len(store.List()) != 1 {
		t.Errorf("List() has %d rules, want 1", len(store.List()))
	}

	// A snapshot taken before a replace keeps its contents.
	before := store.List()
	store.Replace(nil, 8)
	if len(before) != 1 {
		t.Error("earlier snapshot mutated by Replace")
	}
	if len(store.List()) != 0 {
		t.Error("store should be empty after replacing with nil")
	}
}
