package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/meridianerp/policyflow/internal/engine"
	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/pkg/logger"
)

type fakeRuleSetRepo struct {
	saved       []models.RuleSet
	saveVersion int64
	saveErr     error

	activeRules   models.RuleSet
	activeVersion int64
	activeErr     error
}

func (r *fakeRuleSetRepo) Save(ctx context.Context, rules models.RuleSet, loadedBy string) (int64, error) {
	if r.saveErr != nil {
		return 0, r.saveErr
	}
	r.saved = append(r.saved, rules)
	return r.saveVersion, nil
}

func (r *fakeRuleSetRepo) GetActive(ctx context.Context) (models.RuleSet, int64, error) {
	return r.activeRules, r.activeVersion, r.activeErr
}

func validRule(id string) models.Rule {
	return models.Rule{
		ID: id,
		When: models.RuleCondition{
			KPIID:    "sales_post",
			Severity: []models.Severity{models.SeverityWarn},
		},
		Action: models.ActionSalesNotify,
	}
}

func TestValidateRules(t *testing.T) {
	bypassCrit := models.SeverityCrit

	badAction := validRule("r1")
	badAction.Action = "sales.delete"

	badSeverity := validRule("r1")
	badSeverity.When.Severity = []models.Severity{"fatal"}

	noSeverity := validRule("r1")
	noSeverity.When.Severity = nil

	badClock := validRule("r1")
	badClock.Window = &models.Window{Days: []int{0}, Start: "9am", End: "17:00"}

	badDay := validRule("r1")
	badDay.Window = &models.Window{Days: []int{7}, Start: "09:00", End: "17:00"}

	inverted := validRule("r1")
	inverted.Window = &models.Window{Days: []int{0}, Start: "17:00", End: "09:00"}

	emptyWindow := validRule("r1")
	emptyWindow.Window = &models.Window{Days: []int{0}, Start: "09:00", End: "09:00"}

	orphanGate := validRule("r1")
	orphanGate.Approval = &models.Approval{Required: true}

	bypassOnlyGate := validRule("r1")
	bypassOnlyGate.Approval = &models.Approval{Required: true, BypassIfSeverity: &bypassCrit}

	windowed := validRule("r2")
	windowed.Window = &models.Window{Days: []int{0, 4}, Start: "09:00", End: "17:00"}

	gated := validRule("r3")
	gated.Approval = &models.Approval{Required: true, Roles: []string{"sales-manager"}}

	tests := []struct {
		name      string
		rules     []models.Rule
		shouldErr bool
		errPart   string
	}{
		{"empty set is valid", nil, false, ""},
		{"single valid rule", []models.Rule{validRule("r1")}, false, ""},
		{"valid set with window and gate", []models.Rule{validRule("r1"), windowed, gated}, false, ""},
		{"unknown action", []models.Rule{badAction}, true, ""},
		{"unknown severity", []models.Rule{badSeverity}, true, ""},
		{"empty severity list", []models.Rule{noSeverity}, true, ""},
		{"missing id", []models.Rule{{When: validRule("x").When, Action: models.ActionSalesNotify}}, true, ""},
		{"duplicate ids", []models.Rule{validRule("r1"), validRule("r1")}, true, "duplicate"},
		{"malformed clock", []models.Rule{badClock}, true, "HH:MM"},
		{"weekday out of range", []models.Rule{badDay}, true, ""},
		{"window start after end", []models.Rule{inverted}, true, "before end"},
		{"zero length window", []models.Rule{emptyWindow}, true, "before end"},
		{"gate without roles or bypass", []models.Rule{orphanGate}, true, "approver roles"},
		{"gate with bypass only", []models.Rule{bypassOnlyGate}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRules(tt.rules)
			if !tt.shouldErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tt.errPart != "" && !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error %q does not mention %q", err, tt.errPart)
			}
		})
	}
}

func TestLoadRulesRejectsWholeSet(t *testing.T) {
	repo := &fakeRuleSetRepo{saveVersion: 1}
	store := engine.NewSnapshotStore(logger.NewNop())
	store.Replace([]models.Rule{validRule("keep")}, 5)
	svc := NewRuleService(repo, store, nil, nil, logger.NewNop())

	bad := validRule("r2")
	bad.Action = "nope"

	err := svc.LoadRules(context.Background(), []models.Rule{validRule("r1"), bad}, "admin")
	if err == nil {
		t.Fatal("expected validation error")
	}

	// Nothing persisted, nothing swapped.
	if len(repo.saved) != 0 {
		t.Errorf("invalid set reached the repository: %v", repo.saved)
	}
	if store.Version() != 5 || store.List()[0].ID != "keep" {
		t.Error("active snapshot changed despite rejected load")
	}
}

func TestLoadRulesSwapsSnapshot(t *testing.T) {
	repo := &fakeRuleSetRepo{saveVersion: 42}
	store := engine.NewSnapshotStore(logger.NewNop())
	svc := NewRuleService(repo, store, nil, nil, logger.NewNop())

	rules := []models.Rule{validRule("r1"), validRule("r2")}
	if err := svc.LoadRules(context.Background(), rules, "admin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.saved) != 1 {
		t.Fatalf("repository saw %d saves, want 1", len(repo.saved))
	}
	if svc.ActiveVersion() != 42 {
		t.Errorf("active version = %d, want 42", svc.ActiveVersion())
	}
	if got := svc.ActiveRules(); len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r2" {
		t.Errorf("active rules = %v, want r1 then r2", got)
	}
}

func TestLoadRulesPersistFailureKeepsSnapshot(t *testing.T) {
	repo := &fakeRuleSetRepo{saveErr: errors.New("connection refused")}
	store := engine.NewSnapshotStore(logger.NewNop())
	store.Replace([]models.Rule{validRule("keep")}, 5)
	svc := NewRuleService(repo, store, nil, nil, logger.NewNop())

	err := svc.LoadRules(context.Background(), []models.Rule{validRule("r1")}, "admin")
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if store.Version() != 5 {
		t.Error("snapshot swapped despite persistence failure")
	}
}

func TestReload(t *testing.T) {
	repo := &fakeRuleSetRepo{
		activeRules:   models.RuleSet{validRule("stored")},
		activeVersion: 10,
	}
	store := engine.NewSnapshotStore(logger.NewNop())
	store.Replace([]models.Rule{validRule("live")}, 5)
	svc := NewRuleService(repo, store, nil, nil, logger.NewNop())

	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.ActiveVersion() != 10 || svc.ActiveRules()[0].ID != "stored" {
		t.Errorf("reload did not swap: version %d rules %v", svc.ActiveVersion(), svc.ActiveRules())
	}

	// Stored version not newer than the active snapshot: no swap.
	repo.activeRules = models.RuleSet{validRule("older")}
	repo.activeVersion = 10
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.ActiveRules()[0].ID != "stored" {
		t.Error("reload swapped in a non-newer rule set")
	}
}

func TestReloadStorageError(t *testing.T) {
	repo := &fakeRuleSetRepo{activeErr: errors.New("connection refused")}
	store := engine.NewSnapshotStore(logger.NewNop())
	svc := NewRuleService(repo, store, nil, nil, logger.NewNop())

	if err := svc.Reload(context.Background()); err == nil {
		t.Fatal("expected storage error")
	}
}
