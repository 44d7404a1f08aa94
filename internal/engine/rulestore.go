package engine

import (
	"sync/atomic"
	"time"

	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/pkg/logger"
	"go.uber.org/zap"
)

// RuleStore provides read access to the active rule set. Implementations must
// guarantee that a FindMatching call observes a single consistent snapshot of
// the rules even while the set is being replaced.
type RuleStore interface {
	// List returns the active rules in insertion order. The decision engine's
	// first-match tie-break depends on this order.
	List() []models.Rule
	// FindMatching returns, in insertion order, the rules whose condition
	// covers the kpi/severity pair and whose window (if any) covers now.
	FindMatching(kpiID string, severity models.Severity, now time.Time) []models.Rule
}

// ruleSnapshot is an immutable view of one loaded rule set.
type ruleSnapshot struct {
	rules   []models.Rule
	version int64
}

// SnapshotStore holds the active rule set behind an atomic pointer. Replacing
// the set is a single pointer swap, so in-flight readers keep iterating their
// own snapshot and hot reloads never block Decide calls.
type SnapshotStore struct {
	snapshot atomic.Pointer[ruleSnapshot]
	logger   *logger.Logger
}

// NewSnapshotStore creates an empty rule store.
func NewSnapshotStore(log *logger.Logger) *SnapshotStore {
	s := &SnapshotStore{logger: log}
	s.snapshot.Store(&ruleSnapshot{})
	return s
}

// Replace atomically swaps in a new rule set. The slice is owned by the store
// after the call; callers must not mutate it.
func (s *SnapshotStore) Replace(rules []models.Rule, version int64) {
	s.snapshot.Store(&ruleSnapshot{rules: rules, version: version})
	s.logger.Info("Rule set replaced",
		zap.Int("rules", len(rules)),
		zap.Int64("version", version),
	)
}

// Version returns the version of the active snapshot.
func (s *SnapshotStore) Version() int64 {
	return s.snapshot.Load().version
}

// List returns the active rules in insertion order.
func (s *SnapshotStore) List() []models.Rule {
	return s.snapshot.Load().rules
}

// FindMatching filters the active snapshot by kpi, severity, and time window.
// Multiple matches are expected; tie-breaking belongs to the decision engine.
func (s *SnapshotStore) FindMatching(kpiID string, severity models.Severity, now time.Time) []models.Rule {
	snap := s.snapshot.Load()

	var matched []models.Rule
	for _, rule := range snap.rules {
		if !rule.When.Matches(kpiID, severity) {
			continue
		}
		if !rule.ActiveAt(now) {
			continue
		}
		matched = append(matched, rule)
	}
	return matched
}
