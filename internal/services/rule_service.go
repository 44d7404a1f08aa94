package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meridianerp/policyflow/internal/engine"
	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/pkg/database"
	"github.com/meridianerp/policyflow/pkg/logger"
	"github.com/meridianerp/policyflow/pkg/metrics"
	"github.com/meridianerp/policyflow/pkg/validator"
	"go.uber.org/zap"
)

const (
	activeRulesCacheKey = "rules:active"
	activeRulesCacheTTL = 10 * time.Minute
)

// RuleSetRepository defines the interface for rule set persistence
type RuleSetRepository interface {
	Save(ctx context.Context, rules models.RuleSet, loadedBy string) (int64, error)
	GetActive(ctx context.Context) (models.RuleSet, int64, error)
}

// RuleService owns the rule administration boundary: it validates incoming
// rule sets, persists them, and atomically swaps the in-memory snapshot the
// decision engine reads.
type RuleService struct {
	rulesetRepo RuleSetRepository
	store       *engine.SnapshotStore
	redis       *database.RedisClient
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

// NewRuleService creates a new rule service
func NewRuleService(
	rulesetRepo RuleSetRepository,
	store *engine.SnapshotStore,
	redis *database.RedisClient,
	m *metrics.Metrics,
	log *logger.Logger,
) *RuleService {
	return &RuleService{
		rulesetRepo: rulesetRepo,
		store:       store,
		redis:       redis,
		metrics:     m,
		logger:      log,
	}
}

// LoadRules atomically replaces the active rule set. The whole set is
// rejected if any rule fails validation; a partial load never happens.
func (s *RuleService) LoadRules(ctx context.Context, rules []models.Rule, loadedBy string) error {
	if err := ValidateRules(rules); err != nil {
		return err
	}

	version := int64(time.Now().Unix())
	if s.rulesetRepo != nil {
		v, err := s.rulesetRepo.Save(ctx, rules, loadedBy)
		if err != nil {
			return fmt.Errorf("failed to persist rule set: %w", err)
		}
		version = v
	}

	s.store.Replace(rules, version)
	s.observeRuleSet(len(rules), version)

	if err := s.cacheRules(ctx, rules); err != nil {
		s.logger.Warn("Failed to cache rule set", zap.Error(err))
	}

	s.logger.Info("Rule set loaded",
		zap.Int("rules", len(rules)),
		zap.Int64("version", version),
		zap.String("loaded_by", loadedBy),
	)

	return nil
}

// ActiveRules returns the rules the decision engine currently evaluates.
func (s *RuleService) ActiveRules() []models.Rule {
	return s.store.List()
}

// ActiveVersion returns the version of the active rule set.
func (s *RuleService) ActiveVersion() int64 {
	return s.store.Version()
}

// Reload re-reads the stored rule set and swaps it in if it is newer than
// the active snapshot. In-flight decisions keep their own snapshot.
func (s *RuleService) Reload(ctx context.Context) error {
	if s.rulesetRepo == nil {
		return nil
	}

	rules, version, err := s.rulesetRepo.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active rule set: %w", err)
	}

	if version <= s.store.Version() {
		return nil
	}

	s.store.Replace(rules, version)
	s.observeRuleSet(len(rules), version)
	s.logger.Info("Rule set reloaded from storage",
		zap.Int("rules", len(rules)),
		zap.Int64("version", version),
	)
	return nil
}

// ValidateRules checks a rule set against the schema: enum values, clock
// strings, weekday ranges, and cross-field constraints. All-or-nothing.
func ValidateRules(rules []models.Rule) error {
	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		if err := validator.Validate(&rule); err != nil {
			return fmt.Errorf("rule %d (%s): %w", i, rule.ID, err)
		}
		if seen[rule.ID] {
			return fmt.Errorf("rule %d: duplicate id %q", i, rule.ID)
		}
		seen[rule.ID] = true

		if err := validateWindow(rule.Window); err != nil {
			return fmt.Errorf("rule %d (%s): %w", i, rule.ID, err)
		}
		if rule.Approval != nil && rule.Approval.Required && len(rule.Approval.Roles) == 0 && rule.Approval.BypassIfSeverity == nil {
			return fmt.Errorf("rule %d (%s): approval required but no approver roles or bypass severity", i, rule.ID)
		}
	}
	return nil
}

// validateWindow enforces start < end; windows must not cross midnight.
func validateWindow(w *models.Window) error {
	if w == nil {
		return nil
	}
	start, err := models.ParseClock(w.Start)
	if err != nil {
		return err
	}
	end, err := models.ParseClock(w.End)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("window start %s must be before end %s", w.Start, w.End)
	}
	return nil
}

func (s *RuleService) cacheRules(ctx context.Context, rules []models.Rule) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to marshal rule set: %w", err)
	}
	return s.redis.Set(ctx, activeRulesCacheKey, data, activeRulesCacheTTL)
}

func (s *RuleService) observeRuleSet(size int, version int64) {
	if s.metrics == nil {
		return
	}
	s.metrics.RuleSetSize.Set(float64(size))
	s.metrics.RuleSetVersion.Set(float64(version))
}
