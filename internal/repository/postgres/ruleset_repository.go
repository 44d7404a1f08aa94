package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meridianerp/policyflow/internal/models"
)

// ErrNoRuleSet is returned when no rule set has been loaded yet.
var ErrNoRuleSet = fmt.Errorf("no rule set loaded")

// RuleSetRepository persists loaded rule sets. Each load creates a new
// version; the highest version is the active one, so multiple instances
// converge on reload.
type RuleSetRepository struct {
	db DB
}

// NewRuleSetRepository creates a new rule set repository
func NewRuleSetRepository(db DB) *RuleSetRepository {
	return &RuleSetRepository{db: db}
}

// Save stores a new rule set version and returns its version number.
func (r *RuleSetRepository) Save(ctx context.Context, rules models.RuleSet, loadedBy string) (int64, error) {
	query := `
		INSERT INTO rule_sets (rules, loaded_by, loaded_at)
		VALUES ($1, $2, $3)
		RETURNING version`

	var version int64
	err := r.db.QueryRowContext(ctx, query, rules, loadedBy, time.Now()).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to save rule set: %w", err)
	}

	return version, nil
}

// GetActive returns the newest rule set and its version.
func (r *RuleSetRepository) GetActive(ctx context.Context) (models.RuleSet, int64, error) {
	query := `
		SELECT version, rules
		FROM rule_sets
		ORDER BY version DESC
		LIMIT 1`

	var version int64
	var rules models.RuleSet
	err := r.db.QueryRowContext(ctx, query).Scan(&version, &rules)
	if err == sql.ErrNoRows {
		return nil, 0, ErrNoRuleSet
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get active rule set: %w", err)
	}

	return rules, version, nil
}
