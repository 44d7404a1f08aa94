package engine

import (
	"fmt"
	"time"

	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/pkg/logger"
	"go.uber.org/zap"
)

// Decider evaluates alerts against the active rule set. Decide is a pure
// function of (roles, alert, rule snapshot, now); audit writing is the
// caller's responsibility, performed after Decide returns.
type Decider struct {
	store  RuleStore
	logger *logger.Logger
}

// NewDecider creates a new policy decision engine backed by store.
func NewDecider(store RuleStore, log *logger.Logger) *Decider {
	return &Decider{
		store:  store,
		logger: log,
	}
}

// Decide evaluates alert for a caller holding roles. A zero now means the
// current time. Decide never returns an error: absence of a governing rule is
// an allow, and deny outcomes are asserted by callers, not fabricated here.
func (d *Decider) Decide(roles []string, alert models.Alert, now time.Time) models.Decision {
	if now.IsZero() {
		now = time.Now()
	}

	matched := d.store.FindMatching(alert.KPIID, alert.Severity, now)
	if len(matched) == 0 {
		// Default-allow: absence of a rule is not a denial.
		return models.AllowDecision("")
	}

	// First match in insertion order wins; administrators order rules by
	// specificity.
	rule := matched[0]

	d.logger.Debug("Rule matched",
		zap.String("rule_id", rule.ID),
		zap.String("kpi_id", alert.KPIID),
		zap.String("severity", string(alert.Severity)),
		zap.Int("candidates", len(matched)),
	)

	approval := rule.Approval
	if approval == nil || !approval.Required {
		return models.AllowDecision(rule.ID)
	}

	if approval.BypassIfSeverity != nil && alert.Severity.AtLeast(*approval.BypassIfSeverity) {
		return models.AllowDecision(rule.ID)
	}

	if rolesIntersect(roles, approval.Roles) {
		// The caller is an approver; the gate is satisfied by their own role.
		return models.AllowDecision(rule.ID)
	}

	reason := fmt.Sprintf("action %s requires approval by one of %v", rule.Action, approval.Roles)
	return models.ApprovalDecision(rule.ID, reason)
}

// rolesIntersect reports whether the two role sets share at least one member.
func rolesIntersect(a, b []string) bool {
	for _, ra := range a {
		for _, rb := range b {
			if ra == rb {
				return true
			}
		}
	}
	return false
}
