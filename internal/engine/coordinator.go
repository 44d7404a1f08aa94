package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/pkg/logger"
	"github.com/meridianerp/policyflow/pkg/metrics"
	"go.uber.org/zap"
)

// DocumentStore is the document persistence the coordinator drives. UpdateState
// must apply an optimistic version check and return ErrVersionConflict when a
// concurrent transition won the race.
type DocumentStore interface {
	GetByNumber(ctx context.Context, domain models.DocumentDomain, number string) (*models.Document, error)
	UpdateState(ctx context.Context, doc *models.Document, next models.DocumentState) error
}

// AuditRecorder receives one entry per transition attempt. Record must be
// append-only; Enqueue durably parks an entry for later delivery when the
// synchronous write misses its deadline.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
	Enqueue(ctx context.Context, entry *models.AuditEntry) error
}

// PreCheck is a caller-supplied business check evaluated before the policy
// engine. Returning a non-nil decision short-circuits evaluation; this is how
// hard business denials enter the uniform audit trail, since rules themselves
// cannot deny.
type PreCheck func(doc *models.Document, action models.DocumentAction, requester models.Requester) *models.Decision

// CoordinatorConfig carries the coordinator's tunables.
type CoordinatorConfig struct {
	// AuditTimeout bounds the synchronous audit write.
	AuditTimeout time.Duration
	// WarnAmount and CritAmount derive alert severity from document value.
	// Zero disables the corresponding threshold.
	WarnAmount float64
	CritAmount float64
}

// Coordinator orchestrates a transition attempt: state machine validation,
// policy decision, optimistic state apply, and exactly one audit entry per
// attempt that reaches a decision.
type Coordinator struct {
	machine   *StateMachine
	decider   *Decider
	rules     RuleStore
	docs      DocumentStore
	audit     AuditRecorder
	metrics   *metrics.Metrics
	logger    *logger.Logger
	cfg       CoordinatorConfig
	prechecks []PreCheck

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoordinator creates a transition coordinator.
func NewCoordinator(
	machine *StateMachine,
	decider *Decider,
	rules RuleStore,
	docs DocumentStore,
	audit AuditRecorder,
	m *metrics.Metrics,
	log *logger.Logger,
	cfg CoordinatorConfig,
) *Coordinator {
	if cfg.AuditTimeout == 0 {
		cfg.AuditTimeout = 2 * time.Second
	}
	return &Coordinator{
		machine: machine,
		decider: decider,
		rules:   rules,
		docs:    docs,
		audit:   audit,
		metrics: m,
		logger:  log,
		cfg:     cfg,
		locks:   make(map[string]*sync.Mutex),
	}
}

// RegisterPreCheck appends a caller-asserted business check. PreChecks run in
// registration order before the policy engine.
func (c *Coordinator) RegisterPreCheck(check PreCheck) {
	c.prechecks = append(c.prechecks, check)
}

// AllowedActions reports which workflow actions are valid from state.
func (c *Coordinator) AllowedActions(state models.DocumentState) []models.DocumentAction {
	return c.machine.AllowedActions(state)
}

// AttemptTransition validates, decides, applies, and audits one workflow
// action against one document. Two concurrent attempts on the same document
// serialize on a per-document lock; the loser observes the post-transition
// state and fails validation.
func (c *Coordinator) AttemptTransition(
	ctx context.Context,
	domain models.DocumentDomain,
	number string,
	action models.DocumentAction,
	requester models.Requester,
) (*models.Document, error) {
	lock := c.lockFor(string(domain) + "/" + number)
	lock.Lock()
	defer lock.Unlock()

	doc, err := c.docs.GetByNumber(ctx, domain, number)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s/%s: %w", domain, number, err)
	}

	next, err := c.machine.Transition(doc.State, action)
	if err != nil {
		// Fail fast: no decision was reached, so nothing to audit.
		c.countTransition(doc.Domain, action, "invalid")
		return nil, err
	}

	alert := c.buildAlert(doc, action)
	decision := c.runPreChecks(doc, action, requester)
	if decision == nil {
		d := c.decider.Decide(requester.Roles, alert, time.Now())
		decision = &d
	}

	entry := c.newAuditEntry(doc, action, requester, decision)

	switch decision.Type {
	case models.DecisionDeny:
		c.countTransition(doc.Domain, action, "denied")
		if auditErr := c.recordGated(ctx, entry); auditErr != nil {
			return nil, auditErr
		}
		return nil, &DeniedError{Reason: decision.Reason}

	case models.DecisionRequiresApproval:
		c.countTransition(doc.Domain, action, "requested-approval")
		if auditErr := c.recordGated(ctx, entry); auditErr != nil {
			return nil, auditErr
		}
		return nil, &ApprovalRequiredError{
			RuleID: decision.MatchedRuleID,
			Reason: decision.Reason,
			Roles:  c.approverRoles(decision.MatchedRuleID),
		}

	default: // allow
		if applyErr := c.docs.UpdateState(ctx, doc, next); applyErr != nil {
			c.auditApplyFailure(ctx, entry, applyErr)
			if errors.Is(applyErr, ErrVersionConflict) {
				return nil, c.staleTransitionError(ctx, doc, action)
			}
			return nil, fmt.Errorf("failed to apply transition %s on %s/%s: %w", action, domain, number, applyErr)
		}

		c.countTransition(doc.Domain, action, "executed")
		c.recordExecuted(ctx, entry)
		return doc, nil
	}
}

// buildAlert describes the transition for policy evaluation. KPI ids follow
// the "<domain>_<action>" convention; severity derives from document value.
func (c *Coordinator) buildAlert(doc *models.Document, action models.DocumentAction) models.Alert {
	amount := doc.Amount
	severity := models.SeverityOK
	if c.cfg.CritAmount > 0 && amount >= c.cfg.CritAmount {
		severity = models.SeverityCrit
	} else if c.cfg.WarnAmount > 0 && amount >= c.cfg.WarnAmount {
		severity = models.SeverityWarn
	}

	return models.Alert{
		ID:       uuid.New().String(),
		KPIID:    fmt.Sprintf("%s_%s", doc.Domain, action),
		Title:    fmt.Sprintf("%s %s", doc.Domain, action),
		Message:  fmt.Sprintf("document %s: %s requested", doc.Number, action),
		Severity: severity,
		Delta:    &amount,
	}
}

func (c *Coordinator) runPreChecks(doc *models.Document, action models.DocumentAction, requester models.Requester) *models.Decision {
	for _, check := range c.prechecks {
		if d := check(doc, action, requester); d != nil {
			return d
		}
	}
	return nil
}

func (c *Coordinator) newAuditEntry(
	doc *models.Document,
	action models.DocumentAction,
	requester models.Requester,
	decision *models.Decision,
) *models.AuditEntry {
	entry := &models.AuditEntry{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		User:      requester.User,
		Roles:     requester.Roles,
		Action:    string(action),
		Params: models.JSONB{
			"domain": string(doc.Domain),
			"number": doc.Number,
			"state":  string(doc.State),
			"amount": doc.Amount,
		},
		RuleID: decision.MatchedRuleID,
	}

	switch decision.Type {
	case models.DecisionDeny:
		entry.Result = models.AuditDenied
	case models.DecisionRequiresApproval:
		entry.Result = models.AuditRequestedApproval
	default:
		entry.Result = models.AuditExecuted
		// A gate satisfied by the caller's own role is itself an approval.
		if rule := c.findRule(decision.MatchedRuleID); rule != nil &&
			rule.Approval != nil && rule.Approval.Required &&
			rolesIntersect(requester.Roles, rule.Approval.Roles) {
			entry.Approval = &models.AuditApproval{By: requester.User, At: entry.Timestamp}
		}
	}

	if decision.Reason != "" {
		reason := decision.Reason
		entry.Reason = &reason
	}
	return entry
}

// recordGated writes the audit entry for a deny or requested-approval
// outcome. These fail closed: an unauditable gate is a hard error.
func (c *Coordinator) recordGated(ctx context.Context, entry *models.AuditEntry) error {
	writeCtx, cancel := context.WithTimeout(ctx, c.cfg.AuditTimeout)
	defer cancel()

	if err := c.audit.Record(writeCtx, entry); err != nil {
		c.countAuditFailure()
		c.logger.Error("Audit write failed for gated outcome",
			zap.String("result", string(entry.Result)),
			zap.Error(err),
		)
		return &AuditError{Err: err}
	}
	return nil
}

// recordExecuted writes the audit entry for an applied transition. The state
// change is never rolled back: on timeout or failure the entry is durably
// queued and a degraded-audit warning is surfaced instead.
func (c *Coordinator) recordExecuted(ctx context.Context, entry *models.AuditEntry) {
	writeCtx, cancel := context.WithTimeout(ctx, c.cfg.AuditTimeout)
	defer cancel()

	start := time.Now()
	err := c.audit.Record(writeCtx, entry)
	c.observeAuditWrite(time.Since(start))
	if err == nil {
		return
	}

	c.countAuditFailure()
	c.logger.Warn("Audit write degraded, queueing entry",
		zap.String("entry_id", entry.ID.String()),
		zap.Error(err),
	)

	// Queue with a fresh context: the request deadline may already be gone.
	queueCtx, cancelQueue := context.WithTimeout(context.Background(), c.cfg.AuditTimeout)
	defer cancelQueue()
	if qErr := c.audit.Enqueue(queueCtx, entry); qErr != nil {
		c.logger.Error("Audit entry lost: queue write failed",
			zap.String("entry_id", entry.ID.String()),
			zap.Error(qErr),
		)
	}
}

// auditApplyFailure audits a transition that was allowed but could not be
// applied. Best effort: the failure itself is already surfacing to the caller.
func (c *Coordinator) auditApplyFailure(ctx context.Context, entry *models.AuditEntry, applyErr error) {
	reason := fmt.Sprintf("state apply failed: %v", applyErr)
	entry.Result = models.AuditDenied
	entry.Reason = &reason

	writeCtx, cancel := context.WithTimeout(ctx, c.cfg.AuditTimeout)
	defer cancel()
	if err := c.audit.Record(writeCtx, entry); err != nil {
		c.countAuditFailure()
		c.logger.Error("Audit write failed after apply failure", zap.Error(err))
	}
}

// staleTransitionError re-reads the document so the losing caller sees the
// post-transition state in the error.
func (c *Coordinator) staleTransitionError(ctx context.Context, doc *models.Document, action models.DocumentAction) error {
	state := doc.State
	if fresh, err := c.docs.GetByNumber(ctx, doc.Domain, doc.Number); err == nil {
		state = fresh.State
	}
	return &InvalidTransitionError{Action: action, State: state}
}

func (c *Coordinator) approverRoles(ruleID string) []string {
	if rule := c.findRule(ruleID); rule != nil && rule.Approval != nil {
		return rule.Approval.Roles
	}
	return nil
}

func (c *Coordinator) findRule(ruleID string) *models.Rule {
	if ruleID == "" {
		return nil
	}
	for _, rule := range c.rules.List() {
		if rule.ID == ruleID {
			r := rule
			return &r
		}
	}
	return nil
}

func (c *Coordinator) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

func (c *Coordinator) countTransition(domain models.DocumentDomain, action models.DocumentAction, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.TransitionsTotal.WithLabelValues(string(domain), string(action), outcome).Inc()
}

func (c *Coordinator) countAuditFailure() {
	if c.metrics == nil {
		return
	}
	c.metrics.AuditWriteFailures.Inc()
}

func (c *Coordinator) observeAuditWrite(d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.AuditWriteDuration.Observe(d.Seconds())
}
