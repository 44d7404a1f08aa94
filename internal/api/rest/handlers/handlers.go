package handlers

import (
	"github.com/meridianerp/policyflow/internal/engine"
	"github.com/meridianerp/policyflow/internal/services"
	"github.com/meridianerp/policyflow/pkg/logger"
	"github.com/meridianerp/policyflow/pkg/metrics"
)

// Handlers aggregates all HTTP handlers
type Handlers struct {
	Health   *HealthHandler
	Decision *DecisionHandler
	Document *DocumentHandler
	Rule     *RuleHandler
	Audit    *AuditHandler
}

// HealthCheckers holds all health check dependencies
type HealthCheckers struct {
	DB    HealthChecker
	Redis HealthChecker
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	log *logger.Logger,
	decider *engine.Decider,
	docService *services.DocumentService,
	ruleService *services.RuleService,
	auditService *services.AuditService,
	m *metrics.Metrics,
	healthCheckers *HealthCheckers,
	version string,
) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(log, healthCheckers.DB, healthCheckers.Redis, version),
		Decision: NewDecisionHandler(log, decider, m),
		Document: NewDocumentHandler(log, docService),
		Rule:     NewRuleHandler(log, ruleService),
		Audit:    NewAuditHandler(log, auditService),
	}
}
