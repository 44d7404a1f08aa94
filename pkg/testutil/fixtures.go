package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianerp/policyflow/internal/models"
)

// FixtureBuilder provides methods to create test fixtures
type FixtureBuilder struct{}

// NewFixtureBuilder creates a new fixture builder
func NewFixtureBuilder() *FixtureBuilder {
	return &FixtureBuilder{}
}

// Rule creates a test rule watching a warn-severity KPI with an approval gate
func (fb *FixtureBuilder) Rule(overrides ...func(*models.Rule)) *models.Rule {
	rule := &models.Rule{
		ID: "rule-" + uuid.New().String()[:8],
		When: models.RuleCondition{
			KPIID:    "sales_post",
			Severity: []models.Severity{models.SeverityWarn},
		},
		Action: models.ActionSalesNotify,
		Approval: &models.Approval{
			Required: true,
			Roles:    []string{"sales-manager"},
		},
	}

	for _, override := range overrides {
		override(rule)
	}

	return rule
}

// Alert creates a test alert
func (fb *FixtureBuilder) Alert(overrides ...func(*models.Alert)) *models.Alert {
	alert := &models.Alert{
		ID:       uuid.New().String(),
		KPIID:    "sales_post",
		Title:    "Test alert",
		Message:  "test alert message",
		Severity: models.SeverityWarn,
	}

	for _, override := range overrides {
		override(alert)
	}

	return alert
}

// Document creates a test sales document in draft state
func (fb *FixtureBuilder) Document(overrides ...func(*models.Document)) *models.Document {
	id := uuid.New()
	now := time.Now()

	doc := &models.Document{
		ID:        id,
		Domain:    models.DomainSales,
		Number:    "INV-" + id.String()[:8],
		State:     models.StateDraft,
		Amount:    1500,
		Payload:   models.JSONB{"customer": "cust-001"},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(doc)
	}

	return doc
}

// AuditEntry creates a test audit entry for an executed transition
func (fb *FixtureBuilder) AuditEntry(overrides ...func(*models.AuditEntry)) *models.AuditEntry {
	entry := &models.AuditEntry{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		User:      "alice",
		Roles:     []string{"sales-clerk"},
		Action:    "submit",
		Params: models.JSONB{
			"domain": "sales",
			"number": "INV-1001",
		},
		Result: models.AuditExecuted,
	}

	for _, override := range overrides {
		override(entry)
	}

	return entry
}

// Helper functions

// StringPtr returns a pointer to a string
func StringPtr(s string) *string {
	return &s
}

// SeverityPtr returns a pointer to a severity
func SeverityPtr(s models.Severity) *models.Severity {
	return &s
}

// Float64Ptr returns a pointer to a float64
func Float64Ptr(f float64) *float64 {
	return &f
}

// TimePtr returns a pointer to a time
func TimePtr(t time.Time) *time.Time {
	return &t
}
