package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditResult records the outcome a decision led to.
type AuditResult string

const (
	AuditExecuted          AuditResult = "executed"
	AuditDenied            AuditResult = "denied"
	AuditRequestedApproval AuditResult = "requested-approval"
)

// AuditApproval captures who approved a gated action and when.
type AuditApproval struct {
	By string    `json:"by"`
	At time.Time `json:"at"`
}

// AuditEntry is an immutable record of one policy decision and its outcome.
// Entries are append-only: the engine never updates or deletes them, and
// retention is an external concern.
type AuditEntry struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	Timestamp time.Time      `json:"timestamp" db:"timestamp"`
	User      string         `json:"user" db:"actor"`
	Roles     []string       `json:"roles" db:"roles"`
	Action    string         `json:"action" db:"action"`
	Params    JSONB          `json:"params,omitempty" db:"params"`
	RuleID    string         `json:"rule_id,omitempty" db:"rule_id"`
	Approval  *AuditApproval `json:"approval,omitempty"`
	Result    AuditResult    `json:"result" db:"result"`
	Reason    *string        `json:"reason,omitempty" db:"reason"`
}
