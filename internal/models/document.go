package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentDomain identifies the transactional family a document belongs to.
type DocumentDomain string

const (
	DomainSales    DocumentDomain = "sales"
	DomainPurchase DocumentDomain = "purchase"
)

// Valid reports whether d is a known document domain.
func (d DocumentDomain) Valid() bool {
	return d == DomainSales || d == DomainPurchase
}

// DocumentState represents a workflow state of a transactional document.
type DocumentState string

const (
	StateDraft    DocumentState = "draft"
	StatePending  DocumentState = "pending"
	StateApproved DocumentState = "approved"
	StatePosted   DocumentState = "posted"
	StateRejected DocumentState = "rejected"
)

// Terminal reports whether no further transitions are possible from s.
func (s DocumentState) Terminal() bool {
	return s == StatePosted || s == StateRejected
}

// DocumentAction is one of the four defined workflow actions. State changes
// only happen through these actions; there is no direct state assignment.
type DocumentAction string

const (
	ActionSubmit  DocumentAction = "submit"
	ActionApprove DocumentAction = "approve"
	ActionReject  DocumentAction = "reject"
	ActionPost    DocumentAction = "post"
)

// Valid reports whether a is a known document action.
func (a DocumentAction) Valid() bool {
	switch a {
	case ActionSubmit, ActionApprove, ActionReject, ActionPost:
		return true
	}
	return false
}

// Document is a workflow subject: a sales or purchase document whose payload
// is opaque to the engine. Version backs optimistic concurrency on state
// changes.
type Document struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	Domain    DocumentDomain `json:"domain" db:"domain"`
	Number    string         `json:"number" db:"number"`
	State     DocumentState  `json:"state" db:"state"`
	Amount    float64        `json:"amount" db:"amount"`
	Payload   JSONB          `json:"payload,omitempty" db:"payload"`
	Version   int            `json:"version" db:"version"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// Requester identifies the caller attempting a transition. Roles are resolved
// upstream; the engine treats them as given.
type Requester struct {
	User  string   `json:"user"`
	Roles []string `json:"roles"`
}

// CreateDocumentRequest represents the request to create a document.
type CreateDocumentRequest struct {
	Domain  DocumentDomain `json:"domain" validate:"required,oneof=sales purchase"`
	Number  string         `json:"number" validate:"required"`
	Amount  float64        `json:"amount" validate:"gte=0"`
	Payload JSONB          `json:"payload,omitempty"`
}

// TransitionRequest represents the request to apply a workflow action.
type TransitionRequest struct {
	Action DocumentAction `json:"action" validate:"required,oneof=submit approve reject post"`
}
