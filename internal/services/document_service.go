package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meridianerp/policyflow/internal/engine"
	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/internal/repository/postgres"
	"github.com/meridianerp/policyflow/pkg/logger"
	"github.com/meridianerp/policyflow/pkg/validator"
	"go.uber.org/zap"
)

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByNumber(ctx context.Context, domain models.DocumentDomain, number string) (*models.Document, error)
	List(ctx context.Context, domain *models.DocumentDomain, limit, offset int) ([]models.Document, int64, error)
}

// DocumentService fronts the workflow subjects: document creation, lookups,
// and transition attempts through the coordinator. Hard business limits live
// here, asserted ahead of the policy engine as deny decisions.
type DocumentService struct {
	docRepo     DocumentRepository
	coordinator *engine.Coordinator
	logger      *logger.Logger
}

// NewDocumentService creates a new document service. A positive
// denyAmountLimit hard-denies posting documents above that value.
func NewDocumentService(
	docRepo DocumentRepository,
	coordinator *engine.Coordinator,
	denyAmountLimit float64,
	log *logger.Logger,
) *DocumentService {
	s := &DocumentService{
		docRepo:     docRepo,
		coordinator: coordinator,
		logger:      log,
	}

	if denyAmountLimit > 0 {
		coordinator.RegisterPreCheck(amountLimitCheck(denyAmountLimit))
	}

	return s
}

// amountLimitCheck denies posting documents above the configured value. The
// rule schema has no deny action; hard limits are asserted here so the audit
// trail stays uniform.
func amountLimitCheck(limit float64) engine.PreCheck {
	return func(doc *models.Document, action models.DocumentAction, requester models.Requester) *models.Decision {
		if action != models.ActionPost || doc.Amount <= limit {
			return nil
		}
		d := models.DenyDecision(fmt.Sprintf(
			"document %s amount %.2f exceeds posting limit %.2f", doc.Number, doc.Amount, limit,
		))
		return &d
	}
}

// Create creates a new document in draft state.
func (s *DocumentService) Create(ctx context.Context, req *models.CreateDocumentRequest) (*models.Document, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &models.Document{
		ID:        uuid.New(),
		Domain:    req.Domain,
		Number:    req.Number,
		State:     models.StateDraft,
		Amount:    req.Amount,
		Payload:   req.Payload,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.logger.Info("Document created",
		zap.String("domain", string(doc.Domain)),
		zap.String("number", doc.Number),
	)

	return doc, nil
}

// Get retrieves a document by domain and number.
func (s *DocumentService) Get(ctx context.Context, domain models.DocumentDomain, number string) (*models.Document, error) {
	return s.docRepo.GetByNumber(ctx, domain, number)
}

// List retrieves documents, optionally filtered by domain.
func (s *DocumentService) List(ctx context.Context, domain *models.DocumentDomain, limit, offset int) ([]models.Document, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.docRepo.List(ctx, domain, limit, offset)
}

// AttemptTransition applies a workflow action to a document through the
// coordinator. Gated and denied outcomes surface as typed errors.
func (s *DocumentService) AttemptTransition(
	ctx context.Context,
	domain models.DocumentDomain,
	number string,
	action models.DocumentAction,
	requester models.Requester,
) (*models.Document, error) {
	return s.coordinator.AttemptTransition(ctx, domain, number, action, requester)
}

// AllowedActions reports the workflow actions valid from the document's
// current state.
func (s *DocumentService) AllowedActions(ctx context.Context, domain models.DocumentDomain, number string) ([]models.DocumentAction, error) {
	doc, err := s.docRepo.GetByNumber(ctx, domain, number)
	if err != nil {
		if err == postgres.ErrDocumentNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return s.coordinator.AllowedActions(doc.State), nil
}
