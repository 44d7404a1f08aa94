package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meridianerp/policyflow/internal/api/rest/middleware"
	"github.com/meridianerp/policyflow/internal/engine"
	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/internal/repository/postgres"
	"github.com/meridianerp/policyflow/internal/services"
	"github.com/meridianerp/policyflow/pkg/logger"
	"github.com/meridianerp/policyflow/pkg/validator"
	"go.uber.org/zap"
)

// DocumentHandler handles document workflow endpoints
type DocumentHandler struct {
	logger     *logger.Logger
	docService *services.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(log *logger.Logger, docService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		logger:     log,
		docService: docService,
	}
}

// Create creates a new document in draft state
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.docService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Errorf("Failed to create document: %v", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, doc)
}

// Get retrieves a document by domain and number
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	domain, number, ok := h.docParams(w, r)
	if !ok {
		return
	}

	doc, err := h.docService.Get(r.Context(), domain, number)
	if err != nil {
		if errors.Is(err, postgres.ErrDocumentNotFound) {
			respondError(w, http.StatusNotFound, "Document not found")
			return
		}
		h.logger.Errorf("Failed to get document: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to get document")
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// List retrieves documents, optionally filtered by domain
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var domain *models.DocumentDomain
	if domainStr := r.URL.Query().Get("domain"); domainStr != "" {
		d := models.DocumentDomain(domainStr)
		if !d.Valid() {
			respondError(w, http.StatusBadRequest, "Invalid domain")
			return
		}
		domain = &d
	}

	docs, total, err := h.docService.List(r.Context(), domain, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list documents: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     total,
		"page":      offset/limit + 1,
		"page_size": limit,
	})
}

// Transition applies a workflow action to a document
func (h *DocumentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	domain, number, ok := h.docParams(w, r)
	if !ok {
		return
	}

	var req models.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	requester := middleware.GetRequester(r.Context())

	doc, err := h.docService.AttemptTransition(r.Context(), domain, number, req.Action, requester)
	if err != nil {
		h.respondTransitionError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// AllowedActions reports the workflow actions valid from the document's state
func (h *DocumentHandler) AllowedActions(w http.ResponseWriter, r *http.Request) {
	domain, number, ok := h.docParams(w, r)
	if !ok {
		return
	}

	actions, err := h.docService.AllowedActions(r.Context(), domain, number)
	if err != nil {
		if errors.Is(err, postgres.ErrDocumentNotFound) {
			respondError(w, http.StatusNotFound, "Document not found")
			return
		}
		h.logger.Errorf("Failed to get allowed actions: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to get allowed actions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"actions": actions})
}

// respondTransitionError maps coordinator outcomes to HTTP responses. A gated
// transition is not a failure: requires-approval responds 202.
func (h *DocumentHandler) respondTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	var approvalErr *engine.ApprovalRequiredError
	if errors.As(err, &approvalErr) {
		respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"status":         "requires-approval",
			"rule_id":        approvalErr.RuleID,
			"reason":         approvalErr.Reason,
			"approver_roles": approvalErr.Roles,
		})
		return
	}

	var deniedErr *engine.DeniedError
	if errors.As(err, &deniedErr) {
		respondJSON(w, http.StatusForbidden, map[string]interface{}{
			"status": "denied",
			"reason": deniedErr.Reason,
		})
		return
	}

	var invalidErr *engine.InvalidTransitionError
	if errors.As(err, &invalidErr) {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"status": "invalid-transition",
			"action": invalidErr.Action,
			"state":  invalidErr.State,
		})
		return
	}

	var auditErr *engine.AuditError
	if errors.As(err, &auditErr) {
		h.logger.Error("Transition rejected: audit unavailable", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "Audit log unavailable")
		return
	}

	if errors.Is(err, postgres.ErrDocumentNotFound) {
		respondError(w, http.StatusNotFound, "Document not found")
		return
	}

	h.logger.Errorf("Transition failed: %v", err)
	respondError(w, http.StatusInternalServerError, "Transition failed")
}

func (h *DocumentHandler) docParams(w http.ResponseWriter, r *http.Request) (models.DocumentDomain, string, bool) {
	domain := models.DocumentDomain(chi.URLParam(r, "domain"))
	if !domain.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid domain")
		return "", "", false
	}

	number := chi.URLParam(r, "number")
	if number == "" {
		respondError(w, http.StatusBadRequest, "Document number required")
		return "", "", false
	}

	return domain, number, true
}
