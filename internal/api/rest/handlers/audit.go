package handlers

import (
	"net/http"
	"time"

	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/internal/repository/postgres"
	"github.com/meridianerp/policyflow/internal/services"
	"github.com/meridianerp/policyflow/pkg/logger"
)

// AuditHandler handles audit trail query endpoints
type AuditHandler struct {
	logger       *logger.Logger
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(log *logger.Logger, auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{
		logger:       log,
		auditService: auditService,
	}
}

// List retrieves audit entries with optional filters, newest first
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	filters := &postgres.AuditFilters{}
	if v := r.URL.Query().Get("result"); v != "" {
		result := models.AuditResult(v)
		filters.Result = &result
	}
	if v := r.URL.Query().Get("rule_id"); v != "" {
		filters.RuleID = &v
	}
	if v := r.URL.Query().Get("user"); v != "" {
		filters.User = &v
	}
	if v := r.URL.Query().Get("action"); v != "" {
		filters.Action = &v
	}

	if startStr := r.URL.Query().Get("start_time"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid start_time, expected RFC3339")
			return
		}
		filters.StartTime = &start
	}

	if endStr := r.URL.Query().Get("end_time"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid end_time, expected RFC3339")
			return
		}
		filters.EndTime = &end
	}

	entries, total, err := h.auditService.List(r.Context(), filters, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list audit entries: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list audit entries")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries":   entries,
		"total":     total,
		"page":      offset/limit + 1,
		"page_size": limit,
	})
}
