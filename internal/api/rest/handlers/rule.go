package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/meridianerp/policyflow/internal/api/rest/middleware"
	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/internal/services"
	"github.com/meridianerp/policyflow/pkg/logger"
)

// RuleHandler handles rule administration endpoints
type RuleHandler struct {
	logger      *logger.Logger
	ruleService *services.RuleService
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(log *logger.Logger, ruleService *services.RuleService) *RuleHandler {
	return &RuleHandler{
		logger:      log,
		ruleService: ruleService,
	}
}

// Load atomically replaces the active rule set. The whole set is rejected if
// any rule is invalid.
func (h *RuleHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req models.LoadRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	requester := middleware.GetRequester(r.Context())

	if err := h.ruleService.LoadRules(r.Context(), req.Rules, requester.User); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rules":   len(req.Rules),
		"version": h.ruleService.ActiveVersion(),
	})
}

// List returns the active rule set and its version
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rules":   h.ruleService.ActiveRules(),
		"version": h.ruleService.ActiveVersion(),
	})
}

// Validate checks a rule set without loading it
func (h *RuleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req models.LoadRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := services.ValidateRules(req.Rules); err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"rules": len(req.Rules),
	})
}
