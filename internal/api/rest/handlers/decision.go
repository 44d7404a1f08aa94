package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/meridianerp/policyflow/internal/api/rest/middleware"
	"github.com/meridianerp/policyflow/internal/engine"
	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/pkg/logger"
	"github.com/meridianerp/policyflow/pkg/metrics"
	"github.com/meridianerp/policyflow/pkg/validator"
	"go.uber.org/zap"
)

// DecisionHandler evaluates ad-hoc alerts against the active rule set. The
// caller's roles come from the validated token, never from the request body.
type DecisionHandler struct {
	logger  *logger.Logger
	decider *engine.Decider
	metrics *metrics.Metrics
}

// NewDecisionHandler creates a new decision handler
func NewDecisionHandler(log *logger.Logger, decider *engine.Decider, m *metrics.Metrics) *DecisionHandler {
	return &DecisionHandler{
		logger:  log,
		decider: decider,
		metrics: m,
	}
}

// Decide evaluates an alert and returns the decision
func (h *DecisionHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req models.DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	requester := middleware.GetRequester(r.Context())

	start := time.Now()
	decision := h.decider.Decide(requester.Roles, req.Alert, time.Now())
	h.observeDecision(req.Alert.KPIID, decision, time.Since(start))

	h.logger.Debug("Alert evaluated",
		zap.String("kpi_id", req.Alert.KPIID),
		zap.String("decision", string(decision.Type)),
		zap.String("user", requester.User),
	)

	respondJSON(w, http.StatusOK, decision)
}

func (h *DecisionHandler) observeDecision(kpiID string, decision models.Decision, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.DecisionsTotal.WithLabelValues(string(decision.Type), kpiID).Inc()
	h.metrics.DecisionDuration.Observe(elapsed.Seconds())
}
