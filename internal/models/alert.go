package models

// Alert is a candidate business situation submitted for policy evaluation.
// Alerts are produced per-request by callers (forms, monitors, the transition
// coordinator) and are not persisted by the engine.
type Alert struct {
	ID       string   `json:"id,omitempty"`
	KPIID    string   `json:"kpi_id" validate:"required"`
	Title    string   `json:"title,omitempty"`
	Message  string   `json:"message,omitempty"`
	Severity Severity `json:"severity" validate:"required,oneof=ok warn crit"`
	Delta    *float64 `json:"delta,omitempty"`
}

// DecisionType classifies the engine's verdict on an alert.
type DecisionType string

const (
	DecisionAllow            DecisionType = "allow"
	DecisionDeny             DecisionType = "deny"
	DecisionRequiresApproval DecisionType = "requires-approval"
)

// Decision is the engine's output for one alert evaluation. The engine itself
// only produces allow and requires-approval; deny is asserted by callers
// layering business checks ahead of the engine, then audited identically.
type Decision struct {
	Type          DecisionType `json:"type"`
	Execute       bool         `json:"execute"`
	NeedsApproval bool         `json:"needs_approval"`
	MatchedRuleID string       `json:"matched_rule_id,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

// AllowDecision builds an allow decision. ruleID is empty when no rule matched.
func AllowDecision(ruleID string) Decision {
	return Decision{
		Type:          DecisionAllow,
		Execute:       true,
		MatchedRuleID: ruleID,
	}
}

// ApprovalDecision builds a requires-approval decision for the given rule.
func ApprovalDecision(ruleID, reason string) Decision {
	return Decision{
		Type:          DecisionRequiresApproval,
		NeedsApproval: true,
		MatchedRuleID: ruleID,
		Reason:        reason,
	}
}

// DenyDecision builds a caller-asserted deny decision. Reason is mandatory.
func DenyDecision(reason string) Decision {
	return Decision{
		Type:   DecisionDeny,
		Reason: reason,
	}
}

// DecideRequest represents the request to evaluate an alert.
type DecideRequest struct {
	Alert Alert `json:"alert" validate:"required"`
}
