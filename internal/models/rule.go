package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Severity represents the business-impact level of an alert, ordered ok < warn < crit.
type Severity string

const (
	SeverityOK   Severity = "ok"
	SeverityWarn Severity = "warn"
	SeverityCrit Severity = "crit"
)

// severityRank orders severities for bypass comparisons.
var severityRank = map[Severity]int{
	SeverityOK:   0,
	SeverityWarn: 1,
	SeverityCrit: 2,
}

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s meets or exceeds other in the ok < warn < crit ordering.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// RuleAction is the closed set of operations a rule may govern.
type RuleAction string

const (
	ActionPricingAdjust    RuleAction = "pricing.adjust"
	ActionInventoryReorder RuleAction = "inventory.reorder"
	ActionSalesNotify      RuleAction = "sales.notify"
)

// Valid reports whether a is a known rule action.
func (a RuleAction) Valid() bool {
	switch a {
	case ActionPricingAdjust, ActionInventoryReorder, ActionSalesNotify:
		return true
	}
	return false
}

// RuleCondition describes what a rule watches: a KPI and one or more severities.
type RuleCondition struct {
	KPIID    string     `json:"kpi_id" validate:"required"`
	Severity []Severity `json:"severity" validate:"required,min=1,dive,oneof=ok warn crit"`
}

// Matches reports whether the condition covers the given kpi/severity pair.
func (c RuleCondition) Matches(kpiID string, severity Severity) bool {
	if c.KPIID != kpiID {
		return false
	}
	for _, s := range c.Severity {
		if s == severity {
			return true
		}
	}
	return false
}

// Window is a recurring weekly time range during which a rule is active.
// Weekdays are numbered 0 (Monday) through 6 (Sunday). Start and End are
// "HH:MM" clock strings in engine-local time; a window must not cross midnight.
type Window struct {
	Days  []int  `json:"days" validate:"required,min=1,dive,gte=0,lte=6"`
	Start string `json:"start" validate:"required,clock"`
	End   string `json:"end" validate:"required,clock"`
}

// Contains reports whether t falls inside the window. The end bound is
// exclusive so adjacent windows do not double-match.
func (w Window) Contains(t time.Time) bool {
	weekday := (int(t.Weekday()) + 6) % 7 // Monday = 0
	dayOK := false
	for _, d := range w.Days {
		if d == weekday {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}

	start, err := ParseClock(w.Start)
	if err != nil {
		return false
	}
	end, err := ParseClock(w.End)
	if err != nil {
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	return minute >= start && minute < end
}

// ParseClock parses an "HH:MM" clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock string %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid clock string %q: bad hour", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock string %q: bad minute", s)
	}
	return hour*60 + minute, nil
}

// Approval gates a rule's action behind role-based sign-off.
type Approval struct {
	Required         bool      `json:"required"`
	Roles            []string  `json:"roles,omitempty"`
	BypassIfSeverity *Severity `json:"bypass_if_severity,omitempty" validate:"omitempty,oneof=ok warn crit"`
}

// Rule is an administrator-defined policy: condition, governed action, and
// optional time-window and approval guards. Rules are immutable during a
// decision pass; the engine never mutates them.
type Rule struct {
	ID          string             `json:"id" validate:"required"`
	When        RuleCondition      `json:"when" validate:"required"`
	Action      RuleAction         `json:"action" validate:"required,oneof=pricing.adjust inventory.reorder sales.notify"`
	Params      JSONB              `json:"params,omitempty"`
	Limits      map[string]float64 `json:"limits,omitempty"`
	Window      *Window            `json:"window,omitempty"`
	Approval    *Approval          `json:"approval,omitempty"`
	AutoExecute bool               `json:"auto_execute"`
	AutoSuggest bool               `json:"auto_suggest"`
}

// ActiveAt reports whether the rule's window (if any) covers t.
// Rules without a window always match on time.
func (r Rule) ActiveAt(t time.Time) bool {
	if r.Window == nil {
		return true
	}
	return r.Window.Contains(t)
}

// RuleSet is a stored, ordered collection of rules. Order matters: the
// decision engine resolves overlapping matches by first match.
type RuleSet []Rule

// Scan implements the sql.Scanner interface for RuleSet.
func (rs *RuleSet) Scan(value interface{}) error {
	if value == nil {
		*rs = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into RuleSet", value)
	}
	return json.Unmarshal(bytes, rs)
}

// Value implements the driver.Valuer interface for RuleSet.
func (rs RuleSet) Value() (driver.Value, error) {
	return json.Marshal(rs)
}

// LoadRulesRequest represents the request to atomically replace the active rule set.
type LoadRulesRequest struct {
	Rules []Rule `json:"rules" validate:"required,dive"`
}
