package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/meridianerp/policyflow/internal/models"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	return resp, nil
}

// RuleSetResponse is the server's view of the active rule set.
type RuleSetResponse struct {
	Rules   []models.Rule `json:"rules"`
	Version int64         `json:"version"`
}

// LoadRules replaces the active rule set on the server
func (c *Client) LoadRules(rules []models.Rule) error {
	resp, err := c.doRequest("PUT", "/api/v1/rules", models.LoadRulesRequest{Rules: rules})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to load rules: %s (status: %d)", string(body), resp.StatusCode)
	}

	return nil
}

// GetRules retrieves the active rule set
func (c *Client) GetRules() (*RuleSetResponse, error) {
	resp, err := c.doRequest("GET", "/api/v1/rules", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get rules: %s (status: %d)", string(body), resp.StatusCode)
	}

	var result RuleSetResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Decide evaluates an alert against the active rule set
func (c *Client) Decide(alert models.Alert) (*models.Decision, error) {
	resp, err := c.doRequest("POST", "/api/v1/decisions", models.DecideRequest{Alert: alert})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to evaluate alert: %s (status: %d)", string(body), resp.StatusCode)
	}

	var decision models.Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &decision, nil
}

// TransitionResult captures a transition response, applied or gated.
type TransitionResult struct {
	Status        string                 `json:"status"`
	Document      *models.Document       `json:"document,omitempty"`
	RuleID        string                 `json:"rule_id,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	ApproverRoles []string               `json:"approver_roles,omitempty"`
	Raw           map[string]interface{} `json:"-"`
}

// Transition applies a workflow action to a document
func (c *Client) Transition(domain, number string, action models.DocumentAction) (*TransitionResult, error) {
	path := fmt.Sprintf("/api/v1/documents/%s/%s/transitions", url.PathEscape(domain), url.PathEscape(number))
	resp, err := c.doRequest("POST", path, models.TransitionRequest{Action: action})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var doc models.Document
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return &TransitionResult{Status: "executed", Document: &doc}, nil

	case http.StatusAccepted, http.StatusForbidden, http.StatusConflict:
		var result TransitionResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return &result, nil

	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transition failed: %s (status: %d)", string(body), resp.StatusCode)
	}
}

// AuditListResponse is a page of audit entries.
type AuditListResponse struct {
	Entries  []models.AuditEntry `json:"entries"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// GetAuditEntries retrieves audit entries, newest first
func (c *Client) GetAuditEntries(filters url.Values) (*AuditListResponse, error) {
	path := "/api/v1/audit-entries"
	if len(filters) > 0 {
		path += "?" + filters.Encode()
	}

	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get audit entries: %s (status: %d)", string(body), resp.StatusCode)
	}

	var result AuditListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API is not healthy (status: %d)", resp.StatusCode)
	}

	return nil
}
