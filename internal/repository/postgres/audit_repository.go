package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/meridianerp/policyflow/internal/models"
)

// AuditRepository handles audit log database operations. The table is
// append-only: there are no update or delete paths.
type AuditRepository struct {
	db DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditEntry appends a new audit entry
func (r *AuditRepository) CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (
			id, timestamp, actor, roles, action, params, rule_id, approval_by, approval_at, result, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var approvalBy *string
	var approvalAt *time.Time
	if entry.Approval != nil {
		approvalBy = &entry.Approval.By
		approvalAt = &entry.Approval.At
	}

	_, err := r.db.ExecContext(
		ctx, query,
		entry.ID, entry.Timestamp, entry.User, pq.Array(entry.Roles), entry.Action,
		entry.Params, nullIfEmpty(entry.RuleID), approvalBy, approvalAt, entry.Result, entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// AuditFilters represents filters for audit log queries
type AuditFilters struct {
	Result    *models.AuditResult
	RuleID    *string
	User      *string
	Action    *string
	StartTime *time.Time
	EndTime   *time.Time
}

// ListAuditEntries retrieves audit entries with pagination and filters,
// newest first.
func (r *AuditRepository) ListAuditEntries(
	ctx context.Context,
	filters *AuditFilters,
	limit, offset int,
) ([]models.AuditEntry, int64, error) {
	whereClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if filters != nil {
		if filters.Result != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("result = $%d", argPos))
			args = append(args, *filters.Result)
			argPos++
		}
		if filters.RuleID != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("rule_id = $%d", argPos))
			args = append(args, *filters.RuleID)
			argPos++
		}
		if filters.User != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("actor = $%d", argPos))
			args = append(args, *filters.User)
			argPos++
		}
		if filters.Action != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("action = $%d", argPos))
			args = append(args, *filters.Action)
			argPos++
		}
		if filters.StartTime != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("timestamp >= $%d", argPos))
			args = append(args, *filters.StartTime)
			argPos++
		}
		if filters.EndTime != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("timestamp <= $%d", argPos))
			args = append(args, *filters.EndTime)
			argPos++
		}
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_log %s", whereSQL)
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT id, timestamp, actor, roles, action, params, rule_id, approval_by, approval_at, result, reason
		FROM audit_log %s
		ORDER BY timestamp DESC
		LIMIT $%d OFFSET $%d`, whereSQL, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditEntry(row rowScanner) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{}
	var ruleID *string
	var approvalBy *string
	var approvalAt *time.Time

	err := row.Scan(
		&entry.ID, &entry.Timestamp, &entry.User, pq.Array(&entry.Roles), &entry.Action,
		&entry.Params, &ruleID, &approvalBy, &approvalAt, &entry.Result, &entry.Reason,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	if ruleID != nil {
		entry.RuleID = *ruleID
	}
	if approvalBy != nil && approvalAt != nil {
		entry.Approval = &models.AuditApproval{By: *approvalBy, At: *approvalAt}
	}

	return entry, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
