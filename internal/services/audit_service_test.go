package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/internal/repository/postgres"
	"github.com/meridianerp/policyflow/pkg/logger"
)

type fakeAuditRepo struct {
	entries   []models.AuditEntry
	createErr error

	lastLimit  int
	lastOffset int
}

func (r *fakeAuditRepo) CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) ListAuditEntries(ctx context.Context, filters *postgres.AuditFilters, limit, offset int) ([]models.AuditEntry, int64, error) {
	r.lastLimit = limit
	r.lastOffset = offset
	return r.entries, int64(len(r.entries)), nil
}

func newTestAuditService(repo *fakeAuditRepo) *AuditService {
	return NewAuditService(repo, nil, "audit:queue", nil, logger.NewNop())
}

func auditFixture() *models.AuditEntry {
	return &models.AuditEntry{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		User:      "alice",
		Roles:     []string{"sales-clerk"},
		Action:    "submit",
		Result:    models.AuditExecuted,
	}
}

func TestRecord(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := newTestAuditService(repo)

	if err := svc.Record(context.Background(), auditFixture()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("repository has %d entries, want 1", len(repo.entries))
	}
}

func TestRecordWrapsStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	svc := newTestAuditService(&fakeAuditRepo{createErr: cause})

	err := svc.Record(context.Background(), auditFixture())
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want wrapped %v", err, cause)
	}
}

func TestEnqueueWithoutQueue(t *testing.T) {
	svc := newTestAuditService(&fakeAuditRepo{})

	if err := svc.Enqueue(context.Background(), auditFixture()); err == nil {
		t.Fatal("expected error when no queue is configured")
	}
}

func TestDrainQueueWithoutQueue(t *testing.T) {
	svc := newTestAuditService(&fakeAuditRepo{})

	drained, err := svc.DrainQueue(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if drained != 0 {
		t.Errorf("drained = %d, want 0", drained)
	}
}

func TestListClampsLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{"zero falls back to default", 0, 20},
		{"negative falls back to default", -5, 20},
		{"over cap falls back to default", 500, 20},
		{"in range passes through", 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeAuditRepo{}
			svc := newTestAuditService(repo)

			if _, _, err := svc.List(context.Background(), nil, tt.limit, 10); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if repo.lastLimit != tt.expected {
				t.Errorf("limit = %d, want %d", repo.lastLimit, tt.expected)
			}
			if repo.lastOffset != 10 {
				t.Errorf("offset = %d, want 10", repo.lastOffset)
			}
		})
	}
}
