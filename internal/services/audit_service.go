package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/internal/repository/postgres"
	"github.com/meridianerp/policyflow/pkg/database"
	"github.com/meridianerp/policyflow/pkg/logger"
	"github.com/meridianerp/policyflow/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AuditRepository defines the interface for audit log persistence
type AuditRepository interface {
	CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error
	ListAuditEntries(ctx context.Context, filters *postgres.AuditFilters, limit, offset int) ([]models.AuditEntry, int64, error)
}

// AuditService handles the durable audit trail. It implements the
// coordinator's AuditRecorder: synchronous writes go straight to storage,
// entries that miss their deadline are parked on a redis list and drained by
// a background worker.
type AuditService struct {
	auditRepo AuditRepository
	redis     *database.RedisClient
	queueKey  string
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(
	auditRepo AuditRepository,
	redisClient *database.RedisClient,
	queueKey string,
	m *metrics.Metrics,
	log *logger.Logger,
) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		redis:     redisClient,
		queueKey:  queueKey,
		metrics:   m,
		logger:    log,
	}
}

// Record appends an audit entry to durable storage.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditEntry) error {
	if err := s.auditRepo.CreateAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	s.logger.Debug("Audit entry recorded",
		zap.String("entry_id", entry.ID.String()),
		zap.String("result", string(entry.Result)),
		zap.String("action", entry.Action),
	)
	return nil
}

// Enqueue durably parks an entry on the overflow queue for later delivery.
func (s *AuditService) Enqueue(ctx context.Context, entry *models.AuditEntry) error {
	if s.redis == nil {
		return fmt.Errorf("audit queue not configured")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if err := s.redis.LPush(ctx, s.queueKey, data); err != nil {
		return fmt.Errorf("failed to enqueue audit entry: %w", err)
	}

	s.observeQueueDepth(ctx)
	return nil
}

// DrainQueue delivers up to max queued entries to durable storage, returning
// the number delivered. An entry that fails to insert is pushed back and
// draining stops, so nothing is lost.
func (s *AuditService) DrainQueue(ctx context.Context, max int) (int, error) {
	if s.redis == nil {
		return 0, nil
	}

	drained := 0
	for drained < max {
		data, err := s.redis.RPop(ctx, s.queueKey)
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return drained, fmt.Errorf("failed to pop audit entry: %w", err)
		}

		var entry models.AuditEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			// A corrupt entry would wedge the queue; log it and move on.
			s.logger.Error("Dropping undecodable audit queue entry", zap.Error(err))
			continue
		}

		if err := s.auditRepo.CreateAuditEntry(ctx, &entry); err != nil {
			if pushErr := s.redis.LPush(ctx, s.queueKey, data); pushErr != nil {
				s.logger.Error("Audit entry lost: requeue failed",
					zap.String("entry_id", entry.ID.String()),
					zap.Error(pushErr),
				)
			}
			return drained, fmt.Errorf("failed to deliver queued audit entry: %w", err)
		}

		drained++
		if s.metrics != nil {
			s.metrics.AuditQueueDrained.Inc()
		}
	}

	s.observeQueueDepth(ctx)
	return drained, nil
}

// List retrieves audit entries with filters, newest first.
func (s *AuditService) List(
	ctx context.Context,
	filters *postgres.AuditFilters,
	limit, offset int,
) ([]models.AuditEntry, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.auditRepo.ListAuditEntries(ctx, filters, limit, offset)
}

func (s *AuditService) observeQueueDepth(ctx context.Context) {
	if s.metrics == nil || s.redis == nil {
		return
	}
	if depth, err := s.redis.LLen(ctx, s.queueKey); err == nil {
		s.metrics.AuditQueueDepth.Set(float64(depth))
	}
}
