package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/automax/grievance-backend/internal/models"
	"github.com/automax/grievance-backend/internal/repository"
)

// EscalationMonitor periodically reports highest-risk grievances that are
// still pending review after the escalation window.
type EscalationMonitor interface {
	Start(ctx context.Context)
	Stop()
	CheckEscalations(ctx context.Context) (int64, error)
}

type escalationMonitor struct {
	repo     repository.GrievanceRepository
	interval time.Duration
	after    time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool
}

func NewEscalationMonitor(repo repository.GrievanceRepository, checkInterval, escalateAfter time.Duration, log *zap.Logger) EscalationMonitor {
	if checkInterval == 0 {
		checkInterval = 10 * time.Minute
	}
	if escalateAfter == 0 {
		escalateAfter = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &escalationMonitor{
		repo:     repo,
		interval: checkInterval,
		after:    escalateAfter,
		log:      log,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

func (m *escalationMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.log.Info("Escalation monitor started", zap.Duration("interval", m.interval), zap.Duration("escalate_after", m.after))

	go func() {
		if _, err := m.CheckEscalations(ctx); err != nil {
			m.log.Warn("Initial escalation check failed", zap.Error(err))
		}

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := m.CheckEscalations(ctx); err != nil {
					m.log.Warn("Escalation check failed", zap.Error(err))
				}
			case <-m.stopChan:
				m.log.Info("Escalation monitor stopped")
				return
			case <-ctx.Done():
				m.log.Info("Escalation monitor context cancelled")
				return
			}
		}
	}()
}

func (m *escalationMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopChan)
}

func (m *escalationMonitor) CheckEscalations(ctx context.Context) (int64, error) {
	cutoff := m.now().UTC().Add(-m.after)
	stale, err := m.repo.CountStalePending(ctx, models.MaxRiskScore, cutoff)
	if err != nil {
		return 0, err
	}
	stalePendingGauge.Set(float64(stale))

	if stale > 0 {
		m.log.Warn("High-risk grievances awaiting review past escalation window",
			zap.Int64("count", stale),
			zap.Duration("escalate_after", m.after),
		)
	}

	stats, err := m.repo.GetStats(ctx, HighRiskScore)
	if err != nil {
		m.log.Warn("Failed to get grievance stats", zap.Error(err))
	} else {
		m.log.Info("Grievance status",
			zap.Int64("total", stats.Total),
			zap.Int64("pending", stats.ByStatus[models.StatusPendingReview]),
			zap.Int64("in_progress", stats.ByStatus[models.StatusInProgress]),
			zap.Int64("high_risk_pending", stats.HighRiskPending),
		)
	}
	return stale, nil
}
