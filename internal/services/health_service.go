package services

import (
	"context"
	"time"
)

const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"

	DependencyConnected   = "connected"
	DependencyUnavailable = "unavailable"
	DependencyDisabled    = "disabled"
)

// Pinger reports whether a backing dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthReport struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Database  string    `json:"database"`
	AIModel   string    `json:"ai_model"`
	Cache     string    `json:"cache"`
	Storage   string    `json:"storage"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *HealthReport) Healthy() bool {
	return r.Status == HealthStatusHealthy
}

type HealthService interface {
	Check(ctx context.Context) *HealthReport
}

type healthService struct {
	serviceName string
	database    Pinger
	aiModel     string
	cache       Pinger
	storage     Pinger
	timeout     time.Duration
}

// NewHealthService builds a checker. A nil database means it never connected;
// an empty aiModel means no model client is configured; nil cache or storage
// are reported as disabled.
func NewHealthService(serviceName string, database Pinger, aiModel string, cache, storage Pinger) HealthService {
	return &healthService{
		serviceName: serviceName,
		database:    database,
		aiModel:     aiModel,
		cache:       cache,
		storage:     storage,
		timeout:     2 * time.Second,
	}
}

func (s *healthService) Check(ctx context.Context) *HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := &HealthReport{
		Service:   s.serviceName,
		Database:  probe(ctx, s.database, DependencyUnavailable),
		AIModel:   s.aiModel,
		Cache:     probe(ctx, s.cache, DependencyDisabled),
		Storage:   probe(ctx, s.storage, DependencyDisabled),
		Timestamp: time.Now().UTC(),
	}
	if report.AIModel == "" {
		report.AIModel = DependencyUnavailable
	}

	report.Status = HealthStatusDegraded
	if report.Database == DependencyConnected && s.aiModel != "" {
		report.Status = HealthStatusHealthy
	}
	return report
}

func probe(ctx context.Context, p Pinger, absent string) string {
	if p == nil {
		return absent
	}
	if err := p.Ping(ctx); err != nil {
		return DependencyUnavailable
	}
	return DependencyConnected
}
