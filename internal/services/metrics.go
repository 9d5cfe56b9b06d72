package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/automax/grievance-backend/internal/classifier"
)

var (
	classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_classifications_total",
		Help: "Classifications by the path that produced them (ai or fallback).",
	}, []string{"path"})

	primaryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_primary_classifier_failures_total",
		Help: "Primary classifier failures absorbed by the keyword fallback, by reason.",
	}, []string{"reason"})

	grievancesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievances_created_total",
		Help: "Grievances persisted, by department.",
	}, []string{"department"})

	statusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_status_updates_total",
		Help: "Successful status updates, by new status.",
	}, []string{"status"})

	stalePendingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grievance_stale_high_risk_pending",
		Help: "Highest-risk grievances still pending review past the escalation window.",
	})
)

// ClassificationMetrics records pipeline outcomes in Prometheus.
type ClassificationMetrics struct{}

func (ClassificationMetrics) ObserveClassification(aiUsed bool, primaryErr error) {
	if aiUsed {
		classificationsTotal.WithLabelValues("ai").Inc()
		return
	}
	classificationsTotal.WithLabelValues("fallback").Inc()
	if primaryErr != nil {
		primaryFailuresTotal.WithLabelValues(failureReason(primaryErr)).Inc()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, classifier.ErrParse):
		return "parse"
	case errors.Is(err, classifier.ErrSchema):
		return "schema"
	case errors.Is(err, classifier.ErrGeneratorUnavailable):
		return "unavailable"
	default:
		return "generator"
	}
}
