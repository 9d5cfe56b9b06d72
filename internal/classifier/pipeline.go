package classifier

import (
	"context"

	"go.uber.org/zap"
)

// Outcome counts primary and fallback classifications.
type Outcome interface {
	ObserveClassification(aiUsed bool, primaryErr error)
}

// Pipeline runs the primary classifier and falls back to keyword rules on any
// failure. It never returns an error.
type Pipeline struct {
	primary *PrimaryClassifier
	logger  *zap.Logger
	outcome Outcome
}

func NewPipeline(primary *PrimaryClassifier, logger *zap.Logger, outcome Outcome) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{primary: primary, logger: logger, outcome: outcome}
}

// AIEnabled reports whether a primary model is configured.
func (p *Pipeline) AIEnabled() bool {
	return p.primary.Enabled()
}

func (p *Pipeline) Model() string {
	return p.primary.Model()
}

// Classify expects already-normalized text.
func (p *Pipeline) Classify(ctx context.Context, text string) Result {
	var primaryErr error
	if p.primary.Enabled() {
		result, err := p.primary.Classify(ctx, text)
		if err == nil {
			p.observe(true, nil)
			return result
		}
		primaryErr = err
		p.logger.Warn("primary classification failed, using keyword rules",
			zap.String("model", p.primary.Model()),
			zap.Error(err),
		)
	}

	result := ClassifyByKeywords(text)
	p.observe(false, primaryErr)
	return result
}

func (p *Pipeline) observe(aiUsed bool, err error) {
	if p.outcome != nil {
		p.outcome.ObserveClassification(aiUsed, err)
	}
}
