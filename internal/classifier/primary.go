package classifier

import (
	"context"
	"fmt"
	"time"
)

// PrimaryClassifier asks a generative model for a classification.
type PrimaryClassifier struct {
	generator TextGenerator
	timeout   time.Duration
}

// NewPrimaryClassifier returns a classifier backed by gen. A nil generator is
// allowed and makes every call fail with ErrGeneratorUnavailable.
func NewPrimaryClassifier(gen TextGenerator, timeout time.Duration) *PrimaryClassifier {
	return &PrimaryClassifier{generator: gen, timeout: timeout}
}

func (p *PrimaryClassifier) Enabled() bool {
	return p != nil && p.generator != nil
}

func (p *PrimaryClassifier) Model() string {
	if !p.Enabled() {
		return ""
	}
	return p.generator.Model()
}

// Classify sends the prompt for text and parses the reply. Errors wrap
// ErrGeneratorUnavailable, ErrParse, ErrSchema or the generator's own error.
func (p *PrimaryClassifier) Classify(ctx context.Context, text string) (Result, error) {
	if !p.Enabled() {
		return Result{}, ErrGeneratorUnavailable
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	reply, err := p.generator.Generate(ctx, BuildPrompt(text))
	if err != nil {
		return Result{}, fmt.Errorf("classifier: generate with %s: %w", p.generator.Model(), err)
	}
	return ParseReply(reply)
}
