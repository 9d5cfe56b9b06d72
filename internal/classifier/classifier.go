// Package classifier turns grievance text into a department, a risk score and
// a suggested action. A model-backed primary classifier is tried first; any
// failure there is absorbed by deterministic keyword rules.
package classifier

import (
	"context"
	"errors"
)

var (
	// ErrParse means no JSON object could be extracted from or decoded out of
	// the model reply.
	ErrParse = errors.New("classifier: unparsable model reply")
	// ErrSchema means the decoded object is missing a required field or holds
	// an unusable value.
	ErrSchema = errors.New("classifier: model reply does not match schema")
	// ErrGeneratorUnavailable means no text generator is configured.
	ErrGeneratorUnavailable = errors.New("classifier: text generator unavailable")
)

// Result is a complete classification. AIUsed is true only when the primary
// classifier produced it.
type Result struct {
	Department      string
	RiskScore       int
	SuggestedAction string
	AIUsed          bool
}

// TextGenerator sends a prompt to a generative model and returns its raw reply.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}
