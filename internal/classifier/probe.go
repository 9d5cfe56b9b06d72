package classifier

import (
	"context"
	"strings"
	"time"
)

const probePrompt = "Say 'Hello' if you can read this"

// DefaultProbeModels are tried in order by ProbeModels when no list is given.
var DefaultProbeModels = []string{
	"gemini-1.0-pro-002",
	"gemini-1.0-pro",
	"gemini-pro",
	"gemini-1.5-flash-001",
}

type ProbeResult struct {
	Model string
	Reply string
	Err   error
}

// ProbeModels sends a trivial prompt to each model in turn and stops at the
// first one that answers. It returns every attempt made and the working model,
// or "" when none answered.
func ProbeModels(ctx context.Context, generatorFor func(model string) TextGenerator, models []string, timeout time.Duration) (string, []ProbeResult) {
	if len(models) == 0 {
		models = DefaultProbeModels
	}

	results := make([]ProbeResult, 0, len(models))
	for _, model := range models {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		reply, err := generatorFor(model).Generate(callCtx, probePrompt)
		cancel()

		results = append(results, ProbeResult{Model: model, Reply: strings.TrimSpace(reply), Err: err})
		if err == nil {
			return model, results
		}
		if ctx.Err() != nil {
			break
		}
	}
	return "", results
}
