package classifier

import (
	"fmt"
	"strings"

	"github.com/automax/grievance-backend/internal/models"
)

const promptTemplate = `You are the classification assistant of a state government grievance cell.
Classify the citizen grievance below.

Valid departments: %s

Risk score is an integer from 1 to 5: 1 is a minor inconvenience, 3 affects a neighbourhood's
daily life, 5 is an urgent threat to life, health or an essential service.

Respond with ONLY a JSON object with exactly these three fields and no other text:
{"department": "<one of the valid departments>", "risk_score": <integer 1-5>, "ai_suggested_action": "<one short sentence>"}

Grievance:
"""
%s
"""`

// BuildPrompt returns the model prompt for a normalized grievance text. The
// output depends only on its input.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, strings.Join(models.Departments, ", "), text)
}
