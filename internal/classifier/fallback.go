package classifier

import (
	"regexp"
	"strings"

	"github.com/automax/grievance-backend/internal/models"
)

const (
	manualReviewAction = "Requires manual review by the grievance cell"
	manualReviewRisk   = 3
)

var urgencyKeywords = []string{
	"week", "day", "emergency", "urgent", "immediately", "hospital", "death", "accident",
}

type keywordRule struct {
	department string
	keywords   []string
	words      *regexp.Regexp // short keywords matched as whole words
	action     string
	risk       int
	urgentRisk int
}

func (r keywordRule) matches(lower string) bool {
	return containsAny(lower, r.keywords) || (r.words != nil && r.words.MatchString(lower))
}

// Energy precedes Water Resources so that "supply" in a power complaint does
// not route it to water.
var keywordRules = []keywordRule{
	{
		department: models.DepartmentEnergy,
		keywords:   []string{"electric", "power cut", "power outage", "power supply", "no power", "load shedding", "transformer", "voltage", "blackout"},
		action:     "Dispatch the electricity distribution maintenance team to inspect the line and restore supply",
		risk:       3,
		urgentRisk: 5,
	},
	{
		department: models.DepartmentWaterResources,
		keywords:   []string{"water", "pipeline", "tanker", "borewell", "drinking"},
		words:      regexp.MustCompile(`\btaps?\b`),
		action:     "Alert the water supply division to inspect the pipeline and arrange tanker supply if needed",
		risk:       4,
		urgentRisk: 5,
	},
	{
		department: models.DepartmentHealth,
		keywords:   []string{"hospital", "doctor", "clinic", "medicine", "ambulance", "dengue", "malaria", "disease", "health", "mosquito"},
		action:     "Notify the district health officer to inspect the facility and deploy medical staff",
		risk:       4,
		urgentRisk: 5,
	},
	{
		department: models.DepartmentHome,
		keywords:   []string{"police", "theft", "crime", "harassment", "violence", "robbery", "assault", "threat", "stolen"},
		action:     "Forward to the local police station for investigation and patrolling",
		risk:       4,
		urgentRisk: 5,
	},
	{
		department: models.DepartmentPublicWorks,
		keywords:   []string{"road", "pothole", "bridge", "footpath", "flyover", "highway"},
		action:     "Assign the public works engineer to survey the site and schedule repairs",
		risk:       3,
		urgentRisk: 4,
	},
	{
		department: models.DepartmentUrbanDevelopment,
		keywords:   []string{"garbage", "waste", "sanitation", "drainage", "sewage", "sewer", "street light", "streetlight", "encroachment", "dustbin"},
		action:     "Direct the municipal ward office to clear the site and restore civic services",
		risk:       3,
		urgentRisk: 4,
	},
	{
		department: models.DepartmentEducation,
		keywords:   []string{"school", "teacher", "college", "education", "scholarship", "student", "exam"},
		action:     "Refer to the block education officer for inspection and follow-up with the institution",
		risk:       2,
		urgentRisk: 3,
	},
}

// ClassifyByKeywords classifies text with the keyword rules. It is pure and
// always returns a valid department and a risk score in range.
func ClassifyByKeywords(text string) Result {
	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		if !rule.matches(lower) {
			continue
		}
		risk := rule.risk
		if containsAny(lower, urgencyKeywords) {
			risk = rule.urgentRisk
		}
		return Result{
			Department:      rule.department,
			RiskScore:       models.ClampRiskScore(risk),
			SuggestedAction: rule.action,
		}
	}
	return Result{
		Department:      models.DepartmentOther,
		RiskScore:       manualReviewRisk,
		SuggestedAction: manualReviewAction,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
