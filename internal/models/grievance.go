package models

import (
	"strings"
	"time"
)

// Department labels a grievance can be routed to.
const (
	DepartmentWaterResources   = "Water Resources"
	DepartmentEnergy           = "Energy"
	DepartmentPublicWorks      = "Public Works"
	DepartmentHealth           = "Health"
	DepartmentEducation        = "Education"
	DepartmentUrbanDevelopment = "Urban Development"
	DepartmentHome             = "Home"
	DepartmentOther            = "Other"
)

// Departments is the closed label set, in the order it is presented to the model.
var Departments = []string{
	DepartmentWaterResources,
	DepartmentEnergy,
	DepartmentPublicWorks,
	DepartmentHealth,
	DepartmentEducation,
	DepartmentUrbanDevelopment,
	DepartmentHome,
	DepartmentOther,
}

// NormalizeDepartment maps a label case-insensitively onto Departments.
// Unknown labels map to Other.
func NormalizeDepartment(label string) string {
	label = strings.TrimSpace(label)
	for _, d := range Departments {
		if strings.EqualFold(d, label) {
			return d
		}
	}
	return DepartmentOther
}

const (
	StatusPendingReview = "Pending Review"
	StatusInProgress    = "In Progress"
	StatusResolved      = "Resolved"
	StatusRejected      = "Rejected"
)

var Statuses = []string{
	StatusPendingReview,
	StatusInProgress,
	StatusResolved,
	StatusRejected,
}

// IsValidStatus reports whether s is exactly one of Statuses.
func IsValidStatus(s string) bool {
	for _, status := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

const (
	MinRiskScore = 1
	MaxRiskScore = 5
)

// ClampRiskScore bounds a score to [MinRiskScore, MaxRiskScore].
func ClampRiskScore(score int) int {
	if score < MinRiskScore {
		return MinRiskScore
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}

// Grievance is a citizen complaint with its classification. TokenID and
// GrievanceText are written once at creation.
type Grievance struct {
	TokenID              string    `gorm:"primaryKey;size:32" json:"token_id"`
	GrievanceText        string    `gorm:"type:text;not null" json:"grievance_text"`
	Department           string    `gorm:"size:50;index;not null" json:"department"`
	RiskScore            int       `gorm:"not null" json:"risk_score"`
	AISuggestedAction    string    `gorm:"type:text" json:"ai_suggested_action"`
	AIClassificationUsed bool      `gorm:"not null;default:false" json:"ai_classification_used"`
	Status               string    `gorm:"size:20;index;not null" json:"status"`
	AdminNotes           string    `gorm:"type:text" json:"admin_notes,omitempty"`
	LocationWard         string    `gorm:"size:100" json:"location_ward,omitempty"`
	SubmittedBy          string    `gorm:"size:255" json:"submitted_by,omitempty"`
	CreatedAt            time.Time `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// GrievanceStatusChange records one successful status update.
type GrievanceStatusChange struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TokenID    string    `gorm:"size:32;index;not null" json:"token_id"`
	FromStatus string    `gorm:"size:20;not null" json:"from_status"`
	ToStatus   string    `gorm:"size:20;not null" json:"to_status"`
	AdminNotes string    `gorm:"type:text" json:"admin_notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClassifyRequest is the body of POST /classify. Length rules are enforced by
// the normalizer after trimming.
type ClassifyRequest struct {
	Text         string `json:"text" validate:"required"`
	LocationWard string `json:"location_ward" validate:"max=100"`
}

type ClassifyResponse struct {
	TokenID           string `json:"token_id"`
	Department        string `json:"department"`
	RiskScore         int    `json:"risk_score"`
	AISuggestedAction string `json:"ai_suggested_action"`
}

type StatusUpdateRequest struct {
	Status     string  `json:"status" validate:"required"`
	AdminNotes *string `json:"admin_notes" validate:"omitempty,max=2000"`
}

type GrievanceFilter struct {
	Status     string
	Department string
	Limit      int
}

type GrievanceResponse struct {
	TokenID              string `json:"token_id"`
	GrievanceText        string `json:"grievance_text"`
	Department           string `json:"department"`
	RiskScore            int    `json:"risk_score"`
	AISuggestedAction    string `json:"ai_suggested_action"`
	AIClassificationUsed bool   `json:"ai_classification_used"`
	Status               string `json:"status"`
	AdminNotes           string `json:"admin_notes,omitempty"`
	LocationWard         string `json:"location_ward,omitempty"`
	Timestamp            string `json:"timestamp"`
	UpdatedAt            string `json:"updated_at"`
}

func ToGrievanceResponse(g *Grievance) GrievanceResponse {
	return GrievanceResponse{
		TokenID:              g.TokenID,
		GrievanceText:        g.GrievanceText,
		Department:           g.Department,
		RiskScore:            g.RiskScore,
		AISuggestedAction:    g.AISuggestedAction,
		AIClassificationUsed: g.AIClassificationUsed,
		Status:               g.Status,
		AdminNotes:           g.AdminNotes,
		LocationWard:         g.LocationWard,
		Timestamp:            g.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            g.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type GrievanceStats struct {
	Total             int64            `json:"total"`
	ByStatus          map[string]int64 `json:"by_status"`
	ByDepartment      map[string]int64 `json:"by_department"`
	HighRiskPending   int64            `json:"high_risk_pending"`
	AIClassifiedTotal int64            `json:"ai_classified_total"`
}
