package database

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/automax/grievance-backend/internal/models"
	"github.com/automax/grievance-backend/pkg/utils"
)

var seedWards = []string{"Kothrud", "Hadapsar", "Wakad", "Viman Nagar", "Hinjewadi"}

var seedTemplates = []string{
	"The %s service in my area (%s) has been broken for 5 days. We need an immediate fix.",
	"I filed a complaint about poor %s services in %s three weeks ago, and no one has responded.",
	"Frequent issues with the local %s office near the %s crossing are causing significant disruption.",
	"Can someone from the %s department please inspect the overflowing bins at the corner of %s?",
	"The officials responsible for %s are unresponsive to citizen concerns regarding the damage in %s.",
}

// MockGrievance builds one randomized grievance for demos and load checks.
func MockGrievance(r *rand.Rand, now time.Time) models.Grievance {
	ward := seedWards[r.IntN(len(seedWards))]
	department := models.Departments[r.IntN(len(models.Departments))]
	text := fmt.Sprintf(seedTemplates[r.IntN(len(seedTemplates))], strings.ToLower(department), ward)
	created := now.Add(-time.Duration(r.IntN(30*24)) * time.Hour)

	return models.Grievance{
		TokenID:       utils.GenerateTokenID(),
		GrievanceText: text,
		Department:    department,
		RiskScore:     models.MinRiskScore + r.IntN(models.MaxRiskScore),
		Status:        models.Statuses[r.IntN(len(models.Statuses))],
		LocationWard:  ward,
		SubmittedBy:   "seed",
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

// SeedMockGrievances inserts n mock grievances in batches.
func SeedMockGrievances(db *gorm.DB, n int, r *rand.Rand, log *zap.Logger) error {
	if n <= 0 {
		return nil
	}
	log.Info("Seeding mock grievances", zap.Int("count", n))

	now := time.Now().UTC()
	records := make([]models.Grievance, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, MockGrievance(r, now))
	}

	if err := db.CreateInBatches(records, 100).Error; err != nil {
		return fmt.Errorf("failed to seed grievances: %w", err)
	}
	log.Info("Seeding completed", zap.Int("count", n))
	return nil
}
