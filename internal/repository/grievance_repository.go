package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/automax/grievance-backend/internal/models"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

type GrievanceRepository interface {
	Create(ctx context.Context, grievance *models.Grievance) error
	FindByToken(ctx context.Context, tokenID string) (*models.Grievance, error)
	List(ctx context.Context, filter *models.GrievanceFilter) ([]models.Grievance, error)

	// UpdateStatus changes status and, when notes is non-nil, admin notes, and
	// records the change in the status history. Returns gorm.ErrRecordNotFound
	// for an unknown token.
	UpdateStatus(ctx context.Context, tokenID, status string, notes *string) (*models.Grievance, error)
	ListStatusChanges(ctx context.Context, tokenID string) ([]models.GrievanceStatusChange, error)

	// Attachments
	CreateAttachment(ctx context.Context, attachment *models.GrievanceAttachment) error
	ListAttachments(ctx context.Context, tokenID string) ([]models.GrievanceAttachment, error)

	// Stats
	GetStats(ctx context.Context, highRisk int) (*models.GrievanceStats, error)
	CountStalePending(ctx context.Context, minRisk int, createdBefore time.Time) (int64, error)
}

type grievanceRepository struct {
	db *gorm.DB
}

func NewGrievanceRepository(db *gorm.DB) GrievanceRepository {
	return &grievanceRepository{db: db}
}

func (r *grievanceRepository) Create(ctx context.Context, grievance *models.Grievance) error {
	return r.db.WithContext(ctx).Create(grievance).Error
}

func (r *grievanceRepository) FindByToken(ctx context.Context, tokenID string) (*models.Grievance, error) {
	var grievance models.Grievance
	if err := r.db.WithContext(ctx).First(&grievance, "token_id = ?", tokenID).Error; err != nil {
		return nil, err
	}
	return &grievance, nil
}

func (r *grievanceRepository) List(ctx context.Context, filter *models.GrievanceFilter) ([]models.Grievance, error) {
	var grievances []models.Grievance

	query := r.db.WithContext(ctx).Model(&models.Grievance{})

	limit := DefaultListLimit
	if filter != nil {
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.Department != "" {
			query = query.Where("department = ?", filter.Department)
		}
		if filter.Limit > 0 && filter.Limit <= MaxListLimit {
			limit = filter.Limit
		}
	}

	err := query.
		Order("created_at DESC").
		Order("token_id DESC").
		Limit(limit).
		Find(&grievances).Error
	if err != nil {
		return nil, err
	}
	return grievances, nil
}

func (r *grievanceRepository) UpdateStatus(ctx context.Context, tokenID, status string, notes *string) (*models.Grievance, error) {
	var grievance models.Grievance

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&grievance, "token_id = ?", tokenID).Error; err != nil {
			return err
		}

		change := models.GrievanceStatusChange{
			TokenID:    tokenID,
			FromStatus: grievance.Status,
			ToStatus:   status,
		}

		updates := map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}
		if notes != nil {
			updates["admin_notes"] = *notes
			change.AdminNotes = *notes
		}

		if err := tx.Model(&models.Grievance{}).Where("token_id = ?", tokenID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Create(&change).Error; err != nil {
			return err
		}
		return tx.First(&grievance, "token_id = ?", tokenID).Error
	})
	if err != nil {
		return nil, err
	}
	return &grievance, nil
}

func (r *grievanceRepository) ListStatusChanges(ctx context.Context, tokenID string) ([]models.GrievanceStatusChange, error) {
	var changes []models.GrievanceStatusChange
	err := r.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&changes).Error
	return changes, err
}

// Attachments

func (r *grievanceRepository) CreateAttachment(ctx context.Context, attachment *models.GrievanceAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *grievanceRepository) ListAttachments(ctx context.Context, tokenID string) ([]models.GrievanceAttachment, error) {
	var attachments []models.GrievanceAttachment
	err := r.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("created_at ASC").
		Find(&attachments).Error
	return attachments, err
}

// Stats

type labelCount struct {
	Label string
	Total int64
}

func (r *grievanceRepository) GetStats(ctx context.Context, highRisk int) (*models.GrievanceStats, error) {
	stats := &models.GrievanceStats{
		ByStatus:     make(map[string]int64),
		ByDepartment: make(map[string]int64),
	}

	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Grievance{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var byStatus []labelCount
	if err := db.Model(&models.Grievance{}).
		Select("status AS label, COUNT(*) AS total").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Label] = row.Total
	}

	var byDepartment []labelCount
	if err := db.Model(&models.Grievance{}).
		Select("department AS label, COUNT(*) AS total").
		Group("department").
		Scan(&byDepartment).Error; err != nil {
		return nil, err
	}
	for _, row := range byDepartment {
		stats.ByDepartment[row.Label] = row.Total
	}

	if err := db.Model(&models.Grievance{}).
		Where("status = ? AND risk_score >= ?", models.StatusPendingReview, highRisk).
		Count(&stats.HighRiskPending).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Grievance{}).
		Where("ai_classification_used = ?", true).
		Count(&stats.AIClassifiedTotal).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *grievanceRepository) CountStalePending(ctx context.Context, minRisk int, createdBefore time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Grievance{}).
		Where("status = ?", models.StatusPendingReview).
		Where("risk_score >= ?", minRisk).
		Where("created_at < ?", createdBefore).
		Count(&count).Error
	return count, err
}
