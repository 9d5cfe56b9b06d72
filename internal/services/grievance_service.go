package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/automax/grievance-backend/internal/classifier"
	"github.com/automax/grievance-backend/internal/models"
	"github.com/automax/grievance-backend/internal/repository"
	"github.com/automax/grievance-backend/pkg/utils"
)

const (
	// HighRiskScore is the lowest risk counted as high risk in stats.
	HighRiskScore = 4

	MaxAttachmentSize = 10 << 20

	recentListCacheKey = "grievances:recent"
)

var allowedAttachmentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ListCache caches the default grievance listing. Implementations return an
// error for a miss.
type ListCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ObjectStore holds attachment bodies.
type ObjectStore interface {
	Upload(ctx context.Context, folder, fileName string, r io.Reader, size int64, contentType string) (string, error)
	PresignedURL(ctx context.Context, objectName string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

type AttachmentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type GrievanceService interface {
	Submit(ctx context.Context, req *models.ClassifyRequest, submittedBy string) (*models.ClassifyResponse, error)
	List(ctx context.Context, filter *models.GrievanceFilter) ([]models.GrievanceResponse, error)
	Get(ctx context.Context, tokenID string) (*models.GrievanceResponse, error)
	UpdateStatus(ctx context.Context, tokenID string, req *models.StatusUpdateRequest) (*models.GrievanceResponse, error)
	History(ctx context.Context, tokenID string) ([]models.GrievanceStatusChange, error)
	Stats(ctx context.Context) (*models.GrievanceStats, error)

	// Attachments
	AddAttachment(ctx context.Context, tokenID string, upload *AttachmentUpload, uploadedBy string) (*models.GrievanceAttachmentResponse, error)
	ListAttachments(ctx context.Context, tokenID string) ([]models.GrievanceAttachmentResponse, error)
}

type grievanceService struct {
	repo     repository.GrievanceRepository
	pipeline *classifier.Pipeline
	cache    ListCache
	cacheTTL time.Duration
	store    ObjectStore
	log      *zap.Logger

	// listGen is bumped on every invalidation. A listing read that overlaps
	// one is not written back to the cache.
	listGen atomic.Uint64
}

// NewGrievanceService wires the grievance use cases. repo may be nil when the
// database is not ready; cache and store are optional.
func NewGrievanceService(repo repository.GrievanceRepository, pipeline *classifier.Pipeline, cache ListCache, cacheTTL time.Duration, store ObjectStore, log *zap.Logger) GrievanceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &grievanceService{
		repo:     repo,
		pipeline: pipeline,
		cache:    cache,
		cacheTTL: cacheTTL,
		store:    store,
		log:      log,
	}
}

func (s *grievanceService) Submit(ctx context.Context, req *models.ClassifyRequest, submittedBy string) (*models.ClassifyResponse, error) {
	text, err := classifier.Normalize(req.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if s.repo == nil {
		return nil, fmt.Errorf("%w: database not ready", ErrDependencyUnavailable)
	}

	result := s.pipeline.Classify(ctx, text)

	now := time.Now().UTC()
	grievance := &models.Grievance{
		TokenID:              utils.GenerateTokenID(),
		GrievanceText:        text,
		Department:           result.Department,
		RiskScore:            models.ClampRiskScore(result.RiskScore),
		AISuggestedAction:    result.SuggestedAction,
		AIClassificationUsed: result.AIUsed,
		Status:               models.StatusPendingReview,
		LocationWard:         strings.TrimSpace(req.LocationWard),
		SubmittedBy:          submittedBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Create(ctx, grievance); err != nil {
		s.log.Error("Failed to persist grievance", zap.String("token_id", grievance.TokenID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	grievancesCreatedTotal.WithLabelValues(grievance.Department).Inc()
	s.invalidateRecent(ctx)

	s.log.Info("Grievance registered",
		zap.String("token_id", grievance.TokenID),
		zap.String("department", grievance.Department),
		zap.Int("risk_score", grievance.RiskScore),
		zap.Bool("ai_classification_used", grievance.AIClassificationUsed),
	)

	return &models.ClassifyResponse{
		TokenID:           grievance.TokenID,
		Department:        grievance.Department,
		RiskScore:         grievance.RiskScore,
		AISuggestedAction: grievance.AISuggestedAction,
	}, nil
}

func (s *grievanceService) List(ctx context.Context, filter *models.GrievanceFilter) ([]models.GrievanceResponse, error) {
	if filter == nil {
		filter = &models.GrievanceFilter{}
	}
	if filter.Status != "" && !models.IsValidStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	if filter.Department != "" {
		department := models.NormalizeDepartment(filter.Department)
		if !strings.EqualFold(department, strings.TrimSpace(filter.Department)) {
			return nil, fmt.Errorf("%w: unknown department %q", ErrValidation, filter.Department)
		}
		filter.Department = department
	}
	if filter.Limit < 0 || filter.Limit > repository.MaxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, repository.MaxListLimit)
	}
	if s.repo == nil {
		return nil, fmt.Errorf("%w: database not ready", ErrDependencyUnavailable)
	}

	cacheable := isDefaultListing(filter)
	if cacheable && s.cache != nil {
		var cached []models.GrievanceResponse
		err := s.cache.Get(ctx, recentListCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		s.log.Debug("Recent grievance cache miss", zap.Error(err))
	}

	gen := s.listGen.Load()
	grievances, err := s.repo.List(ctx, filter)
	if err != nil {
		s.log.Error("Failed to list grievances", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	responses := make([]models.GrievanceResponse, 0, len(grievances))
	for i := range grievances {
		responses = append(responses, models.ToGrievanceResponse(&grievances[i]))
	}

	if cacheable && s.cache != nil && s.listGen.Load() == gen {
		if err := s.cache.Set(ctx, recentListCacheKey, responses, s.cacheTTL); err != nil {
			s.log.Warn("Failed to cache recent grievances", zap.Error(err))
		}
	}
	return responses, nil
}

func (s *grievanceService) Get(ctx context.Context, tokenID string) (*models.GrievanceResponse, error) {
	grievance, err := s.find(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	resp := models.ToGrievanceResponse(grievance)
	return &resp, nil
}

func (s *grievanceService) UpdateStatus(ctx context.Context, tokenID string, req *models.StatusUpdateRequest) (*models.GrievanceResponse, error) {
	if !models.IsValidStatus(req.Status) {
		return nil, fmt.Errorf("%w: status must be one of %s", ErrValidation, strings.Join(models.Statuses, ", "))
	}
	if s.repo == nil {
		return nil, fmt.Errorf("%w: database not ready", ErrDependencyUnavailable)
	}

	grievance, err := s.repo.UpdateStatus(ctx, tokenID, req.Status, req.AdminNotes)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.log.Error("Failed to update grievance status", zap.String("token_id", tokenID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	statusUpdatesTotal.WithLabelValues(req.Status).Inc()
	s.invalidateRecent(ctx)

	s.log.Info("Grievance status updated", zap.String("token_id", tokenID), zap.String("status", req.Status))

	resp := models.ToGrievanceResponse(grievance)
	return &resp, nil
}

func (s *grievanceService) History(ctx context.Context, tokenID string) ([]models.GrievanceStatusChange, error) {
	if _, err := s.find(ctx, tokenID); err != nil {
		return nil, err
	}
	changes, err := s.repo.ListStatusChanges(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return changes, nil
}

func (s *grievanceService) Stats(ctx context.Context) (*models.GrievanceStats, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("%w: database not ready", ErrDependencyUnavailable)
	}
	stats, err := s.repo.GetStats(ctx, HighRiskScore)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return stats, nil
}

// Attachments

func (s *grievanceService) AddAttachment(ctx context.Context, tokenID string, upload *AttachmentUpload, uploadedBy string) (*models.GrievanceAttachmentResponse, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: object storage not configured", ErrDependencyUnavailable)
	}
	if upload.Size <= 0 || upload.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("%w: file size must be between 1 byte and %d bytes", ErrValidation, MaxAttachmentSize)
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(upload.ContentType, ";")[0]))
	if !allowedAttachmentTypes[contentType] {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrValidation, upload.ContentType)
	}
	if _, err := s.find(ctx, tokenID); err != nil {
		return nil, err
	}

	objectName, err := s.store.Upload(ctx, tokenID, upload.FileName, upload.Body, upload.Size, contentType)
	if err != nil {
		s.log.Error("Failed to upload attachment", zap.String("token_id", tokenID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	attachment := &models.GrievanceAttachment{
		TokenID:     tokenID,
		FileName:    upload.FileName,
		ObjectName:  objectName,
		ContentType: contentType,
		Size:        upload.Size,
		UploadedBy:  uploadedBy,
	}
	if err := s.repo.CreateAttachment(ctx, attachment); err != nil {
		if delErr := s.store.Delete(ctx, objectName); delErr != nil {
			s.log.Warn("Failed to remove orphaned attachment", zap.String("object", objectName), zap.Error(delErr))
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	resp := models.ToGrievanceAttachmentResponse(attachment, s.presign(ctx, objectName))
	return &resp, nil
}

func (s *grievanceService) ListAttachments(ctx context.Context, tokenID string) ([]models.GrievanceAttachmentResponse, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: object storage not configured", ErrDependencyUnavailable)
	}
	if _, err := s.find(ctx, tokenID); err != nil {
		return nil, err
	}

	attachments, err := s.repo.ListAttachments(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	responses := make([]models.GrievanceAttachmentResponse, 0, len(attachments))
	for i := range attachments {
		responses = append(responses, models.ToGrievanceAttachmentResponse(&attachments[i], s.presign(ctx, attachments[i].ObjectName)))
	}
	return responses, nil
}

func (s *grievanceService) find(ctx context.Context, tokenID string) (*models.Grievance, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("%w: database not ready", ErrDependencyUnavailable)
	}
	grievance, err := s.repo.FindByToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return grievance, nil
}

func (s *grievanceService) presign(ctx context.Context, objectName string) string {
	url, err := s.store.PresignedURL(ctx, objectName)
	if err != nil {
		s.log.Warn("Failed to presign attachment URL", zap.String("object", objectName), zap.Error(err))
		return ""
	}
	return url
}

func (s *grievanceService) invalidateRecent(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.listGen.Add(1)
	if err := s.cache.Delete(ctx, recentListCacheKey); err != nil {
		s.log.Warn("Failed to invalidate recent grievance cache", zap.Error(err))
	}
}

func isDefaultListing(filter *models.GrievanceFilter) bool {
	return filter.Status == "" && filter.Department == "" &&
		(filter.Limit == 0 || filter.Limit == repository.DefaultListLimit)
}
