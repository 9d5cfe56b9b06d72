package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GrievanceAttachment is a photo or document stored in object storage.
type GrievanceAttachment struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TokenID     string    `gorm:"size:32;index;not null" json:"token_id"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	ObjectName  string    `gorm:"size:500;not null" json:"-"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `gorm:"size:255" json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *GrievanceAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type GrievanceAttachmentResponse struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToGrievanceAttachmentResponse(a *GrievanceAttachment, url string) GrievanceAttachmentResponse {
	return GrievanceAttachmentResponse{
		ID:          a.ID,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Size:        a.Size,
		URL:         url,
		CreatedAt:   a.CreatedAt,
	}
}
