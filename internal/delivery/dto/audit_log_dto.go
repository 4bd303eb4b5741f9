package dto

import (
	"time"

	"dispensary-queue/internal/domain/entity"

	"github.com/google/uuid"
)

// Request DTOs

type AuditLogListRequest struct {
	Action string     `validate:"omitempty,max=100"`
	UserID *uuid.UUID `validate:"omitempty"`
	Page   int        `validate:"gte=1"`
	Limit  int        `validate:"gte=1,lte=100"`
}

// Response DTOs

type AuditLogResponse struct {
	ID        int64       `json:"id"`
	UserID    *uuid.UUID  `json:"user_id,omitempty"`
	Action    string      `json:"action"`
	Metadata  entity.JSON `json:"metadata"`
	CreatedAt time.Time   `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs       []AuditLogResponse `json:"logs"`
	Page       int                `json:"-"`
	Limit      int                `json:"-"`
	Total      int64              `json:"-"`
	TotalPages int                `json:"-"`
}
