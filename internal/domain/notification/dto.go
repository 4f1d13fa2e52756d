package notification

import (
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
)

// Draft is a notification handed to the service before it has an id.
type Draft struct {
	RecipientID string
	SenderID    *string
	Type        Type
	Title       string
	Message     string
	Subject     *Subject
	Details     map[string]any
}

func (d Draft) Validate() error {
	if validator.IsEmpty(d.RecipientID) {
		return validator.ValidationErrors{{Field: "recipient_id", Message: "recipient_id is required"}}
	}
	if !d.Type.IsValid() {
		return ErrInvalidNotificationType
	}
	return nil
}

type ListQuery struct {
	Page       int
	Limit      int
	UnreadOnly bool
}

// MarkAsReadRequest marks the listed notifications read, or every unread
// notification of the caller when All is set.
type MarkAsReadRequest struct {
	NotificationIDs []string `json:"notification_ids" validate:"omitempty,dive,required"`
	All             bool     `json:"all"`
}

func (r *MarkAsReadRequest) Validate() error {
	if len(r.NotificationIDs) == 0 && !r.All {
		return validator.ValidationErrors{{Field: "notification_ids", Message: "notification_ids is required unless all is true"}}
	}
	return validator.Struct(r)
}

type NotificationResponse struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Subject   *Subject       `json:"subject,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	IsRead    bool           `json:"is_read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func NewNotificationResponse(n Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Subject:   n.Subject,
		Details:   n.Details,
		IsRead:    n.IsRead(),
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int                    `json:"total"`
	UnreadCount   int                    `json:"unread_count"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

type MarkAsReadResponse struct {
	Updated     int `json:"updated"`
	UnreadCount int `json:"unread_count"`
}

type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// SSEEvent is one message on a recipient's stream.
type SSEEvent struct {
	Event string               `json:"event"`
	Data  NotificationResponse `json:"data"`
}
