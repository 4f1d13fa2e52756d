package notification

import "github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"

var (
	ErrInvalidNotificationType = apperr.New(apperr.KindValidation, "invalid notification type")
	// ErrQueueFull means the notification could be neither queued nor written directly
	ErrQueueFull      = apperr.New(apperr.KindExternalDegraded, "notification queue is full")
	ErrServiceStopped = apperr.New(apperr.KindExternalDegraded, "notification service is stopped")
)
