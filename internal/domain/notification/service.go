package notification

import (
	"context"
)

// Service delivers in-app notifications. Drafts are written in batches by
// background workers and pushed to the recipient's open streams.
type Service interface {
	Enqueue(ctx context.Context, draft Draft) error

	// EnqueueAll tries every draft and returns the first failure
	EnqueueAll(ctx context.Context, drafts []Draft) error

	List(ctx context.Context, recipientID string, query ListQuery) (*NotificationListResponse, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID string, req MarkAsReadRequest) (MarkAsReadResponse, error)

	Subscribe(ctx context.Context, recipientID string) (<-chan SSEEvent, func())

	// Stop writes what is still queued and waits for the workers
	Stop()
}
