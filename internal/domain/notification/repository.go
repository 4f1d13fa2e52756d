package notification

import (
	"context"
	"time"
)

// ListFilter selects one recipient's notifications, newest first.
type ListFilter struct {
	RecipientID string
	UnreadOnly  bool
	Page        int
	Limit       int
}

type Repository interface {
	InsertBatch(ctx context.Context, notifications []Notification) error
	List(ctx context.Context, filter ListFilter) ([]Notification, int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)

	// MarkRead sets ReadAt on the recipient's unread notifications in ids, or
	// on all of them when ids is empty, and returns how many changed.
	MarkRead(ctx context.Context, recipientID string, ids []string, at time.Time) (int, error)
}
