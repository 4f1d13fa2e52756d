package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/google/uuid"
)

type notificationRepo struct{ s *Store }

func (r notificationRepo) InsertBatch(ctx context.Context, notifications []notification.Notification) error {
	defer r.s.lock(ctx)()

	for _, n := range notifications {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		r.s.data.notifications[n.ID] = n
	}
	return nil
}

func (r notificationRepo) List(ctx context.Context, filter notification.ListFilter) ([]notification.Notification, int, error) {
	defer r.s.rlock(ctx)()

	matched := []notification.Notification{}
	for _, n := range r.s.data.notifications {
		if n.RecipientID != filter.RecipientID || (filter.UnreadOnly && n.IsRead()) {
			continue
		}
		matched = append(matched, n)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return paginate(matched, filter.Page, filter.Limit), len(matched), nil
}

func (r notificationRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	defer r.s.rlock(ctx)()

	count := 0
	for _, n := range r.s.data.notifications {
		if n.RecipientID == recipientID && !n.IsRead() {
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) MarkRead(ctx context.Context, recipientID string, ids []string, at time.Time) (int, error) {
	defer r.s.lock(ctx)()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	updated := 0
	for id, n := range r.s.data.notifications {
		if n.RecipientID != recipientID || n.IsRead() {
			continue
		}
		if len(ids) > 0 && !wanted[id] {
			continue
		}
		readAt := at
		n.ReadAt = &readAt
		r.s.data.notifications[id] = n
		updated++
	}
	return updated, nil
}
