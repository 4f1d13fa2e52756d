package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type notificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, recipient_id, sender_id, type, title, message, data, read_at, created_at`

// notificationPayload is the shape of the data column.
type notificationPayload struct {
	Subject *notification.Subject `json:"subject,omitempty"`
	Details map[string]any        `json:"details,omitempty"`
}

func encodePayload(n notification.Notification) ([]byte, error) {
	if n.Subject == nil && len(n.Details) == 0 {
		return nil, nil
	}
	return json.Marshal(notificationPayload{Subject: n.Subject, Details: n.Details})
}

// InsertBatch implements notification.Repository using COPY.
func (r *notificationRepository) InsertBatch(ctx context.Context, notifications []notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	rows := make([][]any, len(notifications))
	for i, n := range notifications {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		payload, err := encodePayload(n)
		if err != nil {
			return fmt.Errorf("failed to encode notification payload: %w", err)
		}
		rows[i] = []any{
			n.ID, n.RecipientID, n.SenderID, string(n.Type), n.Title, n.Message,
			payload, n.ReadAt != nil, n.ReadAt, n.CreatedAt,
		}
	}

	_, err := q.CopyFrom(ctx,
		pgx.Identifier{"notifications"},
		[]string{"id", "recipient_id", "sender_id", "type", "title", "message", "data", "is_read", "read_at", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notifications: %w", err)
	}
	return nil
}

func scanNotification(row pgx.Row) (notification.Notification, error) {
	var (
		n       notification.Notification
		payload []byte
	)
	if err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.SenderID,
		&n.Type,
		&n.Title,
		&n.Message,
		&payload,
		&n.ReadAt,
		&n.CreatedAt,
	); err != nil {
		return notification.Notification{}, err
	}

	if len(payload) > 0 {
		var p notificationPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return notification.Notification{}, fmt.Errorf("failed to decode notification payload: %w", err)
		}
		n.Subject = p.Subject
		n.Details = p.Details
	}
	return n, nil
}

// List implements notification.Repository.
func (r *notificationRepository) List(ctx context.Context, filter notification.ListFilter) ([]notification.Notification, int, error) {
	q := GetQuerier(ctx, r.db)

	where := `recipient_id = $1`
	if filter.UnreadOnly {
		where += ` AND read_at IS NULL`
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, filter.RecipientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE `+where+`
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		filter.RecipientID, filter.Limit, (filter.Page-1)*filter.Limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	items := []notification.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

// CountUnread implements notification.Repository.
func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read_at IS NULL`, recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead implements notification.Repository.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID string, ids []string, at time.Time) (int, error) {
	if len(ids) > 0 {
		// ids that are not uuids cannot match a row
		valid := ids[:0:0]
		for _, id := range ids {
			if _, err := uuid.Parse(id); err == nil {
				valid = append(valid, id)
			}
		}
		if len(valid) == 0 {
			return 0, nil
		}
		ids = valid
	}
	q := GetQuerier(ctx, r.db)

	query := `UPDATE notifications SET is_read = TRUE, read_at = $1 WHERE recipient_id = $2 AND read_at IS NULL`
	args := []any{at, recipientID}
	if len(ids) > 0 {
		query += ` AND id = ANY($3::uuid[])`
		args = append(args, ids)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
