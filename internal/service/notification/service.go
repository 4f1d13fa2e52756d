package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/sse"
	"github.com/google/uuid"
)

// EventName is the SSE event name of a delivered notification.
const EventName = "notification"

const (
	defaultLimit = 20
	maxLimit     = 100
	flushTimeout = 30 * time.Second
)

type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
}

func (c *Config) withDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1000
	}
}

type NotificationServiceImpl struct {
	notification.Repository

	hub    *sse.Hub
	clock  clock.Clock
	config Config

	queue    chan notification.Notification
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once

	// stopMu orders queue sends before the close of stopCh, so the final
	// drain sees every accepted notification.
	stopMu  sync.RWMutex
	stopped bool
}

// NewNotificationService starts cfg.WorkerCount writers. Call Stop to flush
// them on shutdown.
func NewNotificationService(repo notification.Repository, hub *sse.Hub, clk clock.Clock, cfg Config) notification.Service {
	cfg.withDefaults()
	if clk == nil {
		clk = clock.Real{}
	}

	s := &NotificationServiceImpl{
		Repository: repo,
		hub:        hub,
		clock:      clk,
		config:     cfg,
		queue:      make(chan notification.Notification, cfg.QueueSize),
		stopCh:     make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("notification service started",
		"workers", cfg.WorkerCount,
		"batch_size", cfg.BatchSize,
		"flush_interval", cfg.FlushInterval.String(),
	)
	return s
}

// worker writes queued notifications when a batch fills, on every tick, and
// once more after Stop.
func (s *NotificationServiceImpl) worker(id int) {
	defer s.wg.Done()
	logger := slog.With("component", fmt.Sprintf("[NotificationWorker-%d]", id))

	batch := make([]notification.Notification, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	add := func(n notification.Notification) {
		batch = append(batch, n)
		if len(batch) >= s.config.BatchSize {
			s.flush(logger, batch)
			batch = batch[:0]
		}
	}

	for {
		select {
		case n := <-s.queue:
			add(n)
		case <-ticker.C:
			s.flush(logger, batch)
			batch = batch[:0]
		case <-s.stopCh:
			for {
				select {
				case n := <-s.queue:
					add(n)
				default:
					s.flush(logger, batch)
					return
				}
			}
		}
	}
}

func (s *NotificationServiceImpl) flush(logger *slog.Logger, batch []notification.Notification) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := s.Repository.InsertBatch(ctx, batch); err != nil {
		logger.ErrorContext(ctx, "failed to write notification batch", "count", len(batch), "error", err)
		return
	}
	logger.DebugContext(ctx, "notification batch written", "count", len(batch))
	for _, n := range batch {
		s.publish(n)
	}
}

func (s *NotificationServiceImpl) publish(n notification.Notification) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(sse.Event{
		UserID: n.RecipientID,
		Name:   EventName,
		Data:   notification.NewNotificationResponse(n),
	})
}

func (s *NotificationServiceImpl) fromDraft(d notification.Draft) notification.Notification {
	return notification.Notification{
		ID:          uuid.NewString(),
		RecipientID: d.RecipientID,
		SenderID:    d.SenderID,
		Type:        d.Type,
		Title:       d.Title,
		Message:     d.Message,
		Subject:     d.Subject,
		Details:     d.Details,
		CreatedAt:   s.clock.Now(),
	}
}

// Enqueue implements notification.Service. A full queue falls back to a
// direct write; after Stop nothing is accepted.
func (s *NotificationServiceImpl) Enqueue(ctx context.Context, draft notification.Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}

	n := s.fromDraft(draft)
	queued, err := s.offer(ctx, n)
	if err != nil || queued {
		return err
	}

	if err := s.Repository.InsertBatch(ctx, []notification.Notification{n}); err != nil {
		return fmt.Errorf("%w: %v", notification.ErrQueueFull, err)
	}
	s.publish(n)
	return nil
}

// offer queues n without blocking. It reports false when the queue is full.
func (s *NotificationServiceImpl) offer(ctx context.Context, n notification.Notification) (bool, error) {
	s.stopMu.RLock()
	defer s.stopMu.RUnlock()

	if s.stopped {
		return false, notification.ErrServiceStopped
	}
	select {
	case s.queue <- n:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	default:
		return false, nil
	}
}

// EnqueueAll implements notification.Service.
func (s *NotificationServiceImpl) EnqueueAll(ctx context.Context, drafts []notification.Draft) error {
	var firstErr error
	for _, d := range drafts {
		if err := s.Enqueue(ctx, d); err != nil {
			slog.WarnContext(ctx, "failed to enqueue notification",
				"recipient_id", d.RecipientID,
				"type", string(d.Type),
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// List implements notification.Service.
func (s *NotificationServiceImpl) List(ctx context.Context, recipientID string, query notification.ListQuery) (*notification.NotificationListResponse, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 || query.Limit > maxLimit {
		query.Limit = defaultLimit
	}

	items, total, err := s.Repository.List(ctx, notification.ListFilter{
		RecipientID: recipientID,
		UnreadOnly:  query.UnreadOnly,
		Page:        query.Page,
		Limit:       query.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	responses := make([]notification.NotificationResponse, len(items))
	for i, n := range items {
		responses[i] = notification.NewNotificationResponse(n)
	}

	return &notification.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		UnreadCount:   unread,
		Page:          query.Page,
		Limit:         query.Limit,
	}, nil
}

// UnreadCount implements notification.Service.
func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	count, err := s.Repository.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead implements notification.Service. Ids of other recipients are
// ignored.
func (s *NotificationServiceImpl) MarkRead(ctx context.Context, recipientID string, req notification.MarkAsReadRequest) (notification.MarkAsReadResponse, error) {
	if err := req.Validate(); err != nil {
		return notification.MarkAsReadResponse{}, err
	}

	ids := req.NotificationIDs
	if req.All {
		ids = nil
	}
	updated, err := s.Repository.MarkRead(ctx, recipientID, ids, s.clock.Now())
	if err != nil {
		return notification.MarkAsReadResponse{}, fmt.Errorf("failed to mark notifications as read: %w", err)
	}

	unread, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		return notification.MarkAsReadResponse{}, err
	}
	return notification.MarkAsReadResponse{Updated: updated, UnreadCount: unread}, nil
}

// Subscribe implements notification.Service. The stream closes when ctx ends,
// the returned func is called, or the hub shuts down.
func (s *NotificationServiceImpl) Subscribe(ctx context.Context, recipientID string) (<-chan notification.SSEEvent, func()) {
	events, cancel := s.hub.Subscribe(recipientID)
	out := make(chan notification.SSEEvent, 10)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				resp, ok := event.Data.(notification.NotificationResponse)
				if !ok {
					continue
				}
				select {
				case out <- notification.SSEEvent{Event: event.Name, Data: resp}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel
}

// Stop implements notification.Service. Safe to call more than once.
func (s *NotificationServiceImpl) Stop() {
	s.stopOnce.Do(func() {
		s.stopMu.Lock()
		s.stopped = true
		close(s.stopCh)
		s.stopMu.Unlock()

		s.wg.Wait()
		slog.Info("notification service stopped")
	})
}
