package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, cfg Config) (notification.Service, notification.Repository, *sse.Hub) {
	t.Helper()
	store := memory.NewStore()
	hub := sse.NewHub(8)
	svc := NewNotificationService(store.Notifications(), hub, clock.Fixed(fixedNow), cfg)
	t.Cleanup(svc.Stop)
	return svc, store.Notifications(), hub
}

func draft(recipient string) notification.Draft {
	return notification.Draft{
		RecipientID: recipient,
		Type:        notification.TypeTicketAssigned,
		Title:       "Ticket assigned",
		Message:     "You were assigned a ticket",
		Subject:     &notification.Subject{Kind: notification.SubjectTicket, ID: "t-1"},
	}
}

func TestEnqueue_WritesQueuedDraftsOnStop(t *testing.T) {
	svc, repo, _ := newService(t, Config{FlushInterval: time.Hour})

	require.NoError(t, svc.Enqueue(context.Background(), draft("u-1")))
	require.NoError(t, svc.Enqueue(context.Background(), draft("u-1")))
	svc.Stop()

	count, err := repo.CountUnread(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEnqueue_FullBatchIsWrittenAndPublished(t *testing.T) {
	svc, _, hub := newService(t, Config{BatchSize: 1, FlushInterval: time.Hour, WorkerCount: 1})
	stream, cancel := hub.Subscribe("u-1")
	defer cancel()

	require.NoError(t, svc.Enqueue(context.Background(), draft("u-1")))

	select {
	case ev := <-stream:
		assert.Equal(t, EventName, ev.Name)
		resp, ok := ev.Data.(notification.NotificationResponse)
		require.True(t, ok)
		assert.Equal(t, notification.TypeTicketAssigned, resp.Type)
		require.NotNil(t, resp.Subject)
		assert.Equal(t, "t-1", resp.Subject.ID)
		assert.True(t, resp.CreatedAt.Equal(fixedNow))
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not published")
	}
}

func TestEnqueue_FullQueueWritesDirectly(t *testing.T) {
	store := memory.NewStore()
	impl := &NotificationServiceImpl{
		Repository: store.Notifications(),
		clock:      clock.Fixed(fixedNow),
		queue:      make(chan notification.Notification),
		stopCh:     make(chan struct{}),
	}

	require.NoError(t, impl.Enqueue(context.Background(), draft("u-1")))

	count, err := store.Notifications().CountUnread(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEnqueue_Rejections(t *testing.T) {
	svc, _, _ := newService(t, Config{})

	unknown := draft("u-1")
	unknown.Type = "shift_swapped"
	assert.ErrorIs(t, svc.Enqueue(context.Background(), unknown), notification.ErrInvalidNotificationType)

	var fieldErrs validator.ValidationErrors
	assert.ErrorAs(t, svc.Enqueue(context.Background(), draft("")), &fieldErrs)

	svc.Stop()
	assert.ErrorIs(t, svc.Enqueue(context.Background(), draft("u-1")), notification.ErrServiceStopped)
}

func TestEnqueue_AcceptedDraftsSurviveConcurrentStop(t *testing.T) {
	svc, repo, _ := newService(t, Config{FlushInterval: time.Hour, QueueSize: 4096})

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				err := svc.Enqueue(context.Background(), draft("u-1"))
				if err == nil {
					accepted.Add(1)
					continue
				}
				assert.ErrorIs(t, err, notification.ErrServiceStopped)
				return
			}
		}()
	}
	svc.Stop()
	wg.Wait()

	count, err := repo.CountUnread(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, int(accepted.Load()), count)
}

func TestEnqueueAll_ReportsFirstFailure(t *testing.T) {
	svc, repo, _ := newService(t, Config{FlushInterval: time.Hour})
	bad := draft("u-2")
	bad.Type = ""

	err := svc.EnqueueAll(context.Background(), []notification.Draft{draft("u-1"), bad})
	assert.ErrorIs(t, err, notification.ErrInvalidNotificationType)

	svc.Stop()
	count, err := repo.CountUnread(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkRead(t *testing.T) {
	svc, repo, _ := newService(t, Config{})
	ctx := context.Background()

	require.NoError(t, repo.InsertBatch(ctx, []notification.Notification{
		{ID: "n-1", RecipientID: "u-1", Type: notification.TypeTicketClosed, CreatedAt: fixedNow},
		{ID: "n-2", RecipientID: "u-1", Type: notification.TypeTicketReopened, CreatedAt: fixedNow.Add(time.Minute)},
		{ID: "n-3", RecipientID: "u-2", Type: notification.TypeTicketClosed, CreatedAt: fixedNow},
	}))

	// n-3 belongs to u-2 and is left alone
	res, err := svc.MarkRead(ctx, "u-1", notification.MarkAsReadRequest{NotificationIDs: []string{"n-1", "n-3"}})
	require.NoError(t, err)
	assert.Equal(t, notification.MarkAsReadResponse{Updated: 1, UnreadCount: 1}, res)

	list, err := svc.List(ctx, "u-1", notification.ListQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "n-2", list.Notifications[0].ID)
	assert.True(t, list.Notifications[1].IsRead)
	require.NotNil(t, list.Notifications[1].ReadAt)
	assert.True(t, list.Notifications[1].ReadAt.Equal(fixedNow))

	other, err := svc.UnreadCount(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, 1, other)

	res, err = svc.MarkRead(ctx, "u-1", notification.MarkAsReadRequest{All: true})
	require.NoError(t, err)
	assert.Equal(t, notification.MarkAsReadResponse{Updated: 1, UnreadCount: 0}, res)

	_, err = svc.MarkRead(ctx, "u-1", notification.MarkAsReadRequest{})
	var fieldErrs validator.ValidationErrors
	assert.ErrorAs(t, err, &fieldErrs)
}

func TestList_PagingDefaults(t *testing.T) {
	svc, _, _ := newService(t, Config{})

	list, err := svc.List(context.Background(), "u-1", notification.ListQuery{Limit: 500, UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.Limit)
	assert.Empty(t, list.Notifications)
}

func TestSubscribe_ConvertsHubEvents(t *testing.T) {
	svc, _, hub := newService(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, unsubscribe := svc.Subscribe(ctx, "u-1")
	defer unsubscribe()

	hub.Publish(sse.Event{UserID: "u-1", Name: EventName, Data: "not a notification"})
	hub.Publish(sse.Event{UserID: "u-1", Name: EventName, Data: notification.NotificationResponse{ID: "n-9"}})

	select {
	case ev := <-stream:
		assert.Equal(t, "n-9", ev.Data.ID)
		assert.Equal(t, EventName, ev.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not forwarded")
	}
}
