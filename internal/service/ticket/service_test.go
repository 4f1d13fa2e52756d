package ticket

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/sideeffect"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zoneID = "zone-north"

type recordingNotifier struct {
	notification.Service
	mu   sync.Mutex
	sent []notification.Draft
}

func (n *recordingNotifier) EnqueueAll(_ context.Context, drafts []notification.Draft) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, drafts...)
	return nil
}

type stubFiles struct {
	refs    []ticket.PhotoRef
	err     error
	mu      sync.Mutex
	deleted []string
}

func (f *stubFiles) StorePhotos(context.Context, string, []ticket.PhotoUpload) ([]ticket.PhotoRef, error) {
	return f.refs, f.err
}

func (f *stubFiles) DeleteFile(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type recordingActivities struct {
	activity.ActivityService
	mu   sync.Mutex
	logs []activity.TicketWorkLog
}

func (a *recordingActivities) LogTicketTransition(_ context.Context, log activity.TicketWorkLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

type fixture struct {
	store    *memory.Store
	svc      *TicketServiceImpl
	runner   *sideeffect.Runner
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		runner:   sideeffect.NewRunner(sideeffect.Options{Attempts: 1}, nil),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewTicketService(
		f.store, f.store.Tickets(), f.store.History(), f.store.Audit(),
		&stubFiles{}, nil, f.notifier, f.runner,
		clock.Func(func() time.Time { return f.now }),
	).(*TicketServiceImpl)
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func asActor(role user.Role, id string) context.Context {
	zone := zoneID
	return user.WithActor(context.Background(), user.Actor{UserID: id, Role: role, ZoneID: &zone})
}

func (f *fixture) createAssigned(t *testing.T, assignee string) ticket.TicketResponse {
	t.Helper()
	resp, err := f.svc.CreateTicket(asActor(user.RoleZoneManager, "manager-1"), ticket.CreateTicketRequest{
		Title:        "Generator fault",
		Priority:     ticket.PriorityHigh,
		ZoneID:       zoneID,
		AssignedToID: &assignee,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) move(t *testing.T, ctx context.Context, id string, to ticket.Status) ticket.TicketResponse {
	t.Helper()
	resp, err := f.svc.UpdateStatus(ctx, ticket.UpdateStatusRequest{TicketID: id, Status: to})
	require.NoError(t, err)
	return resp
}

func ptr[T any](v T) *T { return &v }

// ===== CREATE TICKET TESTS =====

func TestCreateTicket_OpenWithHistoryAndAudit(t *testing.T) {
	f := newFixture(t)

	resp := f.createAssigned(t, "staff-1")

	assert.Equal(t, ticket.StatusOpen, resp.Status)
	assert.Equal(t, "manager-1", resp.OwnerID)
	assert.Zero(t, resp.TimeInStatus)
	assert.Zero(t, resp.TotalTimeOpen)

	history, err := f.svc.GetHistory(asActor(user.RoleAdmin, "admin-1"), resp.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].PreviousStatus)

	entries := f.store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionTicketCreated, entries[0].Action)

	require.NoError(t, f.runner.Wait(context.Background()))
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notification.TypeTicketAssigned, f.notifier.sent[0].Type)
}

func TestCreateTicket_OtherZoneDenied(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateTicket(asActor(user.RoleZoneManager, "manager-1"), ticket.CreateTicketRequest{
		Title:    "Leak",
		Priority: ticket.PriorityLow,
		ZoneID:   "zone-south",
	})

	assert.ErrorIs(t, err, ticket.ErrZoneOutOfScope)
}

// ===== UPDATE STATUS TESTS =====

func TestUpdateStatus_MetricsAndHistory(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")
	staff := asActor(user.RoleFieldStaff, "staff-1")

	f.advance(90 * time.Minute)
	resp := f.move(t, staff, created.ID, ticket.StatusInProgress)

	// Assert
	assert.Equal(t, ticket.StatusInProgress, resp.Status)
	assert.Equal(t, f.now, resp.LastStatusChange)
	assert.Equal(t, 90, resp.TimeInStatus)
	assert.Equal(t, 90, resp.TotalTimeOpen)

	f.advance(30 * time.Minute)
	resp = f.move(t, staff, created.ID, ticket.StatusOnsiteVisitPlanned)
	assert.Equal(t, 30, resp.TimeInStatus)
	assert.Equal(t, 120, resp.TotalTimeOpen)
	require.NotNil(t, resp.VisitPlannedAt)

	history, err := f.svc.GetHistory(staff, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ticket.StatusInProgress, *history[2].PreviousStatus)
	assert.Equal(t, ticket.StatusOnsiteVisitPlanned, history[2].Status)
}

func TestUpdateStatus_ClockSkewClampsMetrics(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")

	f.advance(-10 * time.Minute)
	resp := f.move(t, asActor(user.RoleFieldStaff, "staff-1"), created.ID, ticket.StatusInProgress)

	assert.Zero(t, resp.TimeInStatus)
	assert.Zero(t, resp.TotalTimeOpen)
}

func TestUpdateStatus_InvalidTransitionLeavesTicketUntouched(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")
	staff := asActor(user.RoleFieldStaff, "staff-1")

	// Act
	_, err := f.svc.UpdateStatus(staff, ticket.UpdateStatusRequest{TicketID: created.ID, Status: ticket.StatusClosed})

	// Assert
	var transitionErr *ticket.InvalidTransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, ticket.StatusOpen, transitionErr.From)
	assert.Equal(t, ticket.StatusClosed, transitionErr.To)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	got, err := f.svc.GetTicket(staff, created.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusOpen, got.Status)
	history, err := f.svc.GetHistory(staff, created.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateStatus_AccessDenied(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")

	_, err := f.svc.UpdateStatus(asActor(user.RoleFieldStaff, "staff-2"), ticket.UpdateStatusRequest{
		TicketID: created.ID,
		Status:   ticket.StatusInProgress,
	})

	assert.ErrorIs(t, err, ticket.ErrTicketAccessDenied)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus(asActor(user.RoleAdmin, "admin-1"), ticket.UpdateStatusRequest{
		TicketID: "missing",
		Status:   ticket.StatusAssigned,
	})

	assert.ErrorIs(t, err, ticket.ErrTicketNotFound)
}

func TestUpdateStatus_FeedbackOnlyWhenClosing(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")

	_, err := f.svc.UpdateStatus(asActor(user.RoleFieldStaff, "staff-1"), ticket.UpdateStatusRequest{
		TicketID: created.ID,
		Status:   ticket.StatusInProgress,
		Rating:   ptr(5),
	})

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateStatus_ClosingTakesTwoSteps(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")
	staff := asActor(user.RoleFieldStaff, "staff-1")
	admin := asActor(user.RoleAdmin, "admin-1")

	f.move(t, staff, created.ID, ticket.StatusInProgress)
	f.move(t, staff, created.ID, ticket.StatusResolved)

	// Only field staff may enter CLOSED_PENDING
	_, err := f.svc.UpdateStatus(admin, ticket.UpdateStatusRequest{TicketID: created.ID, Status: ticket.StatusClosedPending})
	assert.ErrorIs(t, err, ticket.ErrRoleCannotEnterStatus)

	f.move(t, staff, created.ID, ticket.StatusClosedPending)

	// Only admins may close
	_, err = f.svc.UpdateStatus(staff, ticket.UpdateStatusRequest{TicketID: created.ID, Status: ticket.StatusClosed})
	assert.ErrorIs(t, err, ticket.ErrRoleCannotEnterStatus)

	closed, err := f.svc.UpdateStatus(admin, ticket.UpdateStatusRequest{
		TicketID: created.ID,
		Status:   ticket.StatusClosed,
		Feedback: ptr("Quick fix"),
		Rating:   ptr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, *closed.Rating)
	require.NotNil(t, closed.ClosedAt)

	history, err := f.svc.GetHistory(admin, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, ticket.StatusClosedPending, history[3].Status)
	assert.Equal(t, ticket.StatusClosed, history[4].Status)

	reopened := f.move(t, admin, created.ID, ticket.StatusReopened)
	assert.Nil(t, reopened.ClosedAt)
	assert.Nil(t, reopened.ResolvedAt)
	assert.NotNil(t, reopened.ReopenedAt)
}

func TestUpdateStatus_VisitLocationsAndDistance(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")
	staff := asActor(user.RoleFieldStaff, "staff-1")

	f.move(t, staff, created.ID, ticket.StatusInProgress)
	f.move(t, staff, created.ID, ticket.StatusOnsiteVisitPlanned)

	started, err := f.svc.UpdateStatus(staff, ticket.UpdateStatusRequest{
		TicketID: created.ID,
		Status:   ticket.StatusOnsiteVisitStarted,
		Location: &ticket.LocationInput{Latitude: ptr(-6.2), Longitude: ptr(106.8)},
	})
	require.NoError(t, err)
	require.NotNil(t, started.StartLocation)

	reached, err := f.svc.UpdateStatus(staff, ticket.UpdateStatusRequest{
		TicketID: created.ID,
		Status:   ticket.StatusOnsiteVisitReached,
		Location: &ticket.LocationInput{Latitude: ptr(-6.21), Longitude: ptr(106.8)},
	})
	require.NoError(t, err)

	// Assert
	require.NotNil(t, reached.TravelDistanceMeters)
	assert.InDelta(t, 1112, *reached.TravelDistanceMeters, 5)
	require.Len(t, reached.LocationHistory, 2)
	assert.Equal(t, ticket.StatusOnsiteVisitReached, reached.LocationHistory[1].Status)
}

func TestUpdateStatus_DegradedPhotosStillSucceed(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")
	f.svc.fileService = &stubFiles{
		refs: []ticket.PhotoRef{{Name: "meter.jpg", Size: 1024, Stored: false}},
		err:  apperr.New(apperr.KindExternalDegraded, "storage down"),
	}

	_, err := f.svc.UpdateStatus(asActor(user.RoleFieldStaff, "staff-1"), ticket.UpdateStatusRequest{
		TicketID: created.ID,
		Status:   ticket.StatusInProgress,
		Photos:   []ticket.PhotoUpload{{Filename: "meter.jpg", Size: 1024, Content: strings.NewReader("x")}},
	})
	require.NoError(t, err)

	history, err := f.svc.GetHistory(asActor(user.RoleAdmin, "admin-1"), created.ID)
	require.NoError(t, err)
	require.Len(t, history[1].Photos, 1)
	assert.False(t, history[1].Photos[0].Stored)
}

func TestUpdateStatus_RejectedTransitionDiscardsPhotos(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")
	files := &stubFiles{refs: []ticket.PhotoRef{
		{ID: "tickets/a.jpg", Name: "a.jpg", Stored: true},
		{Name: "b.jpg", Stored: false},
	}}
	f.svc.fileService = files

	_, err := f.svc.UpdateStatus(asActor(user.RoleFieldStaff, "staff-1"), ticket.UpdateStatusRequest{
		TicketID: created.ID,
		Status:   ticket.StatusClosed,
		Photos:   []ticket.PhotoUpload{{Filename: "a.jpg", Content: strings.NewReader("x")}},
	})
	var transitionErr *ticket.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)

	require.NoError(t, f.runner.Wait(context.Background()))
	files.mu.Lock()
	defer files.mu.Unlock()
	assert.Equal(t, []string{"tickets/a.jpg"}, files.deleted)
}

func TestUpdateStatus_LogsWorkForEveryRole(t *testing.T) {
	f := newFixture(t)
	activities := &recordingActivities{}
	f.svc.activityService = activities
	created := f.createAssigned(t, "staff-1")

	f.move(t, asActor(user.RoleZoneManager, "manager-1"), created.ID, ticket.StatusAssigned)
	f.move(t, asActor(user.RoleAdmin, "admin-1"), created.ID, ticket.StatusInProgress)
	require.NoError(t, f.runner.Wait(context.Background()))

	activities.mu.Lock()
	defer activities.mu.Unlock()
	require.Len(t, activities.logs, 2)
	byUser := map[string]activity.TicketWorkLog{}
	for _, log := range activities.logs {
		byUser[log.UserID] = log
	}
	assert.Equal(t, string(ticket.StatusAssigned), byUser["manager-1"].ToStatus)
	assert.Equal(t, string(ticket.StatusAssigned), byUser["admin-1"].FromStatus)
	assert.Equal(t, string(ticket.StatusInProgress), byUser["admin-1"].ToStatus)
}

func TestUpdateStatus_NotifiesParticipantsExceptActor(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")
	require.NoError(t, f.runner.Wait(context.Background()))
	f.notifier.sent = nil

	f.move(t, asActor(user.RoleFieldStaff, "staff-1"), created.ID, ticket.StatusInProgress)
	require.NoError(t, f.runner.Wait(context.Background()))

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "manager-1", f.notifier.sent[0].RecipientID)
	assert.Equal(t, notification.TypeTicketStatusChanged, f.notifier.sent[0].Type)
}

// ===== READ TESTS =====

func TestAllowedTransitions_FiltersRoleGate(t *testing.T) {
	f := newFixture(t)
	created := f.createAssigned(t, "staff-1")
	staff := asActor(user.RoleFieldStaff, "staff-1")
	f.move(t, staff, created.ID, ticket.StatusInProgress)
	f.move(t, staff, created.ID, ticket.StatusResolved)

	forStaff, err := f.svc.AllowedTransitions(staff, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []ticket.Status{ticket.StatusClosedPending, ticket.StatusReopened}, forStaff.Allowed)

	forAdmin, err := f.svc.AllowedTransitions(asActor(user.RoleAdmin, "admin-1"), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []ticket.Status{ticket.StatusReopened}, forAdmin.Allowed)
}

func TestListTickets_ScopedByRole(t *testing.T) {
	f := newFixture(t)
	f.createAssigned(t, "staff-1")
	f.createAssigned(t, "staff-2")

	mine, err := f.svc.ListTickets(asActor(user.RoleFieldStaff, "staff-1"), ticket.ListTicketsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.TotalCount)
	assert.Equal(t, "1-1 of 1", mine.Showing)

	zone, err := f.svc.ListTickets(asActor(user.RoleZoneManager, "manager-1"), ticket.ListTicketsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), zone.TotalCount)
	assert.Equal(t, 1, zone.TotalPages)

	other := "zone-south"
	_, err = f.svc.ListTickets(asActor(user.RoleZoneManager, "manager-1"), ticket.ListTicketsFilter{ZoneID: &other})
	assert.ErrorIs(t, err, ticket.ErrZoneOutOfScope)
}
