package activity

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wib = time.FixedZone("WIB", 7*3600)

type fixture struct {
	store *memory.Store
	svc   activity.ActivityService
	now   time.Time
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		now:   time.Date(2026, 3, 2, 9, 0, 0, 0, wib),
		ctx:   user.WithActor(context.Background(), user.Actor{UserID: "staff-1", Role: user.RoleFieldStaff}),
	}
	f.svc = NewActivityService(
		f.store, f.store.Activities(), f.store.Stages(), f.store.Sessions(), f.store.Audit(),
		clock.Func(func() time.Time { return f.now }), wib,
	)
	return f
}

func (f *fixture) checkIn(t *testing.T) {
	t.Helper()
	_, err := f.store.Sessions().Create(context.Background(), attendance.Session{
		UserID:    "staff-1",
		CheckInAt: f.now,
		Status:    attendance.StatusCheckedIn,
	})
	require.NoError(t, err)
}

func (f *fixture) createActivity(t *testing.T) activity.ActivityResponse {
	t.Helper()
	resp, err := f.svc.CreateActivity(f.ctx, activity.CreateActivityRequest{Type: activity.TypeInspection, Title: "Panel check"})
	require.NoError(t, err)
	return resp
}

// ===== ACTIVITY TESTS =====

func TestCreateActivity_RequiresCheckIn(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateActivity(f.ctx, activity.CreateActivityRequest{Type: activity.TypeTravel, Title: "Drive"})

	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)
}

func TestCreateActivity_StartsWithStartedStage(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t)

	resp := f.createActivity(t)

	require.Len(t, resp.Stages, 1)
	assert.Equal(t, activity.StageStarted, resp.Stages[0].Stage)
	assert.Nil(t, resp.Stages[0].EndTime)
	assert.Nil(t, resp.EndTime)
}

func TestCreateActivity_RejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t)

	_, err := f.svc.CreateActivity(f.ctx, activity.CreateActivityRequest{Type: "NAPPING", Title: "x"})

	require.Error(t, err)
}

func TestEndActivity_ClosesStagesAndRejectsRepeat(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t)
	created := f.createActivity(t)

	f.now = f.now.Add(45*time.Minute + 29*time.Second)
	ended, err := f.svc.EndActivity(f.ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, ended.Duration)
	assert.Equal(t, 45, *ended.Duration)

	stages, err := f.svc.ListStages(f.ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.NotNil(t, stages[0].EndTime)

	_, err = f.svc.EndActivity(f.ctx, created.ID)
	assert.ErrorIs(t, err, activity.ErrActivityAlreadyClosed)
}

func TestEndActivity_OtherUserDenied(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t)
	created := f.createActivity(t)

	other := user.WithActor(context.Background(), user.Actor{UserID: "staff-2", Role: user.RoleFieldStaff})
	_, err := f.store.Sessions().Create(context.Background(), attendance.Session{UserID: "staff-2", CheckInAt: f.now, Status: attendance.StatusCheckedIn})
	require.NoError(t, err)

	_, err = f.svc.EndActivity(other, created.ID)
	assert.ErrorIs(t, err, activity.ErrActivityAccessDenied)
}

// ===== STAGE TESTS =====

func TestCreateStage_ClosesPreviousStage(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t)
	created := f.createActivity(t)

	f.now = f.now.Add(20 * time.Minute)
	traveling, err := f.svc.CreateStage(f.ctx, activity.CreateStageRequest{ActivityID: created.ID, Stage: activity.StageTraveling})
	require.NoError(t, err)
	assert.False(t, traveling.ActivityClosed)

	stages, err := f.svc.ListStages(f.ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	require.NotNil(t, stages[0].EndTime)
	assert.Equal(t, f.now, *stages[0].EndTime)
	assert.Nil(t, stages[1].EndTime)

	open, err := f.store.Stages().GetOpenByActivity(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, traveling.ID, open.ID)
}

func TestCreateStage_CompletedClosesActivity(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t)
	created := f.createActivity(t)

	f.now = f.now.Add(time.Hour)
	completed, err := f.svc.CreateStage(f.ctx, activity.CreateStageRequest{ActivityID: created.ID, Stage: activity.StageCompleted})
	require.NoError(t, err)

	// Assert
	assert.True(t, completed.ActivityClosed)
	require.NotNil(t, completed.EndTime)
	assert.Equal(t, f.now, *completed.EndTime)

	a, err := f.store.Activities().GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, 60, *a.Duration)

	_, err = f.svc.CreateStage(f.ctx, activity.CreateStageRequest{ActivityID: created.ID, Stage: activity.StageWaiting})
	assert.ErrorIs(t, err, activity.ErrActivityAlreadyClosed)
}

func TestEndStage_LastOpenStageClosesActivity(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t)
	created := f.createActivity(t)

	f.now = f.now.Add(10 * time.Minute)
	ended, err := f.svc.EndStage(f.ctx, created.Stages[0].ID)
	require.NoError(t, err)
	assert.True(t, ended.ActivityClosed)

	_, err = f.svc.EndStage(f.ctx, created.Stages[0].ID)
	assert.ErrorIs(t, err, activity.ErrStageAlreadyClosed)
}

func TestMutations_WriteAudit(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t)
	created := f.createActivity(t)
	_, err := f.svc.CreateStage(f.ctx, activity.CreateStageRequest{ActivityID: created.ID, Stage: activity.StageArrived})
	require.NoError(t, err)
	_, err = f.svc.EndActivity(f.ctx, created.ID)
	require.NoError(t, err)

	var actions []audit.Action
	for _, e := range f.store.AuditEntries() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []audit.Action{
		audit.ActionActivityCreated,
		audit.ActionActivityStageCreated,
		audit.ActionActivityEnded,
	}, actions)
}

// ===== AUTO CLOSE TESTS =====

func TestAutoCloseOpen_RoundsDurations(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t)
	first := f.createActivity(t)
	f.now = f.now.Add(30 * time.Second)
	second := f.createActivity(t)

	dayStart := time.Date(2026, 3, 2, 0, 0, 0, 0, wib)
	end := time.Date(2026, 3, 2, 10, 30, 31, 0, wib)

	closed, err := f.svc.AutoCloseOpen(context.Background(), "staff-1", dayStart, dayStart.AddDate(0, 0, 1), end)
	require.NoError(t, err)
	assert.Equal(t, 2, closed)

	a1, err := f.store.Activities().GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 91, *a1.Duration)
	a2, err := f.store.Activities().GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, *a2.Duration)

	last := f.store.AuditEntries()
	assert.Equal(t, user.SystemActorID, last[len(last)-1].ActorID)

	again, err := f.svc.AutoCloseOpen(context.Background(), "staff-1", dayStart, dayStart.AddDate(0, 0, 1), end)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestLogTicketTransition_CreatesClosedTicketWork(t *testing.T) {
	f := newFixture(t)

	err := f.svc.LogTicketTransition(context.Background(), activity.TicketWorkLog{
		UserID: "staff-1", TicketID: "t1", Title: "Generator fault",
		FromStatus: "ASSIGNED", ToStatus: "IN_PROGRESS", At: f.now,
	})
	require.NoError(t, err)

	list, err := f.svc.GetMyActivities(f.ctx, activity.MyActivitiesFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, activity.TypeTicketWork, list[0].Type)
	assert.NotNil(t, list[0].EndTime)
	assert.Equal(t, 0, *list[0].Duration)
}
