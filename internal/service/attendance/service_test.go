package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/geocode"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/sideeffect"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/repository/memory"
	activitysvc "github.com/cmlabs-hris/fieldservice-backend-go/internal/service/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wib = time.FixedZone("WIB", 7*3600)

type stubGeocoder struct{ result geocode.Result }

func (g stubGeocoder) ReverseGeocode(context.Context, float64, float64) geocode.Result {
	return g.result
}

type fixture struct {
	store      *memory.Store
	svc        attendance.AttendanceService
	activities activity.ActivityService
	runner     *sideeffect.Runner
	mu         sync.Mutex
	now        time.Time
}

func newFixture(t *testing.T, geocoder geocode.Geocoder) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewStore(),
		runner: sideeffect.NewRunner(sideeffect.Options{Attempts: 1}, nil),
		now:    at(2, 9, 0),
	}
	clk := clock.Func(func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	})
	f.activities = activitysvc.NewActivityService(
		f.store, f.store.Activities(), f.store.Stages(), f.store.Sessions(), f.store.Audit(), clk, wib,
	)
	f.svc = NewAttendanceService(
		f.store, f.store.Sessions(), f.store.Audit(), f.activities, geocoder, nil, f.runner, clk,
		Config{Location: wib, CutoffHour: 19},
	)
	return f
}

func (f *fixture) set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// at returns March <day> 2026 at hh:mm in WIB.
func at(day, hh, mm int) time.Time {
	return time.Date(2026, 3, day, hh, mm, 0, 0, wib)
}

func staff(id string) context.Context {
	return user.WithActor(context.Background(), user.Actor{UserID: id, Role: user.RoleFieldStaff})
}

func ptr[T any](v T) *T { return &v }

func checkInReq() attendance.CheckInRequest {
	return attendance.CheckInRequest{Latitude: ptr(-6.2), Longitude: ptr(106.8)}
}

func checkOutReq(id string, confirm bool) attendance.CheckOutRequest {
	return attendance.CheckOutRequest{
		AttendanceID:         id,
		Latitude:             ptr(-6.2),
		Longitude:            ptr(106.8),
		ConfirmEarlyCheckout: confirm,
	}
}

// ===== CHECK IN TESTS =====

func TestCheckIn_FallbackAddressWithoutGeocoder(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.CheckIn(staff("u1"), checkInReq())

	require.NoError(t, err)
	assert.Equal(t, "-6.200000, 106.800000", resp.CheckInAddress)
	assert.Equal(t, attendance.AddressSourceFallback, resp.CheckInAddressSource)
	assert.Equal(t, attendance.StatusCheckedIn, resp.Status)
}

func TestCheckIn_ProviderAndManualAddress(t *testing.T) {
	f := newFixture(t, stubGeocoder{result: geocode.Result{Address: "Jl. Sudirman", Source: geocode.SourceProvider}})

	resp, err := f.svc.CheckIn(staff("u1"), checkInReq())
	require.NoError(t, err)
	assert.Equal(t, "Jl. Sudirman", resp.CheckInAddress)
	assert.Equal(t, attendance.AddressSourceProvider, resp.CheckInAddressSource)

	manual := checkInReq()
	manual.LocationSource = "manual"
	manual.Address = ptr("Warehouse 4")
	resp, err = f.svc.CheckIn(staff("u2"), manual)
	require.NoError(t, err)
	assert.Equal(t, "Warehouse 4", resp.CheckInAddress)
	assert.Equal(t, attendance.AddressSourceManual, resp.CheckInAddressSource)
}

func TestCheckIn_GeocoderFailureFallsBack(t *testing.T) {
	f := newFixture(t, stubGeocoder{result: geocode.Fallback(-6.2, 106.8, context.DeadlineExceeded)})

	resp, err := f.svc.CheckIn(staff("u1"), checkInReq())

	require.NoError(t, err)
	assert.Equal(t, attendance.AddressSourceFallback, resp.CheckInAddressSource)
}

func TestCheckIn_ConcurrentRequestsOneWins(t *testing.T) {
	f := newFixture(t, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CheckIn(staff("u1"), checkInReq())
		}(i)
	}
	wg.Wait()

	// Assert
	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, attendance.ErrAlreadyCheckedIn):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestCheckIn_RejectsNaNLatitude(t *testing.T) {
	f := newFixture(t, nil)
	req := checkInReq()
	nan := 0.0
	nan = nan / nan
	req.Latitude = &nan

	_, err := f.svc.CheckIn(staff("u1"), req)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// ===== CHECK OUT TESTS =====

func TestCheckOut_EarlyNeedsConfirmation(t *testing.T) {
	f := newFixture(t, nil)
	sess, err := f.svc.CheckIn(staff("u1"), checkInReq())
	require.NoError(t, err)
	f.set(at(2, 18, 0))

	// Act
	_, err = f.svc.CheckOut(staff("u1"), checkOutReq(sess.ID, false))

	// Assert
	require.ErrorIs(t, err, attendance.ErrEarlyCheckoutConfirmationRequired)
	assert.Equal(t, "CONFIRMATION_REQUIRED", apperr.CodeOf(err))
	stored, err := f.store.Sessions().GetByID(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusCheckedIn, stored.Status)
	assert.Nil(t, stored.CheckOutAt)

	resp, err := f.svc.CheckOut(staff("u1"), checkOutReq(sess.ID, true))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusEarlyCheckout, resp.Session.Status)
	assert.Equal(t, 9.0, *resp.Session.TotalHours)
}

func TestCheckOut_AutoClosesTodaysActivities(t *testing.T) {
	f := newFixture(t, nil)
	ctx := staff("u1")
	sess, err := f.svc.CheckIn(ctx, checkInReq())
	require.NoError(t, err)

	f.set(at(2, 10, 0))
	a, err := f.activities.CreateActivity(ctx, activity.CreateActivityRequest{Type: activity.TypeMaintenance, Title: "Pump"})
	require.NoError(t, err)

	f.set(time.Date(2026, 3, 2, 19, 30, 29, 0, wib))
	resp, err := f.svc.CheckOut(ctx, checkOutReq(sess.ID, false))
	require.NoError(t, err)

	// Assert
	assert.Equal(t, attendance.StatusCheckedOut, resp.Session.Status)
	assert.Equal(t, 1, resp.AutoClosedActivities)
	assert.Equal(t, 10.51, *resp.Session.TotalHours)

	closed, err := f.store.Activities().GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndTime)
	assert.Equal(t, 570, *closed.Duration)

	stages, err := f.store.Stages().ListByActivity(context.Background(), a.ID)
	require.NoError(t, err)
	assert.NotNil(t, stages[0].EndTime)
}

func TestCheckOut_Checks(t *testing.T) {
	f := newFixture(t, nil)
	sess, err := f.svc.CheckIn(staff("u1"), checkInReq())
	require.NoError(t, err)
	f.set(at(2, 20, 0))

	_, err = f.svc.CheckOut(staff("u1"), checkOutReq("missing", true))
	assert.ErrorIs(t, err, attendance.ErrSessionNotFound)

	_, err = f.svc.CheckOut(staff("u2"), checkOutReq(sess.ID, true))
	assert.ErrorIs(t, err, attendance.ErrSessionAccessDenied)

	_, err = f.svc.CheckOut(staff("u1"), checkOutReq(sess.ID, true))
	require.NoError(t, err)

	_, err = f.svc.CheckOut(staff("u1"), checkOutReq(sess.ID, true))
	assert.ErrorIs(t, err, attendance.ErrSessionNotOpen)
}

// ===== RE CHECK IN TESTS =====

func TestReCheckIn_SameDayOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := staff("u1")
	sess, err := f.svc.CheckIn(ctx, checkInReq())
	require.NoError(t, err)
	f.set(at(2, 12, 0))
	_, err = f.svc.CheckOut(ctx, checkOutReq(sess.ID, true))
	require.NoError(t, err)

	f.set(at(2, 13, 0))
	reopened, err := f.svc.ReCheckIn(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusCheckedIn, reopened.Status)
	assert.Nil(t, reopened.CheckOutAt)
	assert.Nil(t, reopened.TotalHours)

	_, err = f.svc.ReCheckIn(ctx, sess.ID)
	assert.ErrorIs(t, err, attendance.ErrReCheckInNotAllowed)

	f.set(at(2, 14, 0))
	_, err = f.svc.CheckOut(ctx, checkOutReq(sess.ID, true))
	require.NoError(t, err)
	f.set(at(3, 8, 0))
	_, err = f.svc.ReCheckIn(ctx, sess.ID)
	assert.ErrorIs(t, err, attendance.ErrReCheckInNotAllowed)
}

// ===== READ TESTS =====

func TestGetStatusAndMySessions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := staff("u1")
	first, err := f.svc.CheckIn(ctx, checkInReq())
	require.NoError(t, err)
	f.set(at(2, 12, 0))
	_, err = f.svc.CheckOut(ctx, checkOutReq(first.ID, true))
	require.NoError(t, err)
	f.set(at(2, 13, 0))
	_, err = f.svc.CheckIn(ctx, checkInReq())
	require.NoError(t, err)

	status, err := f.svc.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsCheckedIn)
	require.NotNil(t, status.Open)
	assert.Len(t, status.Today, 2)

	list, err := f.svc.GetMySessions(ctx, attendance.MyAttendanceFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.TotalCount)
	assert.Equal(t, 2, list.TotalPages)
	assert.Equal(t, "1-1 of 2", list.Showing)
	assert.Equal(t, status.Open.ID, list.Sessions[0].ID)
}

// ===== CORRECTION TESTS =====

func TestUpdateSession_AdminOnly(t *testing.T) {
	f := newFixture(t, nil)
	sess, err := f.svc.CheckIn(staff("u1"), checkInReq())
	require.NoError(t, err)
	checkOut := "2026-03-02T10:30:00+07:00"

	_, err = f.svc.UpdateSession(staff("u1"), attendance.UpdateSessionRequest{ID: sess.ID, CheckOutAt: &checkOut})
	assert.ErrorIs(t, err, user.ErrAdminPrivilegeRequired)

	admin := user.WithActor(context.Background(), user.Actor{UserID: "admin-1", Role: user.RoleAdmin})
	resp, err := f.svc.UpdateSession(admin, attendance.UpdateSessionRequest{ID: sess.ID, CheckOutAt: &checkOut})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusCheckedOut, resp.Status)
	assert.Equal(t, 1.5, *resp.TotalHours)

	entries := f.store.AuditEntries()
	assert.Equal(t, audit.ActionAttendanceCorrected, entries[len(entries)-1].Action)
}

// ===== SWEEP TESTS =====

func TestAutoCheckout_ClosesDueSessionsIdempotently(t *testing.T) {
	f := newFixture(t, nil)
	f.set(at(1, 9, 0))
	dayShift, err := f.svc.CheckIn(staff("u1"), checkInReq())
	require.NoError(t, err)
	f.set(at(1, 20, 30))
	lateShift, err := f.svc.CheckIn(staff("u2"), checkInReq())
	require.NoError(t, err)
	f.set(at(2, 9, 0))
	today, err := f.svc.CheckIn(staff("u3"), checkInReq())
	require.NoError(t, err)

	// Act
	now := at(2, 10, 5)
	result, err := f.svc.AutoCheckout(context.Background(), now)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, attendance.SweepResult{Processed: 2, Closed: 2}, result)

	got, err := f.store.Sessions().GetByID(context.Background(), dayShift.ID)
	require.NoError(t, err)
	assert.Equal(t, at(1, 19, 0), *got.CheckOutAt)
	assert.Equal(t, 10.0, *got.TotalHours)
	assert.Equal(t, attendance.StatusCheckedOut, got.Status)
	assert.Contains(t, *got.Notes, attendance.AutoCheckoutTag)

	got, err = f.store.Sessions().GetByID(context.Background(), lateShift.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 0, wib), *got.CheckOutAt)

	got, err = f.store.Sessions().GetByID(context.Background(), today.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOpen())

	again, err := f.svc.AutoCheckout(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, attendance.SweepResult{}, again)

	// After today's cut-off the remaining session is due
	evening, err := f.svc.AutoCheckout(context.Background(), at(2, 19, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, evening.Closed)
	require.NoError(t, f.runner.Wait(context.Background()))
}

func TestAutoCheckout_AuditedAsSystem(t *testing.T) {
	f := newFixture(t, nil)
	f.set(at(1, 9, 0))
	_, err := f.svc.CheckIn(staff("u1"), checkInReq())
	require.NoError(t, err)

	_, err = f.svc.AutoCheckout(context.Background(), at(2, 0, 30))
	require.NoError(t, err)

	entries := f.store.AuditEntries()
	last := entries[len(entries)-1]
	assert.Equal(t, audit.ActionAttendanceAutoClose, last.Action)
	assert.Equal(t, user.SystemActorID, last.ActorID)
}
