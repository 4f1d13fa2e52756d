package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/google/uuid"
)

type activityRepo struct{ s *Store }

func (r activityRepo) Create(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	defer r.s.lock(ctx)()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	r.s.data.activities[a.ID] = a
	return a, nil
}

func (r activityRepo) GetByID(ctx context.Context, id string) (activity.Activity, error) {
	defer r.s.rlock(ctx)()

	a, ok := r.s.data.activities[id]
	if !ok {
		return activity.Activity{}, activity.ErrActivityNotFound
	}
	return a, nil
}

func (r activityRepo) GetByIDForUpdate(ctx context.Context, id string) (activity.Activity, error) {
	return r.GetByID(ctx, id)
}

func (r activityRepo) Update(ctx context.Context, a activity.Activity) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.activities[a.ID]; !ok {
		return activity.ErrActivityNotFound
	}
	r.s.data.activities[a.ID] = a
	return nil
}

func (r activityRepo) ListOpenByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]activity.Activity, error) {
	defer r.s.rlock(ctx)()

	open := []activity.Activity{}
	for _, a := range r.s.data.activities {
		if a.UserID == userID && a.IsOpen() && !a.StartTime.Before(from) && a.StartTime.Before(to) {
			open = append(open, a)
		}
	}
	sortActivities(open, false)
	return open, nil
}

func (r activityRepo) ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]activity.Activity, error) {
	defer r.s.rlock(ctx)()

	matched := []activity.Activity{}
	for _, a := range r.s.data.activities {
		if a.UserID != userID {
			continue
		}
		if from != nil && a.StartTime.Before(*from) {
			continue
		}
		if to != nil && !a.StartTime.Before(*to) {
			continue
		}
		matched = append(matched, a)
	}
	sortActivities(matched, true)
	return matched, nil
}

func (r activityRepo) CountByUserDay(ctx context.Context, from, to time.Time, loc *time.Location) ([]activity.DayCount, error) {
	defer r.s.rlock(ctx)()

	counts := r.s.activityCounts(from, to, loc, func(string) bool { return true })
	out := make([]activity.DayCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, activity.DayCount{UserID: key[0], Day: key[1], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// activityCounts expects the read lock to be held.
func (s *Store) activityCounts(from, to time.Time, loc *time.Location, include func(userID string) bool) map[[2]string]int {
	if loc == nil {
		loc = time.UTC
	}
	counts := make(map[[2]string]int)
	for _, a := range s.data.activities {
		if a.StartTime.Before(from) || !a.StartTime.Before(to) || !include(a.UserID) {
			continue
		}
		counts[[2]string{a.UserID, a.StartTime.In(loc).Format("2006-01-02")}]++
	}
	return counts
}

func sortActivities(activities []activity.Activity, desc bool) {
	sort.Slice(activities, func(i, j int) bool {
		if !activities[i].StartTime.Equal(activities[j].StartTime) {
			if desc {
				return activities[i].StartTime.After(activities[j].StartTime)
			}
			return activities[i].StartTime.Before(activities[j].StartTime)
		}
		return activities[i].ID < activities[j].ID
	})
}

type stageRepo struct{ s *Store }

// openStageOf expects a lock to be held.
func (s *Store) openStageOf(activityID string) *activity.ActivityStage {
	for _, st := range s.data.stages {
		if st.ActivityID == activityID && st.IsOpen() {
			found := st
			return &found
		}
	}
	return nil
}

func (r stageRepo) Create(ctx context.Context, st activity.ActivityStage) (activity.ActivityStage, error) {
	defer r.s.lock(ctx)()

	if st.IsOpen() && r.s.openStageOf(st.ActivityID) != nil {
		return activity.ActivityStage{}, activity.ErrStageAlreadyOpen
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	r.s.data.stages[st.ID] = st
	return st, nil
}

func (r stageRepo) GetByID(ctx context.Context, id string) (activity.ActivityStage, error) {
	defer r.s.rlock(ctx)()

	st, ok := r.s.data.stages[id]
	if !ok {
		return activity.ActivityStage{}, activity.ErrStageNotFound
	}
	return st, nil
}

func (r stageRepo) GetByIDForUpdate(ctx context.Context, id string) (activity.ActivityStage, error) {
	return r.GetByID(ctx, id)
}

func (r stageRepo) GetOpenByActivity(ctx context.Context, activityID string) (*activity.ActivityStage, error) {
	defer r.s.rlock(ctx)()
	return r.s.openStageOf(activityID), nil
}

func (r stageRepo) CloseOpenByActivity(ctx context.Context, activityID string, end time.Time) (int, error) {
	defer r.s.lock(ctx)()

	closed := 0
	for id, st := range r.s.data.stages {
		if st.ActivityID != activityID || !st.IsOpen() {
			continue
		}
		stageEnd := end
		if stageEnd.Before(st.StartTime) {
			stageEnd = st.StartTime
		}
		st.EndTime = &stageEnd
		r.s.data.stages[id] = st
		closed++
	}
	return closed, nil
}

func (r stageRepo) Update(ctx context.Context, st activity.ActivityStage) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.stages[st.ID]; !ok {
		return activity.ErrStageNotFound
	}
	r.s.data.stages[st.ID] = st
	return nil
}

func (r stageRepo) ListByActivity(ctx context.Context, activityID string) ([]activity.ActivityStage, error) {
	defer r.s.rlock(ctx)()

	stages := []activity.ActivityStage{}
	for _, st := range r.s.data.stages {
		if st.ActivityID == activityID {
			stages = append(stages, st)
		}
	}
	sort.Slice(stages, func(i, j int) bool {
		if !stages[i].StartTime.Equal(stages[j].StartTime) {
			return stages[i].StartTime.Before(stages[j].StartTime)
		}
		if !stages[i].CreatedAt.Equal(stages[j].CreatedAt) {
			return stages[i].CreatedAt.Before(stages[j].CreatedAt)
		}
		return stages[i].ID < stages[j].ID
	})
	return stages, nil
}
