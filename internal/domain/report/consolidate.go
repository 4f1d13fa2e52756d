package report

import (
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
)

const dayLayout = "2006-01-02"

// Scope decides which roster users a caller may see.
type Scope func(u user.User) bool

// ScopeFor derives the visibility predicate of an actor.
func ScopeFor(actor user.Actor) Scope {
	return func(u user.User) bool {
		return actor.CanSeeUser(u)
	}
}

// Input is everything Consolidate needs. From and To are local calendar days
// (any time within the day), both inclusive.
type Input struct {
	Sessions       []attendance.Session
	Roster         []user.User
	ActivityCounts map[DayKey]int
	From           time.Time
	To             time.Time
	Now            time.Time
	Location       *time.Location
	Scope          Scope
}

// Consolidate merges raw sessions into one record per (user, day), adds a
// synthetic absence for every roster user without sessions on a day, and
// computes anomaly flags. Only roster users inside Scope are reported.
// The result is sorted by date descending, then user name and id, and
// depends only on the input.
func Consolidate(in Input) []Record {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	scope := in.Scope
	if scope == nil {
		scope = func(user.User) bool { return true }
	}

	firstDay := startOfDay(in.From, loc)
	lastDay := startOfDay(in.To, loc)
	today := startOfDay(in.Now, loc)

	roster := make(map[string]user.User, len(in.Roster))
	for _, u := range in.Roster {
		if scope(u) {
			roster[u.ID] = u
		}
	}

	groups := make(map[DayKey][]attendance.Session)
	for _, s := range in.Sessions {
		if _, ok := roster[s.UserID]; !ok {
			continue
		}
		day := startOfDay(s.CheckInAt, loc)
		if day.Before(firstDay) || day.After(lastDay) {
			continue
		}
		key := DayKey{UserID: s.UserID, Day: day.Format(dayLayout)}
		groups[key] = append(groups[key], s)
	}

	records := make([]Record, 0, len(groups)+len(roster))
	for key, sessions := range groups {
		rec := mergeSessions(roster[key.UserID], key.Day, sessions)
		rec.ActivityCount = in.ActivityCounts[key]
		rec.Flags = flagsFor(rec, loc, today)
		records = append(records, rec)
	}

	lastSynthetic := lastDay
	if today.Before(lastSynthetic) {
		lastSynthetic = today
	}
	for day := firstDay; !day.After(lastSynthetic); day = day.AddDate(0, 0, 1) {
		dayStr := day.Format(dayLayout)
		for id, u := range roster {
			if _, ok := groups[DayKey{UserID: id, Day: dayStr}]; ok {
				continue
			}
			records = append(records, syntheticAbsence(u, dayStr))
		}
	}

	sortRecords(records)
	return records
}

func mergeSessions(u user.User, day string, sessions []attendance.Session) Record {
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].CheckInAt.Equal(sessions[j].CheckInAt) {
			return sessions[i].CheckInAt.Before(sessions[j].CheckInAt)
		}
		return sessions[i].ID < sessions[j].ID
	})

	rec := Record{
		ID:           sessions[0].ID,
		UserID:       u.ID,
		UserName:     u.Name,
		ZoneID:       u.ZoneID,
		Date:         day,
		SessionCount: len(sessions),
		Sessions:     make([]SessionSummary, 0, len(sessions)),
	}

	checkIn := sessions[0].CheckInAt
	rec.CheckInAt = &checkIn

	var (
		hours   float64
		notes   []string
		seen    = make(map[string]struct{})
		topRank = -1
	)
	for _, s := range sessions {
		if s.CheckOutAt != nil && (rec.CheckOutAt == nil || s.CheckOutAt.After(*rec.CheckOutAt)) {
			out := *s.CheckOutAt
			rec.CheckOutAt = &out
		}
		if s.TotalHours != nil {
			hours += *s.TotalHours
		}
		if rank := StatusRank(s.Status); rank > topRank {
			topRank = rank
			rec.Status = s.Status
		}
		if s.Notes != nil {
			note := strings.TrimSpace(*s.Notes)
			if _, dup := seen[note]; note != "" && !dup {
				seen[note] = struct{}{}
				notes = append(notes, note)
			}
		}
		rec.Sessions = append(rec.Sessions, SessionSummary{
			ID:         s.ID,
			CheckInAt:  s.CheckInAt,
			CheckOutAt: s.CheckOutAt,
			TotalHours: s.TotalHours,
			Status:     s.Status,
		})
	}
	rec.TotalHours = attendance.RoundHours(hours)
	rec.Notes = strings.Join(notes, " | ")

	return rec
}

func syntheticAbsence(u user.User, day string) Record {
	return Record{
		ID:        SyntheticAbsenceID(u.ID, day),
		UserID:    u.ID,
		UserName:  u.Name,
		ZoneID:    u.ZoneID,
		Date:      day,
		Status:    attendance.StatusAbsent,
		Sessions:  []SessionSummary{},
		Flags:     []Flag{FlagAbsent},
		Synthetic: true,
	}
}

func flagsFor(rec Record, loc *time.Location, today time.Time) []Flag {
	flags := []Flag{}

	if rec.CheckInAt != nil && rec.CheckInAt.In(loc).Hour() >= LateHour {
		flags = append(flags, FlagLate)
	}
	if rec.CheckOutAt != nil && rec.CheckOutAt.In(loc).Hour() < EarlyCheckoutHour {
		flags = append(flags, FlagEarlyCheckout)
	}
	if rec.TotalHours > LongDayHours {
		flags = append(flags, FlagLongDay)
	}
	if strings.Contains(strings.ToLower(rec.Notes), "auto-checkout") {
		flags = append(flags, FlagAutoCheckout)
	}
	if rec.ActivityCount == 0 &&
		(rec.Status == attendance.StatusCheckedIn || rec.Status == attendance.StatusCheckedOut) {
		flags = append(flags, FlagNoActivity)
	}
	if rec.SessionCount > 1 {
		flags = append(flags, FlagMultipleSessions)
	}
	if rec.Status == attendance.StatusCheckedIn && rec.CheckInAt != nil &&
		startOfDay(*rec.CheckInAt, loc).Before(today) {
		flags = append(flags, FlagMissingCheckout)
	}

	return flags
}

func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.UserName != b.UserName {
			return a.UserName < b.UserName
		}
		return a.UserID < b.UserID
	})
}

// FilterByStatus keeps records whose consolidated status is status.
func FilterByStatus(records []Record, status attendance.Status) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// Paginate slices records after consolidation. page is 1-based.
func Paginate(records []Record, page, limit int) []Record {
	start := (page - 1) * limit
	if start >= len(records) || start < 0 {
		return []Record{}
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

// Summarize counts statuses and flags over records.
func Summarize(records []Record) Summary {
	var s Summary
	for _, r := range records {
		s.Total++
		if r.Status == attendance.StatusAbsent {
			s.Absent++
		} else {
			s.Present++
		}
		if r.HasFlag(FlagLate) {
			s.Late++
		}
		if r.HasFlag(FlagEarlyCheckout) {
			s.EarlyCheckout++
		}
		if len(r.Flags) > 0 && !r.Synthetic {
			s.Flagged++
		}
	}
	return s
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
