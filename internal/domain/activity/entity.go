package activity

import (
	"math"
	"time"
)

type Type string

const (
	TypeTicketWork    Type = "TICKET_WORK"
	TypeTravel        Type = "TRAVEL"
	TypeMeeting       Type = "MEETING"
	TypeTraining      Type = "TRAINING"
	TypeMaintenance   Type = "MAINTENANCE"
	TypeDocumentation Type = "DOCUMENTATION"
	TypeBreak         Type = "BREAK"
	TypeInstallation  Type = "INSTALLATION"
	TypeInspection    Type = "INSPECTION"
	TypePOMaterial    Type = "PO_MATERIAL"
	TypeSparePart     Type = "SPARE_PART"
	TypeOther         Type = "OTHER"
)

// AllTypes lists every activity type.
func AllTypes() []Type {
	return []Type{
		TypeTicketWork, TypeTravel, TypeMeeting, TypeTraining, TypeMaintenance, TypeDocumentation,
		TypeBreak, TypeInstallation, TypeInspection, TypePOMaterial, TypeSparePart, TypeOther,
	}
}

func (t Type) IsValid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

type Stage string

const (
	StageStarted        Stage = "STARTED"
	StageTraveling      Stage = "TRAVELING"
	StageArrived        Stage = "ARRIVED"
	StageWorkInProgress Stage = "WORK_IN_PROGRESS"
	StageWaiting        Stage = "WAITING"
	StageCompleted      Stage = "COMPLETED"
)

// AllStages lists stages in their natural order.
func AllStages() []Stage {
	return []Stage{StageStarted, StageTraveling, StageArrived, StageWorkInProgress, StageWaiting, StageCompleted}
}

func (s Stage) IsValid() bool {
	for _, known := range AllStages() {
		if s == known {
			return true
		}
	}
	return false
}

type Activity struct {
	ID          string
	UserID      string
	TicketID    *string
	Type        Type
	Title       string
	Description *string
	StartTime   time.Time
	EndTime     *time.Time
	Duration    *int // minutes, set when closed
	Latitude    *float64
	Longitude   *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a *Activity) IsOpen() bool {
	return a.EndTime == nil
}

// Close sets the end time and the derived duration.
func (a *Activity) Close(end time.Time) {
	if end.Before(a.StartTime) {
		end = a.StartTime
	}
	d := DurationMinutes(a.StartTime, end)
	a.EndTime = &end
	a.Duration = &d
	a.UpdatedAt = end
}

type ActivityStage struct {
	ID         string
	ActivityID string
	Stage      Stage
	StartTime  time.Time
	EndTime    *time.Time
	Notes      *string
	Latitude   *float64
	Longitude  *float64
	CreatedAt  time.Time
}

func (s *ActivityStage) IsOpen() bool {
	return s.EndTime == nil
}

// DurationMinutes returns round((end-start)/1m), never negative.
func DurationMinutes(start, end time.Time) int {
	mins := math.Round(float64(end.Sub(start).Milliseconds()) / 60000)
	if mins < 0 {
		return 0
	}
	return int(mins)
}
