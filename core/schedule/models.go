package schedule

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	ErrNotFound = errors.New("schedule entry not found")

	// ErrConflict is the storage-level backstop for overlap violations the
	// database itself rejects (exclusion constraints); the checker normally
	// catches these first and returns a detailed *ConflictError instead.
	ErrConflict = errors.New("scheduling conflict")
)

// Day is the closed day-of-week enumeration used everywhere a timetable slot
// is validated, conflict-scoped or grouped. Full seven-day week, Monday first.
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// AllDays is the canonical week ordering; grouped views emit keys in this order.
var AllDays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

func (d Day) Valid() bool {
	for _, day := range AllDays {
		if d == day {
			return true
		}
	}
	return false
}

func (d Day) String() string { return string(d) }

// ParseDay normalizes a raw string into a Day; ok is false for anything
// outside the enumeration.
func ParseDay(s string) (Day, bool) {
	d := Day(core.CleanString(s, true /* lower */))
	return d, d.Valid()
}

// Entry is a recurring weekly timetable assignment of class-section + subject
// + teacher + room to a day and time range, scoped to an academic year.
type Entry struct {
	ID           string    `json:"id"`
	ClassID      string    `json:"class_id"`
	Section      string    `json:"section"`
	SubjectID    string    `json:"subject_id"`
	TeacherID    string    `json:"teacher_id"`
	Room         string    `json:"room"`
	Day          Day       `json:"day"`
	StartTime    string    `json:"start_time"` // "HH:MM", 24-hour
	EndTime      string    `json:"end_time"`   // "HH:MM", 24-hour
	AcademicYear string    `json:"academic_year"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// NewEntry contains information needed to create a new Entry.
type NewEntry struct {
	ClassID      string `json:"class_id" validate:"required"`
	Section      string `json:"section" validate:"required,uppercase,alphanum"`
	SubjectID    string `json:"subject_id" validate:"required"`
	TeacherID    string `json:"teacher_id"` // optional; resolved from the subject's assigned teacher when omitted
	Room         string `json:"room" validate:"required"`
	Day          string `json:"day" validate:"required,weekday"`
	StartTime    string `json:"start_time" validate:"required,hhmm"`
	EndTime      string `json:"end_time" validate:"required,hhmm"`
	AcademicYear string `json:"academic_year" validate:"required,acadyear"`
}

// UpdateEntry defines what information may be provided to modify an existing
// Entry. All fields are optional; set fields are merged over the existing
// record before re-validation so partial updates never bypass conflict checks.
type UpdateEntry struct {
	ClassID      *string `json:"class_id"`
	Section      *string `json:"section" validate:"omitempty,uppercase,alphanum"`
	SubjectID    *string `json:"subject_id"`
	TeacherID    *string `json:"teacher_id"`
	Room         *string `json:"room"`
	Day          *string `json:"day" validate:"omitempty,weekday"`
	StartTime    *string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime      *string `json:"end_time" validate:"omitempty,hhmm"`
	AcademicYear *string `json:"academic_year" validate:"omitempty,acadyear"`
}

// Apply merges the set fields over entry to form the full candidate state.
func (ue UpdateEntry) Apply(entry *Entry) {
	if ue.ClassID != nil {
		entry.ClassID = core.CleanString(*ue.ClassID)
	}
	if ue.Section != nil {
		entry.Section = core.CleanString(*ue.Section)
	}
	if ue.SubjectID != nil {
		entry.SubjectID = core.CleanString(*ue.SubjectID)
	}
	if ue.TeacherID != nil {
		entry.TeacherID = core.CleanString(*ue.TeacherID)
	}
	if ue.Room != nil {
		entry.Room = core.CleanString(*ue.Room)
	}
	if ue.Day != nil {
		if day, ok := ParseDay(*ue.Day); ok {
			entry.Day = day
		}
	}
	if ue.StartTime != nil {
		entry.StartTime = core.CleanString(*ue.StartTime)
	}
	if ue.EndTime != nil {
		entry.EndTime = core.CleanString(*ue.EndTime)
	}
	if ue.AcademicYear != nil {
		entry.AcademicYear = core.CleanString(*ue.AcademicYear)
	}
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	ClassID      string `query:"class_id"`
	Section      string `query:"section"`
	SubjectID    string `query:"subject_id"`
	TeacherID    string `query:"teacher_id"`
	Room         string `query:"room"`
	Day          string `query:"day"`
	AcademicYear string `query:"academic_year"`

	// ExcludeID drops one entry from the result set (the update re-validation path).
	ExcludeID string `query:"-"`
	// IncludeInactive also returns soft-deleted entries (audit listings only).
	IncludeInactive bool `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.Section = core.CleanString(qf.Section)
	qf.SubjectID = core.CleanString(qf.SubjectID)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.Room = core.CleanString(qf.Room)
	qf.Day = core.CleanString(qf.Day, true /* lower */)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
}

// ConflictType tags the dimension on which two entries collide.
type ConflictType string

const (
	ConflictTeacher ConflictType = "teacher"
	ConflictRoom    ConflictType = "room"
	ConflictClass   ConflictType = "class"
)

// Conflict reports one overlap violation against one existing entry.
type Conflict struct {
	Type    ConflictType `json:"type"`
	Message string       `json:"message"`
	EntryID string       `json:"entry_id"`
}

// ConflictError carries the exhaustive list of overlap violations so a caller
// can surface every reason a slot was rejected in one round trip.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		return e.Conflicts[0].Message
	}
	return fmt.Sprintf("%d scheduling conflicts detected", len(e.Conflicts))
}
