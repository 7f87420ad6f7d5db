package school

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Class is a cohort (e.g. "Grade 10"); sections ("A", "B"...) split it further
// and live on the timetable entries and student profiles, not here.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Subject is a taught discipline, optionally with a default assigned teacher.
type Subject struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	AssignedTeacherID null.String `json:"assigned_teacher_id"`
	CreatedAt         time.Time   `json:"created_at"` // UTC
	UpdatedAt         time.Time   `json:"updated_at"` // UTC
}

// TeacherProfile links a user account to its teaching identity.
type TeacherProfile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// StudentProfile links a user account to its enrollment. Class, section and
// academic year stay unset until the student is actually enrolled; a profile
// with any of them missing is legitimately "not enrolled yet", not an error.
type StudentProfile struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	DisplayName  string      `json:"display_name"`
	ClassID      null.String `json:"class_id"`
	Section      null.String `json:"section"`
	AcademicYear null.String `json:"academic_year"`
	GuardianIDs  []string    `json:"guardian_ids"` // linked parent/guardian user IDs
	CreatedAt    time.Time   `json:"created_at"`   // UTC
	UpdatedAt    time.Time   `json:"updated_at"`   // UTC
}

// Enrolled reports whether the profile carries the full class/section/year triple.
func (p StudentProfile) Enrolled() bool {
	return p.ClassID.Valid && p.Section.Valid && p.AcademicYear.Valid
}
