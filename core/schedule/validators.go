package schedule

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "must be a day of the week (monday..sunday)"

	timeOrderTag  = "timeorder"
	timeOrderText = "end_time must be after start_time"
)

func init() {
	_ = core.Validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(weekdayTag, weekdayText)

	core.Validate.RegisterStructValidation(newEntryStructValidation, NewEntry{})
	core.RegisterCustomTranslation(timeOrderTag, timeOrderText)
}

// weekdayValidation checks membership in the Day enumeration.
func weekdayValidation(fl validator.FieldLevel) bool {
	_, ok := ParseDay(fl.Field().String())
	return ok
}

// newEntryStructValidation enforces the cross-field time ordering invariant.
func newEntryStructValidation(sl validator.StructLevel) {
	if ne, ok := sl.Current().Interface().(NewEntry); ok {
		reportTimeOrder(ne.StartTime, ne.EndTime, sl)
	}
}

func reportTimeOrder(start, end string, sl validator.StructLevel) {
	s, e := MinutesOf(start), MinutesOf(end)
	if s == minutesInfinity || e == minutesInfinity {
		return // hhmm field tags already report the format errors
	}
	if e <= s {
		sl.ReportError(end, "end_time", "EndTime", timeOrderTag, "")
	}
}

func (ne *NewEntry) Validate() error {
	ne.ClassID = core.CleanString(ne.ClassID)
	ne.Section = core.CleanString(ne.Section)
	ne.SubjectID = core.CleanString(ne.SubjectID)
	ne.TeacherID = core.CleanString(ne.TeacherID)
	ne.Room = core.CleanString(ne.Room)
	ne.Day = core.CleanString(ne.Day, true /* lower */)
	ne.StartTime = core.CleanString(ne.StartTime)
	ne.EndTime = core.CleanString(ne.EndTime)
	ne.AcademicYear = core.CleanString(ne.AcademicYear)
	return core.Validate.Struct(ne)
}

func (ue *UpdateEntry) Validate() error {
	return core.Validate.Struct(ue)
}
