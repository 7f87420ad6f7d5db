package schedule

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/school"
)

type (
	// EntryView is the display-ready shape of an Entry: directory names are
	// attached at read time (never stored) so they can't go stale.
	EntryView struct {
		ID           string `json:"id"`
		ClassID      string `json:"class_id"`
		ClassName    string `json:"class_name"`
		Section      string `json:"section"`
		SubjectID    string `json:"subject_id"`
		SubjectName  string `json:"subject_name"`
		TeacherID    string `json:"teacher_id"`
		TeacherName  string `json:"teacher_name"`
		Room         string `json:"room"`
		Day          Day    `json:"day"`
		StartTime    string `json:"start_time"`
		EndTime      string `json:"end_time"`
		AcademicYear string `json:"academic_year"`
	}

	// WeekView pairs the flat item list with the day-grouped map. ByDay always
	// holds one key per day of the week, empty days included, so consumers
	// never need nil checks.
	WeekView struct {
		Items []EntryView         `json:"items"`
		ByDay map[Day][]EntryView `json:"grouped_by_day"`
	}

	// ChildWeekView is one child's timetable in a guardian's fan-out view.
	ChildWeekView struct {
		StudentID   string   `json:"student_id"`
		DisplayName string   `json:"display_name"`
		Week        WeekView `json:"week"`
	}
)

// GroupByDay buckets entries per day of the week, pre-initializing every day
// to an empty list, and sorts each day's entries ascending by start time.
// Unparseable start times sort last rather than breaking the ordering.
func GroupByDay(entries []Entry) map[Day][]Entry {
	grouped := make(map[Day][]Entry, len(AllDays))
	for _, day := range AllDays {
		grouped[day] = []Entry{}
	}
	for _, entry := range entries {
		grouped[entry.Day] = append(grouped[entry.Day], entry)
	}
	for day := range grouped {
		sortByStartTime(grouped[day])
	}
	return grouped
}

func sortByStartTime(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return MinutesOf(entries[i].StartTime) < MinutesOf(entries[j].StartTime)
	})
}

func emptyWeekView() WeekView {
	byDay := make(map[Day][]EntryView, len(AllDays))
	for _, day := range AllDays {
		byDay[day] = []EntryView{}
	}
	return WeekView{Items: []EntryView{}, ByDay: byDay}
}

// UIReady fetches the active entries for the filter set and shapes them into
// a WeekView: flat display items plus the full day-grouped skeleton.
func (svc *Service) UIReady(ctx context.Context, filter QueryFilter) (WeekView, error) {
	filter.Clean()
	filter.IncludeInactive = false
	entries, err := svc.repo.QueryEntries(ctx, filter)
	if err != nil {
		return WeekView{}, errors.Wrap(err, "querying entries")
	}

	view := emptyWeekView()
	shaper := newViewShaper(svc, ctx)
	for day, dayEntries := range GroupByDay(entries) {
		for _, entry := range dayEntries {
			item := shaper.shape(entry)
			view.ByDay[day] = append(view.ByDay[day], item)
		}
	}
	// flat list in week order
	for _, day := range AllDays {
		view.Items = append(view.Items, view.ByDay[day]...)
	}
	return view, nil
}

// WeekForClass is the cohort timetable: all active entries for the
// class-section in the academic year, grouped by day.
func (svc *Service) WeekForClass(ctx context.Context, classID, section, year string) (WeekView, error) {
	return svc.UIReady(ctx, QueryFilter{ClassID: classID, Section: section, AcademicYear: year})
}

// WeekForTeacher is a teacher's own timetable; year narrows it when provided.
func (svc *Service) WeekForTeacher(ctx context.Context, teacherID, year string) (WeekView, error) {
	return svc.UIReady(ctx, QueryFilter{TeacherID: teacherID, AcademicYear: year})
}

// WeekForStudentUser resolves the student's enrollment into class/section/year
// filters. A student without a profile or a complete enrollment gets the empty
// week skeleton: "not enrolled yet" is a legitimately empty timetable, not an
// error.
func (svc *Service) WeekForStudentUser(ctx context.Context, userID string) (WeekView, error) {
	prof, err := svc.dirs.GetStudentByUser(ctx, userID)
	if err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return emptyWeekView(), nil
		}
		return WeekView{}, errors.Wrap(err, "resolving student profile")
	}
	return svc.weekForStudent(ctx, prof)
}

func (svc *Service) weekForStudent(ctx context.Context, prof school.StudentProfile) (WeekView, error) {
	if !prof.Enrolled() {
		return emptyWeekView(), nil
	}
	return svc.WeekForClass(ctx, prof.ClassID.String, prof.Section.String, prof.AcademicYear.String)
}

// WeeksForGuardianUser fans out across the guardian's linked children, one
// sub-view per child. A child with incomplete class data yields its own empty
// skeleton without failing the siblings.
func (svc *Service) WeeksForGuardianUser(ctx context.Context, userID string) ([]ChildWeekView, error) {
	children, err := svc.dirs.ChildrenOf(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "resolving children")
	}
	views := make([]ChildWeekView, 0, len(children))
	for _, child := range children {
		week, err := svc.weekForStudent(ctx, child)
		if err != nil {
			return nil, errors.Wrapf(err, "building week for student %s", child.ID)
		}
		views = append(views, ChildWeekView{
			StudentID:   child.ID,
			DisplayName: child.DisplayName,
			Week:        week,
		})
	}
	return views, nil
}

// viewShaper caches directory lookups within a single read so shaping a week
// does not re-resolve the same class/subject/teacher per entry.
type viewShaper struct {
	svc *Service
	ctx context.Context

	classNames   map[string]string
	subjectNames map[string]string
	teacherNames map[string]string
}

func newViewShaper(svc *Service, ctx context.Context) *viewShaper {
	return &viewShaper{
		svc:          svc,
		ctx:          ctx,
		classNames:   make(map[string]string),
		subjectNames: make(map[string]string),
		teacherNames: make(map[string]string),
	}
}

func (sh *viewShaper) shape(entry Entry) EntryView {
	return EntryView{
		ID:           entry.ID,
		ClassID:      entry.ClassID,
		ClassName:    sh.className(entry.ClassID),
		Section:      entry.Section,
		SubjectID:    entry.SubjectID,
		SubjectName:  sh.subjectName(entry.SubjectID),
		TeacherID:    entry.TeacherID,
		TeacherName:  sh.teacherName(entry.TeacherID),
		Room:         entry.Room,
		Day:          entry.Day,
		StartTime:    entry.StartTime,
		EndTime:      entry.EndTime,
		AcademicYear: entry.AcademicYear,
	}
}

func (sh *viewShaper) className(id string) string {
	if name, ok := sh.classNames[id]; ok {
		return name
	}
	name := id
	if cls, err := sh.svc.dirs.GetClass(sh.ctx, id); err == nil {
		name = cls.Name
	}
	sh.classNames[id] = name
	return name
}

func (sh *viewShaper) subjectName(id string) string {
	if name, ok := sh.subjectNames[id]; ok {
		return name
	}
	name := id
	if sub, err := sh.svc.dirs.GetSubject(sh.ctx, id); err == nil {
		name = sub.Name
	}
	sh.subjectNames[id] = name
	return name
}

func (sh *viewShaper) teacherName(id string) string {
	if name, ok := sh.teacherNames[id]; ok {
		return name
	}
	name := sh.svc.dirs.TeacherDisplayName(sh.ctx, id)
	sh.teacherNames[id] = name
	return name
}
