package schedule_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
)

func TestGroupByDay(t *testing.T) {
	entries := []schedule.Entry{
		{ID: "1", Day: schedule.Wednesday, StartTime: "10:00", EndTime: "11:00"},
		{ID: "2", Day: schedule.Monday, StartTime: "14:00", EndTime: "15:00"},
		{ID: "3", Day: schedule.Monday, StartTime: "08:00", EndTime: "09:00"},
		{ID: "4", Day: schedule.Monday, StartTime: "", EndTime: ""}, // corrupt time sorts last
	}

	grouped := schedule.GroupByDay(entries)

	// one key per day of the week, empty days included
	if len(grouped) != len(schedule.AllDays) {
		t.Fatalf("GroupByDay() has %d keys, want %d", len(grouped), len(schedule.AllDays))
	}
	for _, day := range schedule.AllDays {
		if _, ok := grouped[day]; !ok {
			t.Errorf("GroupByDay() missing day %v", day)
		}
	}

	// the union of buckets is exactly the input
	var total int
	for _, dayEntries := range grouped {
		total += len(dayEntries)
	}
	if total != len(entries) {
		t.Errorf("GroupByDay() holds %d entries, want %d", total, len(entries))
	}

	monday := grouped[schedule.Monday]
	if len(monday) != 3 {
		t.Fatalf("GroupByDay() monday has %d entries, want 3", len(monday))
	}
	if monday[0].ID != "3" || monday[1].ID != "2" || monday[2].ID != "4" {
		t.Errorf("GroupByDay() monday order = %v %v %v, want 3 2 4", monday[0].ID, monday[1].ID, monday[2].ID)
	}
	if len(grouped[schedule.Sunday]) != 0 {
		t.Errorf("GroupByDay() sunday = %v, want empty", grouped[schedule.Sunday])
	}
}

func TestWeekForClass(t *testing.T) {
	env := setup(t)
	cls := env.createClass(t, "Grade 10")
	teacher := env.createTeacher(t, "Mr. Banza", "banza@test.test")
	sub := env.createSubject(t, "Mathematics", teacher.ID)

	env.mustCreate(t, newEntry(cls, sub, teacher))
	ne := newEntry(cls, sub, teacher)
	ne.Day = "wednesday"
	ne.StartTime, ne.EndTime = "08:00", "09:00"
	env.mustCreate(t, ne)

	// another section's lesson must not leak in
	other := newEntry(cls, sub, teacher)
	other.Section = "B"
	other.Room = "R2"
	other.Day = "tuesday"
	env.mustCreate(t, other)

	week, err := env.svc.WeekForClass(ctx, cls.ID, "A", "2025-2026")
	if err != nil {
		t.Fatalf("WeekForClass() failed: %v", err)
	}
	if len(week.Items) != 2 {
		t.Fatalf("WeekForClass() has %d items, want 2", len(week.Items))
	}
	if len(week.ByDay) != len(schedule.AllDays) {
		t.Errorf("WeekForClass() ByDay has %d keys, want %d", len(week.ByDay), len(schedule.AllDays))
	}
	if len(week.ByDay[schedule.Monday]) != 1 || len(week.ByDay[schedule.Wednesday]) != 1 {
		t.Errorf("WeekForClass() ByDay = %+v, want monday and wednesday each with one item", week.ByDay)
	}
	if len(week.ByDay[schedule.Tuesday]) != 0 {
		t.Error("WeekForClass() leaked another section's lesson")
	}

	// display names are attached from the directory
	item := week.ByDay[schedule.Monday][0]
	if item.ClassName != "Grade 10" || item.SubjectName != "Mathematics" || item.TeacherName != "Mr. Banza" {
		t.Errorf("WeekForClass() item = %+v, want directory names attached", item)
	}
}

func TestWeekForTeacher(t *testing.T) {
	env := setup(t)
	cls1 := env.createClass(t, "Grade 10")
	cls2 := env.createClass(t, "Grade 11")
	t1 := env.createTeacher(t, "Mr. Banza", "banza@test.test")
	t2 := env.createTeacher(t, "Mrs. Kazadi", "kazadi@test.test")
	sub := env.createSubject(t, "Mathematics", t1.ID)

	env.mustCreate(t, newEntry(cls1, sub, t1))
	ne := newEntry(cls2, sub, t1)
	ne.Room = "R2"
	ne.StartTime, ne.EndTime = "10:00", "11:00"
	env.mustCreate(t, ne)

	other := newEntry(cls2, sub, t2)
	other.Room = "R3"
	other.Day = "friday"
	env.mustCreate(t, other)

	week, err := env.svc.WeekForTeacher(ctx, t1.ID, "2025-2026")
	if err != nil {
		t.Fatalf("WeekForTeacher() failed: %v", err)
	}
	if len(week.Items) != 2 {
		t.Fatalf("WeekForTeacher() has %d items, want 2", len(week.Items))
	}
	for _, item := range week.Items {
		if item.TeacherID != t1.ID {
			t.Errorf("WeekForTeacher() leaked entry for teacher %v", item.TeacherID)
		}
	}
	if got := week.ByDay[schedule.Monday]; len(got) != 2 || got[0].StartTime != "09:00" || got[1].StartTime != "10:00" {
		t.Errorf("WeekForTeacher() monday = %+v, want both lessons in start order", got)
	}
}

func TestWeekForStudentUser(t *testing.T) {
	env := setup(t)
	cls := env.createClass(t, "Grade 10")
	teacher := env.createTeacher(t, "Mr. Banza", "banza@test.test")
	sub := env.createSubject(t, "Mathematics", teacher.ID)
	env.mustCreate(t, newEntry(cls, sub, teacher))

	usr, _ := env.createStudent(t, "Ada", cls.ID, "A", "2025-2026")

	week, err := env.svc.WeekForStudentUser(ctx, usr.ID)
	if err != nil {
		t.Fatalf("WeekForStudentUser() failed: %v", err)
	}
	if len(week.Items) != 1 {
		t.Errorf("WeekForStudentUser() has %d items, want 1", len(week.Items))
	}
}

func TestWeekForStudentUser_emptySkeletons(t *testing.T) {
	env := setup(t)

	assertEmptyWeek := func(t *testing.T, week schedule.WeekView, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("WeekForStudentUser() failed: %v", err)
		}
		if len(week.Items) != 0 {
			t.Errorf("WeekForStudentUser() has %d items, want 0", len(week.Items))
		}
		if len(week.ByDay) != len(schedule.AllDays) {
			t.Errorf("WeekForStudentUser() ByDay has %d keys, want full week skeleton", len(week.ByDay))
		}
	}

	t.Run("no profile", func(t *testing.T) {
		usr := user.CreateUser(t, env.userRepo, "Ada", "", "", "", []string{user.RoleStudent}, true)
		week, err := env.svc.WeekForStudentUser(ctx, usr.ID)
		assertEmptyWeek(t, week, err)
	})

	t.Run("not enrolled", func(t *testing.T) {
		usr, _ := env.createStudent(t, "Ada", "", "", "")
		week, err := env.svc.WeekForStudentUser(ctx, usr.ID)
		assertEmptyWeek(t, week, err)
	})
}

func TestWeeksForGuardianUser(t *testing.T) {
	env := setup(t)
	cls := env.createClass(t, "Grade 10")
	teacher := env.createTeacher(t, "Mr. Banza", "banza@test.test")
	sub := env.createSubject(t, "Mathematics", teacher.ID)
	env.mustCreate(t, newEntry(cls, sub, teacher))

	guardian := user.CreateUser(t, env.userRepo, "Mrs. Okafor", "", "okafor@test.test", "", []string{user.RoleParent}, true)
	env.createStudent(t, "Ada", cls.ID, "A", "2025-2026", guardian.ID)
	env.createStudent(t, "Obi", "", "", "", guardian.ID) // not enrolled yet

	views, err := env.svc.WeeksForGuardianUser(ctx, guardian.ID)
	if err != nil {
		t.Fatalf("WeeksForGuardianUser() failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("WeeksForGuardianUser() has %d children, want 2", len(views))
	}

	byName := make(map[string]schedule.ChildWeekView, len(views))
	for _, v := range views {
		byName[v.DisplayName] = v
	}
	if got := byName["Ada"]; len(got.Week.Items) != 1 {
		t.Errorf("WeeksForGuardianUser() Ada has %d items, want 1", len(got.Week.Items))
	}
	// the unenrolled child gets its own empty skeleton without failing the sibling
	if got := byName["Obi"]; len(got.Week.Items) != 0 || len(got.Week.ByDay) != len(schedule.AllDays) {
		t.Errorf("WeeksForGuardianUser() Obi = %+v, want empty skeleton", byName["Obi"])
	}
}

func TestWeeksForGuardianUser_noChildren(t *testing.T) {
	env := setup(t)

	views, err := env.svc.WeeksForGuardianUser(ctx, uuid.New().String())
	if err != nil {
		t.Fatalf("WeeksForGuardianUser() failed: %v", err)
	}
	if len(views) != 0 {
		t.Errorf("WeeksForGuardianUser() = %+v, want empty", views)
	}
}
