package schedule_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	"github.com/trezcool/ratiba/core/user"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
)

// mailRecorder captures outgoing messages synchronously for assertions.
type mailRecorder struct {
	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*mailRecorder)(nil)

func (rec *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, msg := range messages {
		rec.sent = append(rec.sent, *msg)
	}
}

func (rec *mailRecorder) count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.sent)
}

type testEnv struct {
	svc        *schedule.Service
	schoolSvc  *school.Service
	schoolRepo school.Repository
	userRepo   user.Repository
	mail       *mailRecorder
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db := inmemdb.Open()
	mail := &mailRecorder{}
	userRepo := inmemdb.NewUserRepository(db)
	schoolRepo := inmemdb.NewSchoolRepository(db)
	schoolSvc := school.NewService(schoolRepo)
	usrSvc := user.NewService(nil, userRepo, mail)
	svc := schedule.NewService(nil, inmemdb.NewEntryRepository(db), schoolSvc, usrSvc, mail)
	return &testEnv{
		svc:        svc,
		schoolSvc:  schoolSvc,
		schoolRepo: schoolRepo,
		userRepo:   userRepo,
		mail:       mail,
	}
}

var ctx = context.Background()

func (env *testEnv) createClass(t *testing.T, name string) school.Class {
	t.Helper()
	cls, err := env.schoolRepo.CreateClass(ctx, school.Class{Name: name, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return cls
}

func (env *testEnv) createSubject(t *testing.T, name string, teacherID ...string) school.Subject {
	t.Helper()
	sub := school.Subject{Name: name, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if len(teacherID) > 0 {
		sub.AssignedTeacherID = null.StringFrom(teacherID[0])
	}
	sub, err := env.schoolRepo.CreateSubject(ctx, sub)
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return sub
}

func (env *testEnv) createTeacher(t *testing.T, displayName, email string) school.TeacherProfile {
	t.Helper()
	usr := user.CreateUser(t, env.userRepo, displayName, "", email, "", []string{user.RoleTeacher}, true)
	prof, err := env.schoolRepo.CreateTeacherProfile(ctx, school.TeacherProfile{
		UserID:      usr.ID,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createTeacher() failed: %v", err)
	}
	return prof
}

func (env *testEnv) createStudent(t *testing.T, displayName string, classID, section, year string, guardianIDs ...string) (user.User, school.StudentProfile) {
	t.Helper()
	usr := user.CreateUser(t, env.userRepo, displayName, "", "", "", []string{user.RoleStudent}, true)
	prof := school.StudentProfile{
		UserID:      usr.ID,
		DisplayName: displayName,
		GuardianIDs: guardianIDs,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if classID != "" {
		prof.ClassID = null.StringFrom(classID)
		prof.Section = null.StringFrom(section)
		prof.AcademicYear = null.StringFrom(year)
	}
	prof, err := env.schoolRepo.CreateStudentProfile(ctx, prof)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return usr, prof
}

// newEntry returns a valid Monday 09:00-10:00 slot; tests tweak fields per case.
func newEntry(cls school.Class, sub school.Subject, teacher school.TeacherProfile) schedule.NewEntry {
	return schedule.NewEntry{
		ClassID:      cls.ID,
		Section:      "A",
		SubjectID:    sub.ID,
		TeacherID:    teacher.ID,
		Room:         "R1",
		Day:          "monday",
		StartTime:    "09:00",
		EndTime:      "10:00",
		AcademicYear: "2025-2026",
	}
}

func (env *testEnv) mustCreate(t *testing.T, ne schedule.NewEntry) schedule.Entry {
	t.Helper()
	entry, err := env.svc.Create(ctx, ne)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return entry
}

func strPtr(s string) *string { return &s }

func conflictTypes(err error) []schedule.ConflictType {
	cErr, ok := err.(*schedule.ConflictError)
	if !ok {
		return nil
	}
	types := make([]schedule.ConflictType, 0, len(cErr.Conflicts))
	for _, c := range cErr.Conflicts {
		types = append(types, c.Type)
	}
	return types
}
