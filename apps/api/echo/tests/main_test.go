package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	. "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	"github.com/trezcool/ratiba/core/user"
	emailsvc "github.com/trezcool/ratiba/services/email"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
)

var (
	ctx = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

func TestMain(m *testing.M) {
	// error payloads are wrapped differently in debug mode
	core.Conf.Debug = false
	core.Conf.TestMode = true
	os.Exit(m.Run())
}

// nopLogger satisfies core.Logger; these tests do not assert on logs.
type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testApp struct {
	app Server

	usrRepo    user.Repository
	schoolRepo school.Repository
	schedSvc   *schedule.Service
}

func newTestApp() *testApp {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	schoolRepo := inmemdb.NewSchoolRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock()

	usrSvc := user.NewService(nil, usrRepo, mailSvc)
	schoolSvc := school.NewService(schoolRepo)
	schedSvc := schedule.NewService(nil, inmemdb.NewEntryRepository(db), schoolSvc, usrSvc, mailSvc)

	app := NewServer(&Options{
		DisableReqLogs: true,
		Logger:         nopLogger{},
		UserSvc:        usrSvc,
		SchoolSvc:      schoolSvc,
		ScheduleSvc:    schedSvc,
	})
	return &testApp{
		app:        app,
		usrRepo:    usrRepo,
		schoolRepo: schoolRepo,
		schedSvc:   schedSvc,
	}
}

// Fixtures

func (ta *testApp) createClass(t *testing.T, name string) school.Class {
	t.Helper()
	now := time.Now().UTC()
	cls, err := ta.schoolRepo.CreateClass(ctx, school.Class{Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return cls
}

func (ta *testApp) createSubject(t *testing.T, name string, teacherID ...string) school.Subject {
	t.Helper()
	now := time.Now().UTC()
	sub := school.Subject{Name: name, CreatedAt: now, UpdatedAt: now}
	if len(teacherID) > 0 {
		sub.AssignedTeacherID = null.StringFrom(teacherID[0])
	}
	sub, err := ta.schoolRepo.CreateSubject(ctx, sub)
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return sub
}

func (ta *testApp) createTeacher(t *testing.T, displayName, uname, email string) (user.User, school.TeacherProfile) {
	t.Helper()
	usr := user.CreateUser(t, ta.usrRepo, displayName, uname, email, "", []string{user.RoleTeacher}, true)
	now := time.Now().UTC()
	prof, err := ta.schoolRepo.CreateTeacherProfile(ctx, school.TeacherProfile{
		UserID:      usr.ID,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("createTeacher() failed: %v", err)
	}
	return usr, prof
}

func (ta *testApp) createStudent(t *testing.T, displayName, uname, classID, section, year string, guardianIDs ...string) (user.User, school.StudentProfile) {
	t.Helper()
	usr := user.CreateUser(t, ta.usrRepo, displayName, uname, "", "", []string{user.RoleStudent}, true)
	now := time.Now().UTC()
	prof := school.StudentProfile{
		UserID:      usr.ID,
		DisplayName: displayName,
		GuardianIDs: guardianIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if classID != "" {
		prof.ClassID = null.StringFrom(classID)
		prof.Section = null.StringFrom(section)
		prof.AcademicYear = null.StringFrom(year)
	}
	prof, err := ta.schoolRepo.CreateStudentProfile(ctx, prof)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return usr, prof
}

func (ta *testApp) createEntry(t *testing.T, ne schedule.NewEntry) schedule.Entry {
	t.Helper()
	entry, err := ta.schedSvc.Create(ctx, ne)
	if err != nil {
		t.Fatalf("createEntry() failed: %v", err)
	}
	return entry
}

// HTTP helpers

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantCode == http.StatusNoContent {
		if rec.Body.Len() > 0 {
			t.Errorf("failed! data = %v; want empty body", rec.Body.String())
		}
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
