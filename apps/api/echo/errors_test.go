package echoapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	"github.com/trezcool/ratiba/core/user"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func validationErrs(t *testing.T) error {
	t.Helper()
	err := core.Validate.Struct(struct {
		Name string `json:"name" validate:"required"`
	}{})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	return err
}

func Test_appHTTPErrorHandler(t *testing.T) {
	handler := newAppHTTPErrorHandler(nopLogger{}, func() {})

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody map[string]interface{}
	}{
		{
			name:     "wrapped not found sentinel",
			err:      errors.Wrap(schedule.ErrNotFound, "getting entry"),
			wantCode: http.StatusNotFound,
			wantBody: map[string]interface{}{"error": "not found"},
		},
		{
			name:     "user not found sentinel",
			err:      user.ErrNotFound,
			wantCode: http.StatusNotFound,
			wantBody: map[string]interface{}{"error": "not found"},
		},
		{
			name:     "subject not found sentinel",
			err:      errors.Wrap(school.ErrSubjectNotFound, "getting subject"),
			wantCode: http.StatusNotFound,
			wantBody: map[string]interface{}{"error": "not found"},
		},
		{
			name:     "exclusion constraint backstop",
			err:      errors.Wrap(schedule.ErrConflict, "creating entry"),
			wantCode: http.StatusConflict,
			wantBody: map[string]interface{}{"error": "scheduling conflict"},
		},
		{
			name:     "field validation errors",
			err:      validationErrs(t),
			wantCode: http.StatusBadRequest,
			wantBody: map[string]interface{}{"name": "this field is required"},
		},
		{
			name:     "detailed conflict",
			err:      &schedule.ConflictError{Conflicts: []schedule.Conflict{{Type: schedule.ConflictRoom, Message: "room R1 is taken", EntryID: "x"}}},
			wantCode: http.StatusConflict,
		},
		{
			name:     "unexpected error",
			err:      errors.New("kaboom"),
			wantCode: http.StatusInternalServerError,
			wantBody: map[string]interface{}{"error": http.StatusText(http.StatusInternalServerError)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			handler(tt.err, app.NewContext(req, rec))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody == nil {
				return
			}
			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshalling body %q: %v", rec.Body.String(), err)
			}
			if !reflect.DeepEqual(body, tt.wantBody) {
				t.Errorf("body = %v, want %v", body, tt.wantBody)
			}
		})
	}
}
