package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	"github.com/trezcool/ratiba/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHTTPForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// notFoundErrs are domain errors that surface as 404s. Compared by identity;
// causes are not all hashable so a map keyed on error cannot hold them.
var notFoundErrs = []error{
	user.ErrNotFound,
	schedule.ErrNotFound,
	school.ErrClassNotFound,
	school.ErrSubjectNotFound,
	school.ErrTeacherNotFound,
	school.ErrStudentNotFound,
}

func isNotFoundErr(err error) bool {
	for _, sentinel := range notFoundErrs {
		if err == sentinel {
			return true
		}
	}
	return false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch cause := errors.Cause(err); {
		case isNotFoundErr(cause):
			sendResponse(ctx, http.StatusNotFound, wrapMessage(ctx, err, errHTTPNotFound.Message))
			return
		case cause == schedule.ErrConflict:
			// the database exclusion constraint fired after the in-tx check;
			// no detailed conflict list is available at this point.
			sendResponse(ctx, http.StatusConflict, wrapMessage(ctx, err, cause.Error()))
			return
		}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *schedule.ConflictError:
			code = http.StatusConflict
			message = echo.Map{
				"error":     origErr.Error(),
				"conflicts": origErr.Conflicts,
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		sendResponse(ctx, code, wrapMessage(ctx, err, message))
	}
}

func wrapMessage(ctx echo.Context, err error, message interface{}) interface{} {
	if ctx.Echo().Debug {
		return err.Error()
	}
	if m, ok := message.(string); ok {
		return echo.Map{"error": m}
	}
	return message
}

func sendResponse(ctx echo.Context, code int, message interface{}) {
	if ctx.Response().Committed {
		return
	}
	var err error
	if ctx.Request().Method == http.MethodHead { // Issue #608
		err = ctx.NoContent(code)
	} else {
		err = ctx.JSON(code, message)
	}
	if err != nil {
		ctx.Echo().Logger.Error(err)
	}
}
