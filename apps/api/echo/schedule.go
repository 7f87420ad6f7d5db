package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
)

type scheduleApi struct {
	svc    *schedule.Service
	school *school.Service
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service, schoolSvc *school.Service) {
	api := scheduleApi{svc: svc, school: schoolSvc}

	sg := g.Group("/schedule", jwt)

	// entry management (admin only)
	eg := sg.Group("/entries", adminMiddleware())
	eg.POST("", api.create)
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update)
	eg.DELETE("/:id", api.destroy)

	// role-scoped timetable: each caller gets the view their role implies
	sg.GET("/timetable", api.myTimetable)

	// explicit timetable lookups
	sg.GET("/classes/:id/sections/:section/timetable", api.classTimetable, teacherOrAdminMiddleware())
	sg.GET("/teachers/:id/timetable", api.teacherTimetable, teacherOrAdminMiddleware())
}

// Handlers

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}

	entry, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	var filter schedule.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.IncludeInactive = ctx.QueryParam("include_inactive") == "true"

	entries, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying entries")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	entry, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	var data schedule.UpdateEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntry")
	}

	entry, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	if err := api.svc.SoftDelete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// myTimetable resolves the weekly view the caller's role implies:
// teachers get their own teaching week, students their class-section week,
// parents one week per linked child, admins any scope via query params.
func (api *scheduleApi) myTimetable(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	reqCtx := ctx.Request().Context()

	switch {
	case claims.IsAdmin:
		return api.adminTimetable(ctx)

	case claims.IsTeacher:
		prof, err := api.school.GetTeacherByUser(reqCtx, claims.Subject)
		if err != nil {
			return err
		}
		week, err := api.svc.WeekForTeacher(reqCtx, prof.ID, ctx.QueryParam("academic_year"))
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, week)

	case claims.IsStudent:
		week, err := api.svc.WeekForStudentUser(reqCtx, claims.Subject)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, week)

	case claims.IsParent:
		views, err := api.svc.WeeksForGuardianUser(reqCtx, claims.Subject)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, echo.Map{"children": views})
	}
	return errHTTPForbidden
}

func (api *scheduleApi) adminTimetable(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	if teacherID := ctx.QueryParam("teacher_id"); teacherID != "" {
		week, err := api.svc.WeekForTeacher(reqCtx, teacherID, ctx.QueryParam("academic_year"))
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, week)
	}

	classID, section, year := ctx.QueryParam("class_id"), ctx.QueryParam("section"), ctx.QueryParam("academic_year")
	if classID == "" || section == "" || year == "" {
		return core.NewValidationError(
			errors.New("missing timetable scope"),
			core.FieldError{Field: "class_id", Error: "provide teacher_id or class_id+section+academic_year"},
		)
	}
	week, err := api.svc.WeekForClass(reqCtx, classID, section, year)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *scheduleApi) classTimetable(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	classID, section := ctx.Param("id"), ctx.Param("section")

	// 404 on unknown classes rather than silently empty weeks
	if _, err := api.school.GetClass(reqCtx, classID); err != nil {
		return err
	}

	week, err := api.svc.WeekForClass(reqCtx, classID, section, ctx.QueryParam("academic_year"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *scheduleApi) teacherTimetable(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	teacherID := ctx.Param("id")

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// teachers can only see their own schedule
	if !claims.IsAdmin {
		prof, err := api.school.GetTeacherByUser(reqCtx, claims.Subject)
		if err != nil {
			return err
		}
		if prof.ID != teacherID {
			return errHTTPForbidden
		}
	}

	if _, err = api.school.GetTeacher(reqCtx, teacherID); err != nil {
		return err
	}

	week, err := api.svc.WeekForTeacher(reqCtx, teacherID, ctx.QueryParam("academic_year"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, week)
}
