package main

import (
	"context"
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	"github.com/trezcool/ratiba/core/user"
)

var seedPassword = "ChangeMe!123"

// seed loads a small demo school into a fresh database: one class with a
// section, two teachers with their subjects, an enrolled student with a
// guardian, and a week of schedule entries.
func (cli *commandLine) seed() error {
	ctx := context.Background()
	now := time.Now().UTC()
	year := academicYear(now)

	cls, err := cli.schoolRepo.CreateClass(ctx, school.Class{Name: "Form 1", CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return err
	}

	mathTeacher, err := cli.seedTeacher(ctx, "Mr. Banza", "banza", "banza@example.com")
	if err != nil {
		return err
	}
	engTeacher, err := cli.seedTeacher(ctx, "Mrs. Kanza", "kanza", "kanza@example.com")
	if err != nil {
		return err
	}

	mathSub, err := cli.schoolRepo.CreateSubject(ctx, school.Subject{
		Name: "Mathematics", AssignedTeacherID: null.StringFrom(mathTeacher.ID), CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		return err
	}
	engSub, err := cli.schoolRepo.CreateSubject(ctx, school.Subject{
		Name: "English", AssignedTeacherID: null.StringFrom(engTeacher.ID), CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		return err
	}

	guardian, err := cli.seedUser(ctx, "Mama Ada", "mamaada", "mamaada@example.com", user.RoleParent)
	if err != nil {
		return err
	}
	if err = cli.seedStudent(ctx, "Ada Banza", "ada", cls.ID, "A", year, guardian.ID); err != nil {
		return err
	}

	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		for _, slot := range []struct {
			start, end, subjectID, room string
		}{
			{"08:00", "09:00", mathSub.ID, "R1"},
			{"09:00", "10:00", engSub.ID, "R1"},
		} {
			_, err := cli.schedSvc.Create(ctx, schedule.NewEntry{
				ClassID:      cls.ID,
				Section:      "A",
				SubjectID:    slot.subjectID,
				Room:         slot.room,
				Day:          day,
				StartTime:    slot.start,
				EndTime:      slot.end,
				AcademicYear: year,
			})
			if err != nil {
				return err
			}
		}
	}

	fmt.Printf("seeded demo timetable for class %q, section A, %s\n", cls.Name, year)
	return nil
}

func (cli *commandLine) seedUser(ctx context.Context, name, uname, email string, roles ...string) (user.User, error) {
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(seedPassword); err != nil {
		return user.User{}, err
	}
	return cli.usrRepo.CreateUser(ctx, usr)
}

func (cli *commandLine) seedTeacher(ctx context.Context, name, uname, email string) (school.TeacherProfile, error) {
	usr, err := cli.seedUser(ctx, name, uname, email, user.RoleTeacher)
	if err != nil {
		return school.TeacherProfile{}, err
	}
	now := time.Now().UTC()
	return cli.schoolRepo.CreateTeacherProfile(ctx, school.TeacherProfile{
		UserID:      usr.ID,
		DisplayName: name,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (cli *commandLine) seedStudent(ctx context.Context, name, uname, classID, section, year string, guardianIDs ...string) error {
	usr, err := cli.seedUser(ctx, name, uname, "", user.RoleStudent)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = cli.schoolRepo.CreateStudentProfile(ctx, school.StudentProfile{
		UserID:       usr.ID,
		DisplayName:  name,
		ClassID:      null.StringFrom(classID),
		Section:      null.StringFrom(section),
		AcademicYear: null.StringFrom(year),
		GuardianIDs:  guardianIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return err
}

// academicYear derives the "YYYY-YYYY" session label; sessions roll over in August.
func academicYear(now time.Time) string {
	y := now.Year()
	if now.Month() < time.August {
		y--
	}
	return fmt.Sprintf("%d-%d", y, y+1)
}
