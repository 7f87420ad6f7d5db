package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/school"
	"github.com/trezcool/ratiba/core/user"
)

type (
	Repository interface {
		CreateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
		// GetEntryByID returns the entry regardless of its active flag; the
		// Service decides how soft-deleted records surface per operation.
		GetEntryByID(ctx context.Context, id string, exec ...core.DBExecutor) (Entry, error)
		UpdateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
		SetEntryActive(ctx context.Context, id string, active bool, exec ...core.DBExecutor) error
		// QueryEntries only returns active entries unless filter.IncludeInactive is set.
		QueryEntries(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Entry, error)
	}

	// Directory is the slice of the school directory the engine consumes:
	// existence checks, assigned-teacher resolution and display names.
	Directory interface {
		ClassExists(ctx context.Context, id string) (bool, error)
		GetClass(ctx context.Context, id string) (school.Class, error)
		GetSubject(ctx context.Context, id string) (school.Subject, error)
		AssignedTeacher(ctx context.Context, subjectID string) (teacherID string, ok bool, err error)
		GetTeacher(ctx context.Context, id string) (school.TeacherProfile, error)
		GetTeacherByUser(ctx context.Context, userID string) (school.TeacherProfile, error)
		TeacherDisplayName(ctx context.Context, teacherID string) string
		GetStudentByUser(ctx context.Context, userID string) (school.StudentProfile, error)
		ChildrenOf(ctx context.Context, guardianUserID string) ([]school.StudentProfile, error)
	}

	// UserDirectory resolves user accounts for notification addressing.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		db    core.DB
		repo  Repository
		dirs  Directory
		users UserDirectory
		mail  core.EmailService
		clock func() time.Time

		// mu serializes check+write when no db handle is present; see withTx.
		mu sync.Mutex
	}
)

func NewService(db core.DB, repo Repository, dirs Directory, users UserDirectory, mailSvc core.EmailService) *Service {
	return &Service{
		db:    db,
		repo:  repo,
		dirs:  dirs,
		users: users,
		mail:  mailSvc,
		clock: time.Now,
	}
}

// withTx runs fn inside a serializable transaction so the conflict check and
// the write it guards commit atomically; two concurrent writers for the same
// slot cannot both pass the check (the exclusion constraints in the schema
// back this up at the database level). Without a db handle (in-memory repos)
// the service's own mutex serializes the whole check+write instead; the
// repo's per-call lock alone would leave a window between the two.
func (svc *Service) withTx(ctx context.Context, fn func(exec []core.DBExecutor) error) error {
	if svc.db == nil {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return fn(nil)
	}
	tx, err := svc.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	var txr core.DBTransactor = tx
	if err := fn([]core.DBExecutor{txr}); err != nil {
		_ = txr.Rollback()
		return err
	}
	return errors.Wrap(txr.Commit(), "committing transaction")
}

func (svc *Service) Create(ctx context.Context, ne NewEntry) (Entry, error) {
	if err := ne.Validate(); err != nil {
		return Entry{}, err
	}

	// an omitted teacher falls back to the subject's assigned teacher; a
	// subject without one is a hard precondition failure, never a nil teacher.
	if ne.TeacherID == "" {
		teacherID, ok, err := svc.dirs.AssignedTeacher(ctx, ne.SubjectID)
		if err != nil {
			if errors.Cause(err) == school.ErrSubjectNotFound {
				return Entry{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: "subject not found"})
			}
			return Entry{}, errors.Wrap(err, "resolving assigned teacher")
		}
		if !ok {
			return Entry{}, core.NewValidationError(
				errors.New("subject has no assigned teacher"),
				core.FieldError{Field: "teacher_id", Error: "subject has no assigned teacher; provide one explicitly"},
			)
		}
		ne.TeacherID = teacherID
	} else if _, err := svc.dirs.GetSubject(ctx, ne.SubjectID); err != nil {
		if errors.Cause(err) == school.ErrSubjectNotFound {
			return Entry{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: "subject not found"})
		}
		return Entry{}, errors.Wrap(err, "checking subject")
	}

	if ok, err := svc.dirs.ClassExists(ctx, ne.ClassID); err != nil {
		return Entry{}, errors.Wrap(err, "checking class")
	} else if !ok {
		return Entry{}, core.NewValidationError(school.ErrClassNotFound, core.FieldError{Field: "class_id", Error: "class not found"})
	}
	if _, err := svc.dirs.GetTeacher(ctx, ne.TeacherID); err != nil {
		if errors.Cause(err) == school.ErrTeacherNotFound {
			return Entry{}, core.NewValidationError(err, core.FieldError{Field: "teacher_id", Error: "teacher profile not found"})
		}
		return Entry{}, errors.Wrap(err, "checking teacher")
	}

	day, _ := ParseDay(ne.Day) // validated above
	now := svc.clock().UTC()
	entry := Entry{
		ID:           uuid.New().String(),
		ClassID:      ne.ClassID,
		Section:      ne.Section,
		SubjectID:    ne.SubjectID,
		TeacherID:    ne.TeacherID,
		Room:         ne.Room,
		Day:          day,
		StartTime:    ne.StartTime,
		EndTime:      ne.EndTime,
		AcademicYear: ne.AcademicYear,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := svc.withTx(ctx, func(exec []core.DBExecutor) error {
		conflicts, err := svc.checkConflicts(ctx, entry, "", exec...)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}
		entry, err = svc.repo.CreateEntry(ctx, entry, exec...)
		return err
	})
	if err != nil {
		return Entry{}, err
	}

	svc.notifyTeacher(ctx, entry, "A new lesson has been scheduled for you")
	return entry, nil
}

func (svc *Service) Update(ctx context.Context, id string, ue UpdateEntry) (Entry, error) {
	if err := checkID(id); err != nil {
		return Entry{}, err
	}
	if err := ue.Validate(); err != nil {
		return Entry{}, err
	}

	existing, err := svc.repo.GetEntryByID(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if !existing.IsActive {
		return Entry{}, ErrNotFound
	}

	// merge the patch over the existing record; the merged candidate is what
	// gets re-validated so untouched fields cannot dodge the conflict check.
	cand := existing
	ue.Apply(&cand)
	if s, e := MinutesOf(cand.StartTime), MinutesOf(cand.EndTime); e <= s || s == minutesInfinity {
		return Entry{}, core.NewValidationError(
			errors.New("invalid time range"),
			core.FieldError{Field: "end_time", Error: timeOrderText},
		)
	}
	if ue.TeacherID != nil {
		if _, err := svc.dirs.GetTeacher(ctx, cand.TeacherID); err != nil {
			if errors.Cause(err) == school.ErrTeacherNotFound {
				return Entry{}, core.NewValidationError(err, core.FieldError{Field: "teacher_id", Error: "teacher profile not found"})
			}
			return Entry{}, errors.Wrap(err, "checking teacher")
		}
	}
	if ue.SubjectID != nil {
		if _, err := svc.dirs.GetSubject(ctx, cand.SubjectID); err != nil {
			if errors.Cause(err) == school.ErrSubjectNotFound {
				return Entry{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: "subject not found"})
			}
			return Entry{}, errors.Wrap(err, "checking subject")
		}
	}
	if ue.ClassID != nil {
		if ok, err := svc.dirs.ClassExists(ctx, cand.ClassID); err != nil {
			return Entry{}, errors.Wrap(err, "checking class")
		} else if !ok {
			return Entry{}, core.NewValidationError(school.ErrClassNotFound, core.FieldError{Field: "class_id", Error: "class not found"})
		}
	}
	cand.UpdatedAt = svc.clock().UTC()

	err = svc.withTx(ctx, func(exec []core.DBExecutor) error {
		conflicts, err := svc.checkConflicts(ctx, cand, cand.ID, exec...)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}
		cand, err = svc.repo.UpdateEntry(ctx, cand, exec...)
		return err
	})
	if err != nil {
		return Entry{}, err
	}

	svc.notifyTeacher(ctx, cand, "One of your scheduled lessons has changed")
	return cand, nil
}

// SoftDelete flips the entry inactive, excluding it from every future conflict
// check and listing while keeping the record for audit. Deleting an already
// inactive entry is a no-op; nothing is ever physically removed.
func (svc *Service) SoftDelete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	existing, err := svc.repo.GetEntryByID(ctx, id)
	if err != nil {
		return err
	}
	if !existing.IsActive {
		return nil // idempotent
	}
	if err := svc.repo.SetEntryActive(ctx, id, false); err != nil {
		return err
	}
	svc.notifyTeacher(ctx, existing, "One of your scheduled lessons has been cancelled")
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Entry, error) {
	if err := checkID(id); err != nil {
		return Entry{}, err
	}
	entry, err := svc.repo.GetEntryByID(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if !entry.IsActive {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	filter.Clean()
	return svc.repo.QueryEntries(ctx, filter)
}

// checkID distinguishes a malformed identifier (a validation failure) from a
// well-formed one that simply does not exist (not-found).
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return core.NewValidationError(
			errors.Wrap(err, "malformed entry id"),
			core.FieldError{Field: "id", Error: "malformed entry id"},
		)
	}
	return nil
}

// notifyTeacher emails the affected teacher about a timetable change.
// Delivery errors are swallowed; the write has already been committed.
func (svc *Service) notifyTeacher(ctx context.Context, entry Entry, subject string) {
	if svc.mail == nil || svc.users == nil {
		return
	}
	prof, err := svc.dirs.GetTeacher(ctx, entry.TeacherID)
	if err != nil {
		return
	}
	usr, err := svc.users.GetByID(ctx, prof.UserID)
	if err != nil || usr.Email == "" {
		return
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: subject,
		BodyStr: fmt.Sprintf(
			"%s: %s %s-%s, room %s, class %s section %s (%s).",
			subject, entry.Day, entry.StartTime, entry.EndTime, entry.Room, entry.ClassID, entry.Section, entry.AcademicYear,
		),
	})
}
