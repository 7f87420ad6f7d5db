package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	ErrClassNotFound   = errors.New("class not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrTeacherNotFound = errors.New("teacher profile not found")
	ErrStudentNotFound = errors.New("student profile not found")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		GetClassByID(ctx context.Context, id string, exec ...core.DBExecutor) (Class, error)

		CreateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
		GetSubjectByID(ctx context.Context, id string, exec ...core.DBExecutor) (Subject, error)

		CreateTeacherProfile(ctx context.Context, prof TeacherProfile, exec ...core.DBExecutor) (TeacherProfile, error)
		GetTeacherProfileByID(ctx context.Context, id string, exec ...core.DBExecutor) (TeacherProfile, error)
		GetTeacherProfileByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (TeacherProfile, error)

		CreateStudentProfile(ctx context.Context, prof StudentProfile, exec ...core.DBExecutor) (StudentProfile, error)
		GetStudentProfileByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (StudentProfile, error)
		QueryStudentProfilesByGuardianID(ctx context.Context, guardianUserID string, exec ...core.DBExecutor) ([]StudentProfile, error)
	}

	// Service is the directory consumed by the scheduling engine: existence
	// checks, assigned-teacher resolution and display names.
	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) ClassExists(ctx context.Context, id string) (bool, error) {
	if _, err := svc.repo.GetClassByID(ctx, id); err != nil {
		if errors.Cause(err) == ErrClassNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

// AssignedTeacher resolves the subject's default teacher; ok is false when the
// subject has none.
func (svc *Service) AssignedTeacher(ctx context.Context, subjectID string) (teacherID string, ok bool, err error) {
	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return "", false, err
	}
	if !sub.AssignedTeacherID.Valid {
		return "", false, nil
	}
	return sub.AssignedTeacherID.String, true, nil
}

func (svc *Service) GetTeacher(ctx context.Context, id string) (TeacherProfile, error) {
	return svc.repo.GetTeacherProfileByID(ctx, id)
}

func (svc *Service) GetTeacherByUser(ctx context.Context, userID string) (TeacherProfile, error) {
	return svc.repo.GetTeacherProfileByUserID(ctx, userID)
}

// TeacherDisplayName is a read-side convenience for UI shaping; it degrades to
// the raw id when the profile cannot be found so listings never fail on a
// dangling reference.
func (svc *Service) TeacherDisplayName(ctx context.Context, teacherID string) string {
	prof, err := svc.repo.GetTeacherProfileByID(ctx, teacherID)
	if err != nil {
		return teacherID
	}
	return prof.DisplayName
}

func (svc *Service) GetStudentByUser(ctx context.Context, userID string) (StudentProfile, error) {
	return svc.repo.GetStudentProfileByUserID(ctx, userID)
}

// ChildrenOf lists the student profiles linked to a guardian user.
func (svc *Service) ChildrenOf(ctx context.Context, guardianUserID string) ([]StudentProfile, error) {
	return svc.repo.QueryStudentProfilesByGuardianID(ctx, guardianUserID)
}
