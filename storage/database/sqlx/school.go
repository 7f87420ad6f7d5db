package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/school"
)

var _ school.Repository = (*schoolRepository)(nil)

type schoolRepository struct {
	db *sql.DB
}

func NewSchoolRepository(db *sql.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class, exec ...core.DBExecutor) (school.Class, error) {
	if cls.ID == "" {
		cls.ID = uuid.New().String()
	}
	query := `INSERT INTO classes (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	if _, err := executor(repo.db, exec).ExecContext(ctx, query, cls.ID, cls.Name, cls.CreatedAt, cls.UpdatedAt); err != nil {
		return school.Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id string, exec ...core.DBExecutor) (school.Class, error) {
	var cls school.Class
	query := `SELECT id, name, created_at, updated_at FROM classes WHERE id = $1`
	err := executor(repo.db, exec).QueryRowContext(ctx, query, id).
		Scan(&cls.ID, &cls.Name, &cls.CreatedAt, &cls.UpdatedAt)
	if err != nil {
		return school.Class{}, trapNoRowsErr(err, school.ErrClassNotFound, "getting class")
	}
	return cls, nil
}

func (repo *schoolRepository) CreateSubject(ctx context.Context, sub school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	query := `INSERT INTO subjects (id, name, assigned_teacher_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := executor(repo.db, exec).ExecContext(ctx, query, sub.ID, sub.Name, sub.AssignedTeacherID, sub.CreatedAt, sub.UpdatedAt); err != nil {
		return school.Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (repo *schoolRepository) GetSubjectByID(ctx context.Context, id string, exec ...core.DBExecutor) (school.Subject, error) {
	var sub school.Subject
	query := `SELECT id, name, assigned_teacher_id, created_at, updated_at FROM subjects WHERE id = $1`
	err := executor(repo.db, exec).QueryRowContext(ctx, query, id).
		Scan(&sub.ID, &sub.Name, &sub.AssignedTeacherID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return school.Subject{}, trapNoRowsErr(err, school.ErrSubjectNotFound, "getting subject")
	}
	return sub, nil
}

func (repo *schoolRepository) CreateTeacherProfile(ctx context.Context, prof school.TeacherProfile, exec ...core.DBExecutor) (school.TeacherProfile, error) {
	if prof.ID == "" {
		prof.ID = uuid.New().String()
	}
	query := `INSERT INTO teacher_profiles (id, user_id, display_name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := executor(repo.db, exec).ExecContext(ctx, query, prof.ID, prof.UserID, prof.DisplayName, prof.CreatedAt, prof.UpdatedAt); err != nil {
		return school.TeacherProfile{}, errors.Wrap(err, "creating teacher profile")
	}
	return prof, nil
}

func (repo *schoolRepository) getTeacherProfile(ctx context.Context, field, value string, exec []core.DBExecutor) (school.TeacherProfile, error) {
	var prof school.TeacherProfile
	query := `SELECT id, user_id, display_name, created_at, updated_at FROM teacher_profiles WHERE ` + field + ` = $1`
	err := executor(repo.db, exec).QueryRowContext(ctx, query, value).
		Scan(&prof.ID, &prof.UserID, &prof.DisplayName, &prof.CreatedAt, &prof.UpdatedAt)
	if err != nil {
		return school.TeacherProfile{}, trapNoRowsErr(err, school.ErrTeacherNotFound, "getting teacher profile")
	}
	return prof, nil
}

func (repo *schoolRepository) GetTeacherProfileByID(ctx context.Context, id string, exec ...core.DBExecutor) (school.TeacherProfile, error) {
	return repo.getTeacherProfile(ctx, "id", id, exec)
}

func (repo *schoolRepository) GetTeacherProfileByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (school.TeacherProfile, error) {
	return repo.getTeacherProfile(ctx, "user_id", userID, exec)
}

const studentCols = "id, user_id, display_name, class_id, section, academic_year, created_at, updated_at"

func (repo *schoolRepository) CreateStudentProfile(ctx context.Context, prof school.StudentProfile, exec ...core.DBExecutor) (school.StudentProfile, error) {
	if prof.ID == "" {
		prof.ID = uuid.New().String()
	}
	ex := executor(repo.db, exec)
	query := `INSERT INTO student_profiles (` + studentCols + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := ex.ExecContext(ctx, query,
		prof.ID, prof.UserID, prof.DisplayName, prof.ClassID, prof.Section, prof.AcademicYear,
		prof.CreatedAt, prof.UpdatedAt,
	)
	if err != nil {
		return school.StudentProfile{}, errors.Wrap(err, "creating student profile")
	}
	for _, gid := range prof.GuardianIDs {
		query = `INSERT INTO student_guardians (student_id, guardian_user_id) VALUES ($1, $2)`
		if _, err = ex.ExecContext(ctx, query, prof.ID, gid); err != nil {
			return school.StudentProfile{}, errors.Wrap(err, "linking guardian")
		}
	}
	return prof, nil
}

func (repo *schoolRepository) GetStudentProfileByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (school.StudentProfile, error) {
	ex := executor(repo.db, exec)
	query := `SELECT ` + studentCols + ` FROM student_profiles WHERE user_id = $1`
	prof, err := scanStudentProfile(ex.QueryRowContext(ctx, query, userID))
	if err != nil {
		return school.StudentProfile{}, trapNoRowsErr(err, school.ErrStudentNotFound, "getting student profile")
	}
	if prof.GuardianIDs, err = repo.guardianIDs(ctx, prof.ID, ex); err != nil {
		return school.StudentProfile{}, err
	}
	return prof, nil
}

func (repo *schoolRepository) QueryStudentProfilesByGuardianID(ctx context.Context, guardianUserID string, exec ...core.DBExecutor) ([]school.StudentProfile, error) {
	ex := executor(repo.db, exec)
	query := `
		SELECT ` + studentCols + ` FROM student_profiles
		WHERE id IN (SELECT student_id FROM student_guardians WHERE guardian_user_id = $1)
		ORDER BY created_at`
	rows, err := ex.QueryContext(ctx, query, guardianUserID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student profiles")
	}
	defer func() { _ = rows.Close() }()

	profs := make([]school.StudentProfile, 0)
	for rows.Next() {
		prof, err := scanStudentProfile(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning student profile")
		}
		profs = append(profs, prof)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying student profiles")
	}

	for i := range profs {
		if profs[i].GuardianIDs, err = repo.guardianIDs(ctx, profs[i].ID, ex); err != nil {
			return nil, err
		}
	}
	return profs, nil
}

func (repo *schoolRepository) guardianIDs(ctx context.Context, studentID string, ex core.DBExecutor) ([]string, error) {
	rows, err := ex.QueryContext(ctx, `SELECT guardian_user_id FROM student_guardians WHERE student_id = $1`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying guardians")
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scanning guardian")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "querying guardians")
}

func scanStudentProfile(row rowScanner) (school.StudentProfile, error) {
	var prof school.StudentProfile
	err := row.Scan(
		&prof.ID, &prof.UserID, &prof.DisplayName, &prof.ClassID, &prof.Section, &prof.AcademicYear,
		&prof.CreatedAt, &prof.UpdatedAt,
	)
	return prof, err
}
