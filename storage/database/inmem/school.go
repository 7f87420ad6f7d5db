package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/school"
)

var _ school.Repository = (*schoolRepository)(nil)

type schoolRepository struct {
	db *DB
}

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class, exec ...core.DBExecutor) (school.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if cls.ID == "" {
		cls.ID = uuid.New().String()
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id string, exec ...core.DBExecutor) (school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) CreateSubject(ctx context.Context, sub school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	repo.db.subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *schoolRepository) GetSubjectByID(ctx context.Context, id string, exec ...core.DBExecutor) (school.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.subjects[id]; ok {
		return *sub, nil
	}
	return school.Subject{}, school.ErrSubjectNotFound
}

func (repo *schoolRepository) CreateTeacherProfile(ctx context.Context, prof school.TeacherProfile, exec ...core.DBExecutor) (school.TeacherProfile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if prof.ID == "" {
		prof.ID = uuid.New().String()
	}
	repo.db.teachers[prof.ID] = &prof
	return prof, nil
}

func (repo *schoolRepository) GetTeacherProfileByID(ctx context.Context, id string, exec ...core.DBExecutor) (school.TeacherProfile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prof, ok := repo.db.teachers[id]; ok {
		return *prof, nil
	}
	return school.TeacherProfile{}, school.ErrTeacherNotFound
}

func (repo *schoolRepository) GetTeacherProfileByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (school.TeacherProfile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, prof := range repo.db.teachers {
		if prof.UserID == userID {
			return *prof, nil
		}
	}
	return school.TeacherProfile{}, school.ErrTeacherNotFound
}

func (repo *schoolRepository) CreateStudentProfile(ctx context.Context, prof school.StudentProfile, exec ...core.DBExecutor) (school.StudentProfile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if prof.ID == "" {
		prof.ID = uuid.New().String()
	}
	repo.db.students[prof.ID] = &prof
	return prof, nil
}

func (repo *schoolRepository) GetStudentProfileByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (school.StudentProfile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, prof := range repo.db.students {
		if prof.UserID == userID {
			return *prof, nil
		}
	}
	return school.StudentProfile{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) QueryStudentProfilesByGuardianID(ctx context.Context, guardianUserID string, exec ...core.DBExecutor) ([]school.StudentProfile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	profs := make([]school.StudentProfile, 0)
	for _, prof := range repo.db.students {
		for _, gid := range prof.GuardianIDs {
			if gid == guardianUserID {
				profs = append(profs, *prof)
				break
			}
		}
	}
	sort.Slice(profs, func(i, j int) bool { return profs[i].CreatedAt.Before(profs[j].CreatedAt) })
	return profs, nil
}
