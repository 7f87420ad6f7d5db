package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

var _ schedule.Repository = (*entryRepository)(nil)

type entryRepository struct {
	db *DB
}

func NewEntryRepository(db *DB) *entryRepository {
	return &entryRepository{db: db}
}

func (repo *entryRepository) CreateEntry(ctx context.Context, entry schedule.Entry, exec ...core.DBExecutor) (schedule.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.entries[entry.ID] = &entry
	return entry, nil
}

func (repo *entryRepository) GetEntryByID(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if entry, ok := repo.db.entries[id]; ok {
		return *entry, nil
	}
	return schedule.Entry{}, schedule.ErrNotFound
}

func (repo *entryRepository) UpdateEntry(ctx context.Context, entry schedule.Entry, exec ...core.DBExecutor) (schedule.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.entries[entry.ID]; !ok {
		return schedule.Entry{}, schedule.ErrNotFound
	}
	repo.db.entries[entry.ID] = &entry
	return entry, nil
}

func (repo *entryRepository) SetEntryActive(ctx context.Context, id string, active bool, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	entry, ok := repo.db.entries[id]
	if !ok {
		return schedule.ErrNotFound
	}
	entry.IsActive = active
	return nil
}

func (repo *entryRepository) QueryEntries(ctx context.Context, filter schedule.QueryFilter, exec ...core.DBExecutor) ([]schedule.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]schedule.Entry, 0)
	for _, entry := range repo.db.entries {
		if matchEntry(*entry, filter) {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

func matchEntry(entry schedule.Entry, filter schedule.QueryFilter) bool {
	if !filter.IncludeInactive && !entry.IsActive {
		return false
	}
	if filter.ExcludeID != "" && entry.ID == filter.ExcludeID {
		return false
	}
	if filter.ClassID != "" && entry.ClassID != filter.ClassID {
		return false
	}
	if filter.Section != "" && entry.Section != filter.Section {
		return false
	}
	if filter.SubjectID != "" && entry.SubjectID != filter.SubjectID {
		return false
	}
	if filter.TeacherID != "" && entry.TeacherID != filter.TeacherID {
		return false
	}
	if filter.Room != "" && entry.Room != filter.Room {
		return false
	}
	if filter.Day != "" && entry.Day.String() != filter.Day {
		return false
	}
	if filter.AcademicYear != "" && entry.AcademicYear != filter.AcademicYear {
		return false
	}
	return true
}
