package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

const entryCols = "id, class_id, section, subject_id, teacher_id, room, day, " +
	"start_time, end_time, academic_year, is_active, created_at, updated_at"

var _ schedule.Repository = (*entryRepository)(nil)

type entryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) *entryRepository {
	return &entryRepository{db: db}
}

func (repo *entryRepository) CreateEntry(ctx context.Context, entry schedule.Entry, exec ...core.DBExecutor) (schedule.Entry, error) {
	query := `
		INSERT INTO schedule_entries (` + entryCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := executor(repo.db, exec).ExecContext(ctx, query,
		entry.ID, entry.ClassID, entry.Section, entry.SubjectID, entry.TeacherID, entry.Room,
		entry.Day.String(), entry.StartTime, entry.EndTime, entry.AcademicYear,
		entry.IsActive, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return schedule.Entry{}, trapExclusionErr(err, schedule.ErrConflict, "creating entry")
	}
	return entry, nil
}

func (repo *entryRepository) GetEntryByID(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Entry, error) {
	query := `SELECT ` + entryCols + ` FROM schedule_entries WHERE id = $1`
	entry, err := scanEntry(executor(repo.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		return schedule.Entry{}, trapNoRowsErr(err, schedule.ErrNotFound, "getting entry")
	}
	return entry, nil
}

func (repo *entryRepository) UpdateEntry(ctx context.Context, entry schedule.Entry, exec ...core.DBExecutor) (schedule.Entry, error) {
	query := `
		UPDATE schedule_entries
		SET class_id = $2, section = $3, subject_id = $4, teacher_id = $5, room = $6,
		    day = $7, start_time = $8, end_time = $9, academic_year = $10, updated_at = $11
		WHERE id = $1`
	res, err := executor(repo.db, exec).ExecContext(ctx, query,
		entry.ID, entry.ClassID, entry.Section, entry.SubjectID, entry.TeacherID, entry.Room,
		entry.Day.String(), entry.StartTime, entry.EndTime, entry.AcademicYear, entry.UpdatedAt,
	)
	if err != nil {
		return schedule.Entry{}, trapExclusionErr(err, schedule.ErrConflict, "updating entry")
	}
	if n, err := res.RowsAffected(); err != nil {
		return schedule.Entry{}, errors.Wrap(err, "updating entry")
	} else if n == 0 {
		return schedule.Entry{}, schedule.ErrNotFound
	}
	return entry, nil
}

func (repo *entryRepository) SetEntryActive(ctx context.Context, id string, active bool, exec ...core.DBExecutor) error {
	query := `UPDATE schedule_entries SET is_active = $2, updated_at = now() WHERE id = $1`
	res, err := executor(repo.db, exec).ExecContext(ctx, query, id, active)
	if err != nil {
		return trapExclusionErr(err, schedule.ErrConflict, "setting entry active flag")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "setting entry active flag")
	} else if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

func (repo *entryRepository) QueryEntries(ctx context.Context, filter schedule.QueryFilter, exec ...core.DBExecutor) ([]schedule.Entry, error) {
	conds := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)
	if !filter.IncludeInactive {
		conds = append(conds, "is_active")
	}
	if filter.ClassID != "" {
		conds = append(conds, "class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.Section != "" {
		conds = append(conds, "section = ?")
		args = append(args, filter.Section)
	}
	if filter.SubjectID != "" {
		conds = append(conds, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.TeacherID != "" {
		conds = append(conds, "teacher_id = ?")
		args = append(args, filter.TeacherID)
	}
	if filter.Room != "" {
		conds = append(conds, "room = ?")
		args = append(args, filter.Room)
	}
	if filter.Day != "" {
		conds = append(conds, "day = ?")
		args = append(args, filter.Day)
	}
	if filter.AcademicYear != "" {
		conds = append(conds, "academic_year = ?")
		args = append(args, filter.AcademicYear)
	}
	if filter.ExcludeID != "" {
		conds = append(conds, "id <> ?")
		args = append(args, filter.ExcludeID)
	}

	query := `SELECT ` + entryCols + ` FROM schedule_entries`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"
	query = sqlx.Rebind(sqlx.DOLLAR, query)

	rows, err := executor(repo.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	defer func() { _ = rows.Close() }()

	entries := make([]schedule.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning entry")
		}
		entries = append(entries, entry)
	}
	return entries, errors.Wrap(rows.Err(), "querying entries")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (schedule.Entry, error) {
	var entry schedule.Entry
	var day string
	err := row.Scan(
		&entry.ID, &entry.ClassID, &entry.Section, &entry.SubjectID, &entry.TeacherID, &entry.Room,
		&day, &entry.StartTime, &entry.EndTime, &entry.AcademicYear,
		&entry.IsActive, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return schedule.Entry{}, err
	}
	entry.Day = schedule.Day(day)
	return entry, nil
}
