package schedule

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// checkConflicts runs the three independent overlap scans (teacher, room,
// class-section) for the candidate slot, each scoped to the candidate's day
// and academic year over active entries only. It is deliberately exhaustive:
// every overlapping entry on every dimension is reported, never just the
// first hit. excludeID removes the entry being updated from consideration.
func (svc *Service) checkConflicts(ctx context.Context, cand Entry, excludeID string, exec ...core.DBExecutor) ([]Conflict, error) {
	base := QueryFilter{
		Day:          cand.Day.String(),
		AcademicYear: cand.AcademicYear,
		ExcludeID:    excludeID,
	}

	var conflicts []Conflict

	scan := func(filter QueryFilter, typ ConflictType, describe func(Entry) string) error {
		existing, err := svc.repo.QueryEntries(ctx, filter, exec...)
		if err != nil {
			return errors.Wrapf(err, "querying %s entries", typ)
		}
		for _, other := range existing {
			if Overlaps(cand.StartTime, cand.EndTime, other.StartTime, other.EndTime) {
				conflicts = append(conflicts, Conflict{
					Type:    typ,
					Message: describe(other),
					EntryID: other.ID,
				})
			}
		}
		return nil
	}

	teacherFilter := base
	teacherFilter.TeacherID = cand.TeacherID
	if err := scan(teacherFilter, ConflictTeacher, func(other Entry) string {
		return fmt.Sprintf("teacher is already scheduled %s %s-%s in room %s",
			other.Day, other.StartTime, other.EndTime, other.Room)
	}); err != nil {
		return nil, err
	}

	roomFilter := base
	roomFilter.Room = cand.Room
	if err := scan(roomFilter, ConflictRoom, func(other Entry) string {
		return fmt.Sprintf("room %s is already occupied %s %s-%s",
			other.Room, other.Day, other.StartTime, other.EndTime)
	}); err != nil {
		return nil, err
	}

	classFilter := base
	classFilter.ClassID = cand.ClassID
	classFilter.Section = cand.Section
	if err := scan(classFilter, ConflictClass, func(other Entry) string {
		return fmt.Sprintf("class section %s already has a lesson %s %s-%s",
			other.Section, other.Day, other.StartTime, other.EndTime)
	}); err != nil {
		return nil, err
	}

	return conflicts, nil
}
