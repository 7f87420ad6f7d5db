package inmemdb

import (
	"sync"

	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	"github.com/trezcool/ratiba/core/user"
)

// DB is a map-backed store for tests and local development. A single lock
// guards all tables, making individual calls consistent; atomicity across
// calls (check+write) is serialized by the services themselves.
type DB struct {
	mutex sync.RWMutex

	users    map[string]*user.User
	classes  map[string]*school.Class
	subjects map[string]*school.Subject
	teachers map[string]*school.TeacherProfile
	students map[string]*school.StudentProfile
	entries  map[string]*schedule.Entry
}

func Open() *DB {
	return &DB{
		users:    make(map[string]*user.User),
		classes:  make(map[string]*school.Class),
		subjects: make(map[string]*school.Subject),
		teachers: make(map[string]*school.TeacherProfile),
		students: make(map[string]*school.StudentProfile),
		entries:  make(map[string]*schedule.Entry),
	}
}
