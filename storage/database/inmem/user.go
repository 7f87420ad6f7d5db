package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

var _ user.Repository = (*userRepository)(nil)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) all() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		users = append(users, *usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = struct{}{}
	}

	for _, usr := range repo.all() {
		if _, skip := excluded[usr.ID]; skip {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.all() {
		for _, uname := range filter.UsernameOrEmail {
			if usr.Username == uname || usr.Email == uname {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := repo.all()
	if filter == nil || filter.IsEmpty() {
		return users, nil
	}

	matched := make([]user.User, 0, len(users))
	for _, usr := range users {
		if matchUser(usr, filter) {
			matched = append(matched, usr)
		}
	}
	return matched, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.IsActive != nil && (usr.IsActive == nil || *usr.IsActive != *filter.IsActive) {
		return false
	}
	if len(filter.Roles) > 0 {
		var hasRole bool
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				hasRole = true
				break
			}
		}
		if !hasRole {
			return false
		}
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.Name), search) &&
			!strings.Contains(strings.ToLower(usr.Username), search) &&
			!strings.Contains(strings.ToLower(usr.Email), search) {
			return false
		}
	}
	return true
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		if usr.ID == "" {
			usr.ID = uuid.New().String()
		}
		repo.db.users[usr.ID] = &usr
		return usr, nil
	}

	// only save set fields
	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Username != "" {
		orig.Username = usr.Username
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if usr.IsActive != nil {
		orig.IsActive = usr.IsActive
	}
	orig.UpdatedAt = usr.UpdatedAt
	return *orig, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	orig.LastLogin = time.Now().UTC()
	return *orig, nil
}
