package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

const userCols = "id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login"

var _ user.Repository = (*userRepository)(nil)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	query := `SELECT username, email FROM users WHERE (username = ? AND username <> '') OR (email = ? AND email <> '')`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		var err error
		if query, args, err = sqlx.In(query+` AND id NOT IN (?)`, username, email, ids); err != nil {
			return errors.Wrap(err, "checking uniqueness")
		}
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)

	rows, err := executor(repo.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var uname, mail string
		if err = rows.Scan(&uname, &mail); err != nil {
			return errors.Wrap(err, "checking uniqueness")
		}
		if uname == username {
			return user.ErrUsernameExists
		}
		if mail == email {
			return user.ErrEmailExists
		}
	}
	return errors.Wrap(rows.Err(), "checking uniqueness")
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	query := `
		INSERT INTO users (id, name, username, email, is_active, roles, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	isActive := true
	if usr.IsActive != nil {
		isActive = *usr.IsActive
	}
	_, err := executor(repo.db, exec).ExecContext(ctx, query,
		usr.ID, usr.Name, usr.Username, usr.Email, isActive, pq.Array(usr.Roles), usr.PasswordHash,
		usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		query = `SELECT ` + userCols + ` FROM users WHERE id = ?`
		args  = []interface{}{filter.ID}
		err   error
	)
	if filter.ID == "" {
		query = `SELECT ` + userCols + ` FROM users WHERE username IN (?) OR email IN (?)`
		if query, args, err = sqlx.In(query, filter.UsernameOrEmail, filter.UsernameOrEmail); err != nil {
			return user.User{}, errors.Wrap(err, "getting user")
		}
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)

	usr, err := scanUser(executor(repo.db, exec).QueryRowContext(ctx, query, args...))
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter != nil {
		if filter.IsActive != nil {
			conds = append(conds, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
		if len(filter.Roles) > 0 {
			patterns := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				patterns = append(patterns, role+"%")
			}
			conds = append(conds, "EXISTS (SELECT 1 FROM unnest(roles) r WHERE r LIKE ANY (?))")
			args = append(args, pq.Array(patterns))
		}
		if filter.Search != "" {
			conds = append(conds, "(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)")
			search := "%" + filter.Search + "%"
			args = append(args, search, search, search)
		}
	}

	query := `SELECT ` + userCols + ` FROM users`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orders := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orders = append(orders, ord.String())
		}
		query += " ORDER BY " + strings.Join(orders, ", ")
	} else {
		query += " ORDER BY created_at"
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)

	rows, err := executor(repo.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	defer func() { _ = rows.Close() }()

	users := make([]user.User, 0)
	for rows.Next() {
		usr, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning user")
		}
		users = append(users, usr)
	}
	return users, errors.Wrap(rows.Err(), "querying users")
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}

	// only save set fields
	sets := []string{"updated_at = ?"}
	args := []interface{}{usr.UpdatedAt}
	if usr.Name != "" {
		sets = append(sets, "name = ?")
		args = append(args, usr.Name)
	}
	if usr.Username != "" {
		sets = append(sets, "username = ?")
		args = append(args, usr.Username)
	}
	if usr.Email != "" {
		sets = append(sets, "email = ?")
		args = append(args, usr.Email)
	}
	if usr.Roles != nil {
		sets = append(sets, "roles = ?")
		args = append(args, pq.Array(usr.Roles))
	}
	if usr.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, usr.PasswordHash)
	}
	if usr.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *usr.IsActive)
	}
	args = append(args, usr.ID)

	query := sqlx.Rebind(sqlx.DOLLAR, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`)
	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	} else if n == 0 {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	query := `UPDATE users SET last_login = now() WHERE id = $1`
	if _, err := executor(repo.db, exec).ExecContext(ctx, query, usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		usr       user.User
		isActive  bool
		roles     pq.StringArray
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&usr.ID, &usr.Name, &usr.Username, &usr.Email, &isActive, &roles, &usr.PasswordHash,
		&usr.CreatedAt, &usr.UpdatedAt, &lastLogin,
	)
	if err != nil {
		return user.User{}, err
	}
	usr.IsActive = &isActive
	usr.Roles = roles
	if lastLogin.Valid {
		usr.LastLogin = lastLogin.Time
	}
	return usr, nil
}
