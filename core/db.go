package core

import (
	"context"
	"database/sql"
)

type (
	// DBExecutor is the query surface shared by *sql.DB and *sql.Tx. Repository
	// methods take it as an optional variadic argument so callers can pass the
	// transaction a service opened; with none given, repos fall back to their
	// own handle.
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	// DB opens transactions on top of the executor surface.
	DB interface {
		DBExecutor

		Begin() (*sql.Tx, error)
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}

	// DBTransactor is an in-flight transaction as seen by the services that
	// commit or roll it back.
	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

// DBOrdering is a single ORDER BY term.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
