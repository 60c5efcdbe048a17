package dbconfig

import (
	"database/sql"

	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// DBConfig reads chain configuration from Postgres.
type DBConfig struct {
	dbConnStr string
	db        *sql.DB
}

// Option configures a DBConfig.
type Option func(*DBConfig)

// WithDB makes every query use db instead of opening a connection from the
// connection string. The caller owns db.
func WithDB(db *sql.DB) Option {
	return func(c *DBConfig) { c.db = db }
}

// NewDBConfig creates a new DBConfig instance with the provided connection string.
//
// Parameters:
// - connStr: the Postgres connection string.
// - opts: optional settings.
//
// Returns:
// - *DBConfig: a pointer to the newly created DBConfig instance.
// - error: an error if neither a connection string nor a database is given.
func NewDBConfig(connStr string, opts ...Option) (*DBConfig, error) {
	c := &DBConfig{dbConnStr: connStr}
	for _, opt := range opts {
		opt(c)
	}
	if c.dbConnStr == "" && c.db == nil {
		return nil, errors.Wrap(dexerrors.ErrInvalidConfig, "database connection string is empty")
	}
	return c, nil
}

// open returns the database handle and the function releasing it.
func (r *DBConfig) open() (*sql.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}
	db, err := sql.Open("postgres", r.dbConnStr)
	if err != nil {
		return nil, nil, errors.Wrap(dexerrors.ErrDatabaseConnect, err.Error())
	}
	return db, func() { _ = db.Close() }, nil
}

func queryFailed(what string, err error) error {
	return errors.Wrapf(dexerrors.ErrDatabaseConnect, "%s: %v", what, err)
}
