package sqlite

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/jdholdren/podscribe/internal/podscribe"
)

// Ensure Repo implements the Repository interface
var _ podscribe.Repository = (*Repo)(nil)

// sqlite extended result code for a violated UNIQUE constraint.
const codeConstraintUnique = 2067

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}

// Open connects to the sqlite database at path with foreign keys enforced,
// WAL journaling and a busy timeout so concurrent stage writes wait instead of failing.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	dbx, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %s", err)
	}

	return dbx, nil
}

func isUniqueViolation(err error) bool {
	sqliteErr := &sqlite.Error{}
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == codeConstraintUnique
}
