package rows

import (
	"context"
	"database/sql"
	"errors"
)

// recordingDB captures the last statement and fails every call.
type recordingDB struct {
	query string
}

var errRecorded = errors.New("recorded")

func (r *recordingDB) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.query = query
	return nil, errRecorded
}

func (r *recordingDB) QueryContext(_ context.Context, query string, _ ...any) (*sql.Rows, error) {
	r.query = query
	return nil, errRecorded
}

func (r *recordingDB) QueryRowContext(_ context.Context, query string, _ ...any) *sql.Row {
	r.query = query
	return nil
}
