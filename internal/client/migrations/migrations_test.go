package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestUp_CreatesTablesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "gigbook.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Up(ctx, db))
	require.NoError(t, Up(ctx, db))

	for _, table := range []string{"goose_db_version", "records", "pending_deletes", "metadata"} {
		require.True(t, tableExists(t, db, table), table)
	}
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) Fatalf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func TestUp_RoutesGooseOutputToPackageLogger(t *testing.T) {
	assert.Equal(t, goose.NopLogger(), gooseLogger)

	rec := &recordingLogger{}
	prev := gooseLogger
	gooseLogger = rec
	t.Cleanup(func() {
		gooseLogger = prev
		goose.SetLogger(prev)
	})

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	require.NoError(t, Up(context.Background(), db))
	require.NoError(t, Up(context.Background(), db))

	require.NotEmpty(t, rec.lines)
	assert.Contains(t, rec.lines[len(rec.lines)-1], "no migrations to run")
}
