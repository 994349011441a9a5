// Package repomanager hands out repositories bound to a database handle and
// runs work inside transactions. Postgres and in-memory flavours exist.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gigbook/internal/dbx"
	"github.com/dmitrijs2005/gigbook/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gigbook/internal/server/repositories/rows"
	"github.com/dmitrijs2005/gigbook/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error

	// Conn is the non-transactional handle to pass to the factories.
	Conn() dbx.DBTX

	// WithTx runs fn in a transaction; repositories built from tx see it.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Rows(db dbx.DBTX) rows.Repository

	Close() error
}
