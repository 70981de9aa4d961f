package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX is passed where no transaction is in flight; repositories fall back to
// their pool.
var NoTX Tx

// TransactionManager executes fn inside a database transaction, handing the
// tx handle to fn so repositories called with it share the transaction.
// Repositories MUST gracefully accept a nil tx (non-transactional path).
// The concrete type of the handle is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
