package ports

import "context"

// Tx is an opaque transaction handle owned by infrastructure (for example *gorm.DB).
type Tx interface{}

// UnitOfWork defines a transaction boundary: fn returning an error rolls
// back, returning nil commits. Repositories called with the ctx handed to fn
// join the transaction.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}
