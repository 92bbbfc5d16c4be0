package repositories

import "context"

// UnitOfWork groups repository calls into one transaction.
// Repositories called with the ctx passed to fn join that transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
