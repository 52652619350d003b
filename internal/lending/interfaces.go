package lending

import (
	"context"
	"time"

	"github.com/mrlokans/library/internal/database/lendings"
	"github.com/mrlokans/library/internal/entities"
)

// BookFinder resolves catalog books by storage id.
type BookFinder interface {
	GetByID(ctx context.Context, id uint) (*entities.Book, error)
}

// ReaderFinder resolves readers by storage id.
type ReaderFinder interface {
	GetByID(ctx context.Context, id uint) (*entities.Reader, error)
}

// LendingStore performs the atomic ledger operations.
type LendingStore interface {
	Create(ctx context.Context, lending *entities.Lending, opts lendings.CreateOptions) error
	MarkReturned(ctx context.Context, id uint, at time.Time) (*lendings.ReturnResult, error)
	GetByID(ctx context.Context, id uint) (*entities.Lending, error)
	GetByToken(ctx context.Context, token string) (*entities.Lending, error)
	List(ctx context.Context, filter lendings.Filter) ([]entities.Lending, error)
	ListOpen(ctx context.Context) ([]entities.Lending, error)
}

// Auditor records ledger changes. Implementations must not block.
type Auditor interface {
	LogLending(ctx context.Context, action string, lending *entities.Lending)
}
