// Package lending owns the borrow and return state machine.
//
// A lending is Open until it is returned and Returned afterwards; there is no
// way back. Overdue is derived from the due date on every read and never
// stored. Stock consistency is delegated to the store, which pairs every
// borrow with one conditional decrement and every return with one increment
// inside a single transaction.
package lending

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/database/lendings"
	"github.com/mrlokans/library/internal/entities"
)

// LoanPeriod is the time a reader may keep a book.
const LoanPeriod = 14 * 24 * time.Hour

const (
	ActionLend   = "lend"
	ActionReturn = "return"
)

const (
	msgIDsRequired       = "readerId and bookId are required"
	msgInvalidIDs        = "Invalid readerId or bookId format"
	msgLendingIDRequired = "Lending id is required"
	msgLendingNotFound   = "Lending record not found"
	msgInvalidReaderID   = "Invalid readerId format"
	msgInvalidBookID     = "Invalid bookId format"
	msgNoReaderLendings  = "No lendings found for this reader"
	msgNoBookLendings    = "No lendings found for this book"
)

// Options tunes ledger policy.
type Options struct {
	// PreventDuplicateOpen rejects a borrow when the reader already holds an
	// open lending for the same book.
	PreventDuplicateOpen bool

	// Now overrides the clock. Defaults to time.Now in UTC.
	Now func() time.Time
}

type Service struct {
	books    BookFinder
	readers  ReaderFinder
	lendings LendingStore
	audit    Auditor
	logger   *zap.Logger
	opts     Options
}

// NewService creates a ledger service. auditor may be nil.
func NewService(books BookFinder, readers ReaderFinder, store LendingStore, auditor Auditor, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		books:    books,
		readers:  readers,
		lendings: store,
		audit:    auditor,
		logger:   logger.Named("lending"),
		opts:     opts,
	}
}

// Filter narrows ListLendings. Values are raw storage ids as received from
// clients; empty values are ignored.
type Filter struct {
	ReaderID string
	BookID   string
}

// CreateLending lends one copy of a book to a reader.
func (s *Service) CreateLending(ctx context.Context, readerID, bookID string) (*entities.Lending, error) {
	readerID = strings.TrimSpace(readerID)
	bookID = strings.TrimSpace(bookID)
	if readerID == "" || bookID == "" {
		return nil, apperr.New(apperr.ErrValidation, msgIDsRequired)
	}

	rid, okReader := parseID(readerID)
	bid, okBook := parseID(bookID)
	if !okReader || !okBook {
		return nil, apperr.New(apperr.ErrInvalidReference, msgInvalidIDs)
	}

	if _, err := s.readers.GetByID(ctx, rid); err != nil {
		return nil, err
	}
	if _, err := s.books.GetByID(ctx, bid); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	lending := &entities.Lending{
		Token:        uuid.NewString(),
		ReaderID:     rid,
		BookID:       bid,
		BorrowedDate: now,
		DueDate:      now.Add(LoanPeriod),
	}

	err := s.lendings.Create(ctx, lending, lendings.CreateOptions{
		PreventDuplicateOpen: s.opts.PreventDuplicateOpen,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book lent",
		zap.String("lending", lending.Token),
		zap.Uint("reader_id", rid),
		zap.Uint("book_id", bid),
		zap.Time("due_date", lending.DueDate))
	s.logAudit(ctx, ActionLend, lending)

	return s.reload(ctx, lending, now), nil
}

// ReturnLending closes an open lending. The id may be the public token or the
// storage id.
func (s *Service) ReturnLending(ctx context.Context, lendingID string) (*entities.Lending, error) {
	lendingID = strings.TrimSpace(lendingID)
	if lendingID == "" {
		return nil, apperr.New(apperr.ErrValidation, msgLendingIDRequired)
	}

	id, err := s.resolve(ctx, lendingID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	res, err := s.lendings.MarkReturned(ctx, id, now)
	if err != nil {
		return nil, err
	}

	if !res.BookRestocked {
		s.logger.Warn("returned lending references a deleted book, quantity not restored",
			zap.String("lending", res.Lending.Token),
			zap.Uint("book_id", res.Lending.BookID))
	}
	s.logger.Info("book returned",
		zap.String("lending", res.Lending.Token),
		zap.Uint("book_id", res.Lending.BookID))
	s.logAudit(ctx, ActionReturn, res.Lending)

	return s.reload(ctx, res.Lending, now), nil
}

// ListLendings returns lendings in insertion order with derived overdue
// fields. A filtered listing that matches nothing is ErrNoResults.
func (s *Service) ListLendings(ctx context.Context, filter Filter) ([]entities.Lending, error) {
	var f lendings.Filter
	if v := strings.TrimSpace(filter.ReaderID); v != "" {
		id, ok := parseID(v)
		if !ok {
			return nil, apperr.New(apperr.ErrInvalidReference, msgInvalidReaderID)
		}
		f.ReaderID = id
	}
	if v := strings.TrimSpace(filter.BookID); v != "" {
		id, ok := parseID(v)
		if !ok {
			return nil, apperr.New(apperr.ErrInvalidReference, msgInvalidBookID)
		}
		f.BookID = id
	}

	list, err := s.lendings.List(ctx, f)
	if err != nil {
		return nil, err
	}

	if len(list) == 0 {
		switch {
		case f.ReaderID != 0:
			return nil, apperr.New(apperr.ErrNoResults, msgNoReaderLendings)
		case f.BookID != 0:
			return nil, apperr.New(apperr.ErrNoResults, msgNoBookLendings)
		}
	}

	now := s.opts.Now()
	for i := range list {
		list[i].Annotate(now)
	}
	return list, nil
}

// ListOverdue returns open lendings whose due date has passed, most overdue
// first.
func (s *Service) ListOverdue(ctx context.Context) ([]entities.Lending, error) {
	open, err := s.lendings.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	overdue := make([]entities.Lending, 0, len(open))
	for _, l := range open {
		if !l.IsOverdue(now) {
			continue
		}
		l.Annotate(now)
		overdue = append(overdue, l)
	}
	return overdue, nil
}

func (s *Service) resolve(ctx context.Context, lendingID string) (uint, error) {
	if _, err := uuid.Parse(lendingID); err == nil {
		l, err := s.lendings.GetByToken(ctx, lendingID)
		if err != nil {
			return 0, err
		}
		return l.ID, nil
	}
	if id, ok := parseID(lendingID); ok {
		return id, nil
	}
	return 0, apperr.New(apperr.ErrNotFound, msgLendingNotFound)
}

// reload fetches the lending with its reader and book snapshots. The write
// already succeeded, so a failed read falls back to the bare record.
func (s *Service) reload(ctx context.Context, lending *entities.Lending, now time.Time) *entities.Lending {
	full, err := s.lendings.GetByID(ctx, lending.ID)
	if err != nil {
		s.logger.Warn("failed to reload lending", zap.Uint("id", lending.ID), zap.Error(err))
		full = lending
	}
	full.Annotate(now)
	return full
}

func (s *Service) logAudit(ctx context.Context, action string, lending *entities.Lending) {
	if s.audit == nil {
		return
	}
	s.audit.LogLending(ctx, action, lending)
}

func parseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
