// Package notifications finds overdue lendings and emails reminders to the
// readers holding them.
//
// Delivery is at most once per cooldown window per lending. Every attempt is
// persisted; only successful sends start a cooldown, so a lending whose send
// failed is retried on the next run.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/mailer"
)

const (
	ReminderSubject = "Overdue Book Reminder"
	ActionOverdue   = "overdue_reminders"

	DefaultCooldown = 7 * 24 * time.Hour
	DefaultWorkers  = 4
)

// LendingSource lists open lendings with their reader and book snapshots.
type LendingSource interface {
	ListOpen(ctx context.Context) ([]entities.Lending, error)
}

// RecordStore persists delivery attempts.
type RecordStore interface {
	Record(ctx context.Context, record *entities.NotificationRecord) error
	LastSent(ctx context.Context, lendingID uint, kind entities.NotificationType) (*entities.NotificationRecord, error)
}

// Auditor records batch outcomes. Implementations must not block.
type Auditor interface {
	LogNotification(ctx context.Context, action string, sent, failed int, err error)
}

// Options tunes dispatch policy. ThresholdDays is used as given, so zero
// reminds on any overdue lending. A zero Cooldown or Workers falls back to the
// default.
type Options struct {
	ThresholdDays int
	Cooldown      time.Duration
	Workers       int
	Now           func() time.Time
}

// Failure names a lending whose reminder could not be delivered.
type Failure struct {
	LendingID    uint   `json:"lendingId"`
	LendingToken string `json:"lendingToken"`
	Reason       string `json:"reason"`
}

// BatchResult summarizes one dispatch run.
type BatchResult struct {
	Scanned  int       `json:"scanned"`
	Sent     int       `json:"sent"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
}

type Dispatcher struct {
	lendings LendingSource
	records  RecordStore
	mailer   mailer.Mailer
	audit    Auditor
	logger   *zap.Logger
	opts     Options

	// runMu serializes runs so a manual trigger and a scheduled tick cannot
	// send the same reminder twice.
	runMu sync.Mutex
}

// NewDispatcher creates a dispatcher. auditor may be nil.
func NewDispatcher(lendings LendingSource, records RecordStore, m mailer.Mailer, auditor Auditor, logger *zap.Logger, opts Options) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ThresholdDays < 0 {
		opts.ThresholdDays = 0
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Dispatcher{
		lendings: lendings,
		records:  records,
		mailer:   m,
		audit:    auditor,
		logger:   logger.Named("notifications"),
		opts:     opts,
	}
}

// ScanOverdue returns open lendings at least ThresholdDays past their due date.
func (d *Dispatcher) ScanOverdue(ctx context.Context, now time.Time) ([]entities.Lending, error) {
	open, err := d.lendings.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open lendings: %w", err)
	}

	threshold := time.Duration(d.opts.ThresholdDays) * 24 * time.Hour
	overdue := make([]entities.Lending, 0)
	for _, l := range open {
		if l.Returned || now.Sub(l.DueDate) < threshold {
			continue
		}
		l.Annotate(now)
		overdue = append(overdue, l)
	}
	return overdue, nil
}

// DispatchReminder sends one reminder unless a successful one was sent within
// the cooldown window. It reports whether a message went out.
//
// A reader without an email yields ErrMissingContactInfo; a delivery failure
// yields ErrTransport and is recorded as a failed attempt.
func (d *Dispatcher) DispatchReminder(ctx context.Context, lending *entities.Lending, now time.Time) (bool, error) {
	if lending.Reader == nil || strings.TrimSpace(lending.Reader.Email) == "" {
		return false, apperr.New(apperr.ErrMissingContactInfo, "reader has no email address")
	}

	last, err := d.records.LastSent(ctx, lending.ID, entities.NotificationOverdueReminder)
	if err != nil {
		return false, fmt.Errorf("failed to check notification history: %w", err)
	}
	if last != nil && now.Sub(last.SentDate) < d.opts.Cooldown {
		return false, nil
	}

	record := &entities.NotificationRecord{
		LendingID:    lending.ID,
		LendingToken: lending.Token,
		ReaderEmail:  lending.Reader.Email,
		BookTitle:    bookTitle(lending),
		DaysOverdue:  lending.DaysPastDue(now),
		Type:         entities.NotificationOverdueReminder,
		Status:       entities.NotificationStatusSent,
		SentDate:     now,
	}

	sendErr := d.mailer.Send(ctx, reminderMessage(lending, now))
	if sendErr != nil {
		record.Status = entities.NotificationStatusFailed
		record.Error = truncate(sendErr.Error(), 500)
	}

	if err := d.records.Record(ctx, record); err != nil {
		if sendErr == nil {
			// The mail went out; the next run may resend within the window.
			d.logger.Error("reminder sent but not recorded",
				zap.String("lending", lending.Token), zap.Error(err))
			return true, nil
		}
		d.logger.Error("failed to record failed reminder",
			zap.String("lending", lending.Token), zap.Error(err))
	}

	if sendErr != nil {
		return false, apperr.Wrap(apperr.ErrTransport, "failed to deliver reminder", sendErr)
	}
	return true, nil
}

// Run scans for overdue lendings and dispatches reminders with a bounded
// worker pool. Only a failed scan is returned as an error; per-lending
// failures are reported in the result.
func (d *Dispatcher) Run(ctx context.Context) (BatchResult, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	now := d.opts.Now()
	overdue, err := d.ScanOverdue(ctx, now)
	if err != nil {
		d.logAudit(ctx, BatchResult{}, err)
		return BatchResult{}, err
	}

	result := BatchResult{Scanned: len(overdue)}
	if len(overdue) == 0 {
		d.logger.Debug("no overdue lendings to remind")
		return result, nil
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan *entities.Lending)
	)

	workers := d.opts.Workers
	if workers > len(overdue) {
		workers = len(overdue)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for lending := range jobs {
				sent, err := d.DispatchReminder(ctx, lending, now)

				mu.Lock()
				d.tally(&result, lending, sent, err)
				mu.Unlock()
			}
		}()
	}

	for i := range overdue {
		jobs <- &overdue[i]
	}
	close(jobs)
	wg.Wait()

	d.logger.Info("overdue reminder run finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	if result.Sent > 0 || result.Failed > 0 {
		d.logAudit(ctx, result, nil)
	}

	return result, nil
}

func (d *Dispatcher) tally(result *BatchResult, lending *entities.Lending, sent bool, err error) {
	switch {
	case err == nil && sent:
		result.Sent++
	case err == nil:
		result.Skipped++
	case errors.Is(err, apperr.ErrMissingContactInfo):
		d.logger.Warn("skipping reminder, reader has no email",
			zap.String("lending", lending.Token),
			zap.Uint("reader_id", lending.ReaderID))
		result.Skipped++
	default:
		d.logger.Warn("reminder failed",
			zap.String("lending", lending.Token),
			zap.Error(err))
		result.Failed++
		result.Failures = append(result.Failures, Failure{
			LendingID:    lending.ID,
			LendingToken: lending.Token,
			Reason:       err.Error(),
		})
	}
}

func (d *Dispatcher) logAudit(ctx context.Context, result BatchResult, err error) {
	if d.audit == nil {
		return
	}
	d.audit.LogNotification(ctx, ActionOverdue, result.Sent, result.Failed, err)
}

func reminderMessage(lending *entities.Lending, now time.Time) mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", lending.Reader.Name)
	fmt.Fprintf(&b, "Our records show that the book \"%s\" was due on %s and is now %d days overdue.\n\n",
		bookTitle(lending), lending.DueDate.Format("January 2, 2006"), lending.DaysPastDue(now))
	b.WriteString("Please return it to the library at your earliest convenience.\n\n")
	b.WriteString("Thank you,\nThe Library Team\n")

	return mailer.Message{
		To:      lending.Reader.Email,
		Subject: ReminderSubject,
		Body:    b.String(),
	}
}

func bookTitle(lending *entities.Lending) string {
	if lending.Book == nil {
		return "(removed from catalog)"
	}
	return lending.Book.Title
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
