package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

const writeTimeout = 5 * time.Second

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	logger  *zap.Logger
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger.Named("audit")}
}

// Log records a generic audit event.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.repo.LogEvent(ctx, event); err != nil {
			s.logger.Warn("failed to log audit event",
				zap.String("action", event.Action),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every pending asynchronous write has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) newEvent(ctx context.Context, eventType entities.AuditEventType, action string) *entities.AuditEvent {
	actor := ActorFrom(ctx)
	return &entities.AuditEvent{
		UserID:    actor.UserID,
		EventType: eventType,
		Action:    action,
		IPAddress: actor.IPAddress,
		UserAgent: truncate(actor.UserAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}
}

// LogLending records a borrow or return.
func (s *Service) LogLending(ctx context.Context, action string, lending *entities.Lending) {
	event := s.newEvent(ctx, entities.AuditEventLending, action)
	event.EntityType = "lending"
	event.EntityID = &lending.ID
	event.Description = fmt.Sprintf("Lending %s: reader %d, book %d", action, lending.ReaderID, lending.BookID)
	event.Metadata = encodeMetadata(map[string]any{
		"token":    lending.Token,
		"readerId": lending.ReaderID,
		"bookId":   lending.BookID,
	})
	s.LogAsync(event)
}

// LogCatalog records a change to a book or reader.
func (s *Service) LogCatalog(ctx context.Context, action, entityType string, entityID uint, name string) {
	event := s.newEvent(ctx, entities.AuditEventCatalog, entityType+"_"+action)
	event.EntityType = entityType
	event.EntityID = &entityID
	event.Description = fmt.Sprintf("%s %s: %s", capitalize(action), entityType, name)
	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(ctx context.Context, userID uint, action string, success bool) {
	event := s.newEvent(ctx, entities.AuditEventAuth, action)
	if userID != 0 {
		event.UserID = userID
	}
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	s.LogAsync(event)
}

// LogNotification records the outcome of a reminder batch.
func (s *Service) LogNotification(ctx context.Context, action string, sent, failed int, err error) {
	event := s.newEvent(ctx, entities.AuditEventNotification, action)
	event.Description = fmt.Sprintf("Sent %d reminders, %d failed", sent, failed)
	event.Metadata = encodeMetadata(map[string]any{"sent": sent, "failed": failed})
	if err != nil || failed > 0 {
		event.Status = entities.AuditStatusFailed
	}
	if err != nil {
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(ctx context.Context, q audit.Query) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(ctx, q)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

func encodeMetadata(md map[string]any) string {
	b, err := json.Marshal(md)
	if err != nil {
		return ""
	}
	return string(b)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
