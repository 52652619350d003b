package entities

import "time"

type AuditEventType string

const (
	AuditEventLending      AuditEventType = "lending"
	AuditEventCatalog      AuditEventType = "catalog"
	AuditEventAuth         AuditEventType = "auth"
	AuditEventNotification AuditEventType = "notification"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"_id"`
	UserID      uint           `gorm:"index" json:"userId"`
	EventType   AuditEventType `gorm:"index;size:50" json:"eventType"`
	Action      string         `gorm:"size:100" json:"action"`      // e.g., "lend", "book_delete"
	Description string         `gorm:"size:500" json:"description"` // Human-readable summary
	EntityType  string         `gorm:"size:50" json:"entityType"`   // "book", "reader", "lending"
	EntityID    *uint          `gorm:"index" json:"entityId,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"` // JSON for extra data
	IPAddress   string         `gorm:"size:45" json:"ipAddress,omitempty"`
	UserAgent   string         `gorm:"size:500" json:"userAgent,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"errorMsg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
