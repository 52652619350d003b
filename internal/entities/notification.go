package entities

import "time"

type NotificationType string

const (
	NotificationOverdueReminder NotificationType = "overdue_reminder"
)

type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// NotificationRecord is one attempt to deliver a reminder for a lending.
// Only sent records count towards the cooldown window.
type NotificationRecord struct {
	ID           uint               `gorm:"primaryKey" json:"_id"`
	LendingID    uint               `gorm:"index" json:"lendingId"`
	LendingToken string             `gorm:"size:36" json:"lendingToken"`
	ReaderEmail  string             `gorm:"size:255" json:"readerEmail"`
	BookTitle    string             `gorm:"size:512" json:"bookTitle"`
	DaysOverdue  int                `json:"daysOverdue"`
	Type         NotificationType   `gorm:"size:50" json:"type"`
	Status       NotificationStatus `gorm:"size:20" json:"status"`
	Error        string             `gorm:"size:500" json:"error,omitempty"`
	SentDate     time.Time          `gorm:"index" json:"sentDate"`
}

func (NotificationRecord) TableName() string {
	return "notification_records"
}
