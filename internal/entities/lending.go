package entities

import "time"

// Lending records one copy of a Book borrowed by a Reader.
//
// Reader and Book are non-owning references. Either may be deleted while the
// lending is open, in which case the preloaded snapshot is nil.
type Lending struct {
	ID           uint       `gorm:"primaryKey" json:"_id"`
	Token        string     `gorm:"column:token;uniqueIndex;size:36" json:"id"`
	ReaderID     uint       `gorm:"index" json:"readerId"`
	BookID       uint       `gorm:"index" json:"bookId"`
	BorrowedDate time.Time  `json:"borrowedDate"`
	DueDate      time.Time  `json:"dueDate"`
	Returned     bool       `gorm:"index" json:"returned"`
	ReturnDate   *time.Time `json:"returnDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	Reader *Reader `gorm:"foreignKey:ReaderID" json:"reader,omitempty"`
	Book   *Book   `gorm:"foreignKey:BookID" json:"book,omitempty"`

	// Derived at read time, never stored.
	Overdue     bool `gorm:"-" json:"overdue"`
	DaysOverdue int  `gorm:"-" json:"daysOverdue"`
}

func (Lending) TableName() string {
	return "lendings"
}

// IsOverdue reports whether the lending is open and past its due date.
func (l *Lending) IsOverdue(now time.Time) bool {
	return !l.Returned && now.After(l.DueDate)
}

// DaysPastDue returns the number of whole days elapsed since the due date,
// or 0 if the due date has not passed.
func (l *Lending) DaysPastDue(now time.Time) int {
	if !now.After(l.DueDate) {
		return 0
	}
	return int(now.Sub(l.DueDate) / (24 * time.Hour))
}

// Annotate fills the derived overdue fields for the given instant.
func (l *Lending) Annotate(now time.Time) {
	l.Overdue = l.IsOverdue(now)
	l.DaysOverdue = 0
	if l.Overdue {
		l.DaysOverdue = l.DaysPastDue(now)
	}
}
