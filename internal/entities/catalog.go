package entities

import "time"

// Book is a catalog title and the number of copies currently on the shelf.
// Available is a display hint set by librarians; stock is read from Quantity.
type Book struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`
	Code      string    `gorm:"column:code;uniqueIndex;size:64" json:"id"`
	Title     string    `gorm:"size:512" json:"title"`
	Author    string    `gorm:"size:256" json:"author"`
	Genre     string    `gorm:"size:128" json:"genre"`
	Language  string    `gorm:"size:64" json:"language"`
	Quantity  int       `json:"quantity"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Book) TableName() string {
	return "books"
}

// Reader is a library member who can borrow books.
type Reader struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`
	Code      string    `gorm:"column:code;uniqueIndex;size:64" json:"id"`
	Name      string    `gorm:"size:256" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:64" json:"phone"`
	Address   string    `gorm:"size:512" json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Reader) TableName() string {
	return "readers"
}
