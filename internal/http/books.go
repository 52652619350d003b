package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/entities"
)

const msgMissingFields = "All required fields must be provided"

type BooksController struct {
	store   BookStore
	auditor CatalogAuditor
}

func NewBooksController(store BookStore, auditor CatalogAuditor) *BooksController {
	return &BooksController{
		store:   store,
		auditor: auditor,
	}
}

type createBookRequest struct {
	Code      string `json:"id" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Author    string `json:"author" binding:"required"`
	Genre     string `json:"genre" binding:"required"`
	Language  string `json:"language" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required,gte=0"`
	Available *bool  `json:"available"`
}

type updateBookRequest struct {
	Code      *string `json:"id" binding:"omitempty,min=1"`
	Title     *string `json:"title" binding:"omitempty,min=1"`
	Author    *string `json:"author" binding:"omitempty,min=1"`
	Genre     *string `json:"genre"`
	Language  *string `json:"language"`
	Quantity  *int    `json:"quantity" binding:"omitempty,gte=0"`
	Available *bool   `json:"available"`
}

// GetAllBooks handles GET /api/books
func (bc *BooksController) GetAllBooks(c *gin.Context) {
	list, err := bc.store.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetBook handles GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook handles POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, msgMissingFields)
		return
	}

	book := &entities.Book{
		Code:      req.Code,
		Title:     req.Title,
		Author:    req.Author,
		Genre:     req.Genre,
		Language:  req.Language,
		Quantity:  *req.Quantity,
		Available: true,
	}
	if req.Available != nil {
		book.Available = *req.Available
	}

	if err := bc.store.Create(c.Request.Context(), book); err != nil {
		respondError(c, err, "create book")
		return
	}

	log.Printf("Added new book: ID %s", book.Code)
	bc.logAudit(c, "create", book)
	c.JSON(http.StatusCreated, book)
}

// UpdateBook handles PUT /api/books/:id
// Only the fields present in the body change.
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, "Invalid book data")
		return
	}

	book, err := bc.store.Update(c.Request.Context(), id, books.Update{
		Code:      req.Code,
		Title:     req.Title,
		Author:    req.Author,
		Genre:     req.Genre,
		Language:  req.Language,
		Quantity:  req.Quantity,
		Available: req.Available,
	})
	if err != nil {
		respondError(c, err, "update book")
		return
	}

	bc.logAudit(c, "update", book)
	c.JSON(http.StatusOK, book)
}

// DeleteBook handles DELETE /api/books/:id
// Open lendings that reference the book are kept.
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "delete book")
		return
	}

	log.Printf("Deleted book: ID %d", id)
	bc.logAudit(c, "delete", book)
	respondMessage(c, "Book deleted successfully")
}

func (bc *BooksController) logAudit(c *gin.Context, action string, book *entities.Book) {
	if bc.auditor == nil {
		return
	}
	bc.auditor.LogCatalog(c.Request.Context(), action, "book", book.ID, book.Title)
}
