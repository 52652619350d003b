package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/lending"
)

type LendingsController struct {
	service LendingService
}

func NewLendingsController(service LendingService) *LendingsController {
	return &LendingsController{service: service}
}

// idValue accepts a storage id sent either as a JSON string or a number.
// Well-formedness is checked by the lending service.
type idValue string

func (v *idValue) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = idValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = idValue(n.String())
	return nil
}

type lendRequest struct {
	ReaderID idValue `json:"readerId" binding:"required"`
	BookID   idValue `json:"bookId" binding:"required"`
}

// ReturnResponse is the body of a successful return.
type ReturnResponse struct {
	Message string            `json:"message"`
	Lending *entities.Lending `json:"lending"`
}

// GetAllLendings handles GET /api/lendings
// Optional readerId and bookId query parameters narrow the list.
func (lc *LendingsController) GetAllLendings(c *gin.Context) {
	lc.list(c, lending.Filter{
		ReaderID: c.Query("readerId"),
		BookID:   c.Query("bookId"),
	})
}

// GetLendingsByReader handles GET /api/lendings/reader/:readerId
func (lc *LendingsController) GetLendingsByReader(c *gin.Context) {
	lc.list(c, lending.Filter{ReaderID: c.Param("readerId")})
}

// GetLendingsByBook handles GET /api/lendings/book/:bookId
func (lc *LendingsController) GetLendingsByBook(c *gin.Context) {
	lc.list(c, lending.Filter{BookID: c.Param("bookId")})
}

func (lc *LendingsController) list(c *gin.Context, filter lending.Filter) {
	list, err := lc.service.ListLendings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "list lendings")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetOverdueLendings handles GET /api/lendings/overdue
func (lc *LendingsController) GetOverdueLendings(c *gin.Context) {
	list, err := lc.service.ListOverdue(c.Request.Context())
	if err != nil {
		respondError(c, err, "list overdue lendings")
		return
	}
	c.JSON(http.StatusOK, list)
}

// LendBook handles POST /api/lendings/lend
func (lc *LendingsController) LendBook(c *gin.Context) {
	var req lendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondBindingError(c, err, "readerId and bookId are required")
			return
		}
		respondBadRequest(c, "Invalid request body")
		return
	}

	created, err := lc.service.CreateLending(c.Request.Context(), string(req.ReaderID), string(req.BookID))
	if err != nil {
		respondError(c, err, "create lending")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ReturnBook handles PUT /api/lendings/return/:id
// The id may be the lending token or its storage id.
func (lc *LendingsController) ReturnBook(c *gin.Context) {
	returned, err := lc.service.ReturnLending(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "return lending")
		return
	}
	c.JSON(http.StatusOK, ReturnResponse{
		Message: "Book returned successfully",
		Lending: returned,
	})
}
