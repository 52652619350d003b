package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/readers"
	"github.com/mrlokans/library/internal/entities"
)

type ReadersController struct {
	store   ReaderStore
	auditor CatalogAuditor
}

func NewReadersController(store ReaderStore, auditor CatalogAuditor) *ReadersController {
	return &ReadersController{
		store:   store,
		auditor: auditor,
	}
}

type createReaderRequest struct {
	Code    string `json:"id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address" binding:"required"`
}

type updateReaderRequest struct {
	Code    *string `json:"id" binding:"omitempty,min=1"`
	Name    *string `json:"name" binding:"omitempty,min=1"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// GetAllReaders handles GET /api/readers
func (rc *ReadersController) GetAllReaders(c *gin.Context) {
	list, err := rc.store.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "list readers")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetReader handles GET /api/readers/:id
func (rc *ReadersController) GetReader(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reader, err := rc.store.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get reader")
		return
	}
	c.JSON(http.StatusOK, reader)
}

// CreateReader handles POST /api/readers
func (rc *ReadersController) CreateReader(c *gin.Context) {
	var req createReaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, msgMissingFields)
		return
	}

	reader := &entities.Reader{
		Code:    req.Code,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := rc.store.Create(c.Request.Context(), reader); err != nil {
		respondError(c, err, "create reader")
		return
	}

	log.Printf("Added new reader: %s", reader.Name)
	rc.logAudit(c, "create", reader)
	c.JSON(http.StatusCreated, reader)
}

// UpdateReader handles PUT /api/readers/:id
func (rc *ReadersController) UpdateReader(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateReaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, "Invalid reader data")
		return
	}

	reader, err := rc.store.Update(c.Request.Context(), id, readers.Update{
		Code:    req.Code,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		respondError(c, err, "update reader")
		return
	}

	rc.logAudit(c, "update", reader)
	c.JSON(http.StatusOK, reader)
}

// DeleteReader handles DELETE /api/readers/:id
// There is no check for open lendings; they keep a dangling reference.
func (rc *ReadersController) DeleteReader(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reader, err := rc.store.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "delete reader")
		return
	}

	log.Printf("Deleted reader: ID %d", id)
	rc.logAudit(c, "delete", reader)
	respondMessage(c, "Reader deleted successfully")
}

func (rc *ReadersController) logAudit(c *gin.Context, action string, reader *entities.Reader) {
	if rc.auditor == nil {
		return
	}
	rc.auditor.LogCatalog(c.Request.Context(), action, "reader", reader.ID, reader.Name)
}
