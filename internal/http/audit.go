package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

const (
	defaultAuditPageSize = 25
	maxAuditPageSize     = 100
)

type AuditController struct {
	log AuditLog
}

func NewAuditController(log AuditLog) *AuditController {
	return &AuditController{log: log}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?page=&limit=&type=&userId=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", defaultAuditPageSize)
	if limit > maxAuditPageSize {
		limit = defaultAuditPageSize
	}

	query := audit.Query{
		EventType: entities.AuditEventType(c.Query("type")),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}
	if raw := c.Query("userId"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondBadRequest(c, "Invalid userId format")
			return
		}
		query.UserID = uint(userID)
	}

	events, total, err := ac.log.GetEvents(c.Request.Context(), query)
	if err != nil {
		respondInternalError(c, err, "load audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       events,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	})
}
