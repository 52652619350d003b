package http

import (
	"errors"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/library/internal/apperr"
)

const msgInternalError = "Internal server error"

// Validation details use JSON field names instead of Go field names.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Message string        `json:"message"`
	Details []FieldDetail `json:"details,omitempty"` // validation failures
}

// FieldDetail names one request field that failed validation.
type FieldDetail struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// MessageResponse is a success response that only carries a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// --- Error Response Helpers ---

// respondError maps an application error to its status code. Unexpected
// errors are logged with the given context and never exposed to the client.
func respondError(c *gin.Context, err error, context string) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		respondInternalError(c, err, context)
		return
	}
	c.JSON(status, ErrorResponse{Message: apperr.Message(err, http.StatusText(status))})
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: message})
}

// respondBindingError sends a 400 with per-field details when the request
// body failed struct validation.
func respondBindingError(c *gin.Context, err error, message string) {
	resp := ErrorResponse{Message: message}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			resp.Details = append(resp.Details, FieldDetail{
				Field: fe.Field(),
				Rule:  fe.Tag(),
			})
		}
	}
	c.JSON(http.StatusBadRequest, resp)
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: msgInternalError})
}

// respondMessage sends a 200 OK response with a message.
func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageResponse{Message: message})
}

// --- Parameter Parsing ---

// parseIDParam extracts a storage ID from URL parameters.
// Responds with 400 and returns 0, false when the value is malformed.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 64)
	if err != nil || id == 0 {
		respondBadRequest(c, "Invalid "+paramName+" format")
		return 0, false
	}
	return uint(id), true
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}
