package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"clubhub/internal/apperr"
	"clubhub/internal/validate"
)

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail renders err as JSON and aborts the request.
func (h *Handler) fail(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "invalid input",
			"fields": validate.Fields(verrs),
		})
		return
	}
	e, ok := apperr.As(err)
	if !ok {
		h.Logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"err", err.Error(),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	body := gin.H{"error": e.Message}
	if fields := e.FieldMap(); fields != nil {
		body["fields"] = fields
	}
	c.AbortWithStatusJSON(statusFor(e.Kind), body)
}

// bind decodes the JSON body into dst. Decode failures are reported as 400
// and validation failures carry a field map.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		h.fail(c, err)
		return false
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
	return false
}

// pathID parses the :id parameter. Anything but a positive integer is not found.
func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(c, apperr.NotFound("not found"))
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter.
func (h *Handler) queryInt(c *gin.Context, name string) (int64, bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.fail(c, apperr.Field(name, "a valid integer is required"))
		return 0, false, false
	}
	return v, true, true
}

func queryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}
