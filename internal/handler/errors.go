package handler

import (
	"maps"
	"net/http"
	"strconv"
	"time"

	"laundry/internal/apperror"
	"laundry/internal/logger"
	"laundry/internal/middleware"
	"laundry/pkg/response"
	"laundry/pkg/validation"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the standard error envelope.
// Transaction wrappers are unwrapped so clients see the failing step.
func respondError(c *gin.Context, module string, err error) {
	appErr, ok := apperror.Cause(err)
	if !ok {
		logger.LogError(logger.Get(), module, c.HandlerName(), c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
		return
	}

	status := apperror.HTTPStatus(appErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.LogError(logger.Get(), module, c.HandlerName(), c.FullPath(), appErr.Details, err)
	}
	details := appErr.Details
	if apperror.KindOf(err) == apperror.KindTransaction {
		details = make(map[string]any, len(appErr.Details)+1)
		maps.Copy(details, appErr.Details)
		details["transaction"] = "rolled_back"
	}
	message := appErr.Message
	if appErr.Kind == apperror.KindInternal {
		message = "Internal server error"
	}
	c.JSON(status, response.Fail(status, appErr.Code, message, appErr.Fields, details))
}

// respondBindError reports a binding failure with a per-field map when the
// validator produced one.
func respondBindError(c *gin.Context, err error) {
	fields := validation.FieldErrors(err)
	if fields == nil {
		c.JSON(http.StatusBadRequest, response.Fail(http.StatusBadRequest, apperror.CodeValidationFailed, "Invalid request payload: "+err.Error(), nil, nil))
		return
	}
	c.JSON(http.StatusBadRequest, response.Fail(http.StatusBadRequest, apperror.CodeValidationFailed, "Invalid request payload", fields, nil))
}

func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}

// queryTime parses an optional RFC3339 or YYYY-MM-DD query value. Date-only
// upper bounds cover the whole day.
func queryTime(c *gin.Context, key string, endOfDay bool) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Fail(http.StatusBadRequest, apperror.CodeValidationFailed,
			"Invalid "+key+": expected RFC3339 or YYYY-MM-DD", map[string]string{key: "datetime"}, nil))
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
