package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
)

// UserIDHeader carries the caller identity set by the auth gateway.
const UserIDHeader = "X-User-ID"

var errorLogger = logging.NewLoggerV2("handlers")

var statusByKind = map[errors.Kind]int{
	errors.KindValidation:    http.StatusBadRequest,
	errors.KindNotFound:      http.StatusNotFound,
	errors.KindAuthorization: http.StatusForbidden,
	errors.KindConflict:      http.StatusConflict,
	errors.KindStorage:       http.StatusInternalServerError,
}

func handleError(c *gin.Context, err error) {
	kind := errors.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		errorLogger.Error("Request failed", logging.Fields{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
		c.JSON(status, gin.H{"error": "internal server error", "kind": errors.KindStorage})
		return
	}

	body := gin.H{"error": err.Error(), "kind": kind}
	var appErr *errors.Error
	if errors.As(err, &appErr) && appErr.Field != "" {
		body["field"] = appErr.Field
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, field, message string) {
	handleError(c, errors.NewValidationError(field, message))
}

// userID reads the caller identity. It writes a 401 and returns false when
// the header is missing or malformed.
func userID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(UserIDHeader)
	id, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + UserIDHeader + " header"})
		return 0, false
	}
	return id, true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name, "invalid "+name)
		return 0, false
	}
	return id, true
}
