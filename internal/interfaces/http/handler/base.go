// Package handler implements the connector's inbound webhook and
// operational endpoints.
package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/interfaces/http/middleware"
)

// RouteRegistrar is implemented by every handler.
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRoutes)
}

// BaseHandler provides common handler utilities
type BaseHandler struct {
	logger *zap.Logger
}

func newBaseHandler(logger *zap.Logger) BaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return BaseHandler{logger: logger}
}

// log returns the handler logger tagged with the request id.
func (h *BaseHandler) log(c *gin.Context) *zap.Logger {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return h.logger.With(zap.String("request_id", id))
	}
	return h.logger
}

// readBody reads the request body; an oversize body reports 413.
func (h *BaseHandler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err == nil {
		return body, true
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.AbortWithStatus(http.StatusRequestEntityTooLarge)
		return nil, false
	}
	h.log(c).Warn("Reading request body failed", zap.Error(err))
	c.AbortWithStatus(http.StatusBadRequest)
	return nil, false
}

// secretEqual compares a presented secret in constant time. An empty
// expected secret matches nothing.
func secretEqual(presented, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
