package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hmochat/internal/middleware"
	"github.com/xxxsen/hmochat/internal/pkg/errcode"
	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
	"github.com/xxxsen/hmochat/internal/pkg/response"
	"github.com/xxxsen/hmochat/internal/service"
)

func getSessionID(c *gin.Context) string {
	return c.GetString(middleware.ContextSessionIDKey)
}

func logError(c *gin.Context, err error) {
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("session_id", getSessionID(c)),
		zap.Error(err),
	)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logError(c, err)
	switch {
	case errors.Is(err, service.ErrMessageTooLong):
		response.Error(c, errcode.ErrMessageTooLong, "message too long")
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, appErr.ErrNotConfirmed):
		response.Error(c, errcode.ErrNotConfirmed, "record not confirmed")
	case errors.Is(err, appErr.ErrIndexInconsistency):
		response.Error(c, errcode.ErrIndexUnavailable, "document index unavailable")
	case errors.Is(err, appErr.ErrExternalService):
		response.Error(c, errcode.ErrAIUnavailable, "service temporarily unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
