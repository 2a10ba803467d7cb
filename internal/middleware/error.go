package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/types"
)

// ErrorHandler turns errors attached with c.Error into JSON error responses
// and recovers panics as 500s.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic while handling request",
					zap.Any("panic", r),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, types.ErrorResponse{
						Error: "internal server error",
						Code:  string(apperrors.CodeInternal),
					})
				}
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		appErr := apperrors.From(err)
		if appErr.StatusCode() >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err))
		}
		WriteError(c, appErr)
	}
}

// WriteError aborts the request with err rendered as an ErrorResponse.
// Internal errors never expose their cause.
func WriteError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	resp := types.ErrorResponse{Error: appErr.Message, Code: string(appErr.Code)}
	if appErr.Details != "" {
		resp.Details = map[string]interface{}{"details": appErr.Details}
	}
	c.AbortWithStatusJSON(appErr.StatusCode(), resp)
}
