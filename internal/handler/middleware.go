package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"hoctuthien/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	UserIDHeader     = "X-User-ID"
	AdminTokenHeader = "X-Admin-Token"
	userIDContext    = "user_id"
)

func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		if query != "" {
			path = path + "?" + query
		}

		logger.Info("http",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
	}
}

func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", zap.Any("panic", err), zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
					Code:    response.CodeServerError,
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID, "+UserIDHeader+", "+AdminTokenHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// UserIdentityMiddleware trusts the caller id set by the auth gateway in front of the service.
func UserIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader(UserIDHeader))
		if err != nil {
			response.Unauthorized(c, "missing or invalid "+UserIDHeader)
			c.Abort()
			return
		}
		c.Set(userIDContext, userID)
		c.Next()
	}
}

// AdminTokenMiddleware admits operators presenting token. An empty token rejects everyone.
func AdminTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.WithStatus(c, http.StatusForbidden, response.CodeForbidden, "admin access required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID must only be called behind UserIdentityMiddleware.
func CurrentUserID(c *gin.Context) uuid.UUID {
	return c.MustGet(userIDContext).(uuid.UUID)
}
