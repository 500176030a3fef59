package rest

import (
	"net/http"

	"github.com/dmitrijs2005/weatherdash/internal/common"
	"github.com/dmitrijs2005/weatherdash/internal/logging"
	"github.com/dmitrijs2005/weatherdash/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 100 << 10

// LimitBody makes reads past limit bytes fail, so binding an oversized
// body ends in the usual 400.
func LimitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// GateMetrics is implemented by *observability.Metrics.
type GateMetrics interface {
	ObserveGateRejection(reason string)
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// the generic message. On success the request context carries the user ID
// (see auth.UserIDFromContext).
func RequireAuth(gate *auth.Gate, logger logging.Logger, metrics GateMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := gate.Authenticate(c.Request.Context(), c.GetHeader(common.AuthorizationHeaderName))
		if err != nil {
			reason, _ := auth.ReasonOf(err)
			logger.Debug(c.Request.Context(), "request rejected by auth gate",
				"reason", string(reason), "path", c.FullPath())
			metrics.ObserveGateRejection(string(reason))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: common.MessageUnauthenticated})
			return
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs one line per request through logger.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}
