package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vm-affekt/ytmux/internal/logging"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// requestContext gives every request an id and a logger, logs its outcome and recovers panics.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rqID := genRequestID()
		ctx, log := logging.NewContextSL(c.Request.Context(),
			"request_id", rqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
		)
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, rqID)

		defer func() {
			if r := recover(); r != nil {
				log.With("recovered_obj", r).Error("!!! A PANIC occurred while handling query !!! See recovered object in recovered_obj!")
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("Internal error. Request id: "+rqID))
			}
			log.Infow("Query is proceeded.",
				"status", c.Writer.Status(),
				"total_elapsed_time", time.Since(start),
			)
		}()
		c.Next()
	}
}

// authorize expects "Authorization: <scheme> <key>".
func authorize(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := strings.Fields(c.GetHeader("Authorization"))
		if len(fields) != 2 || subtle.ConstantTimeCompare([]byte(fields[1]), []byte(apiKey)) != 1 {
			logging.FromContextS(c.Request.Context()).Warn("Unauthorized request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("Unauthorized"))
			return
		}
		c.Next()
	}
}

func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody("Too many requests"))
			return
		}
		c.Next()
	}
}

func genRequestID() string {
	rid, _ := uuid.NewRandom()
	return rid.String()
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}
