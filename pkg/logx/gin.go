package logx

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is read from the request and echoed on the response.
	RequestIDHeader = "X-Request-ID"
	ginLoggerKey    = "logx.logger"
	ginRequestIDKey = "logx.request_id"
)

// GinMiddleware assigns a request id, stores a request scoped logger in the
// gin context and logs each completed request. 4xx log at warn, 5xx at error.
func GinMiddleware(base *Logger) gin.HandlerFunc {
	httpLog := base.WithComponent(ComponentHTTP)
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		reqLog := httpLog.With(FieldRequestID, id)
		c.Set(ginRequestIDKey, id)
		c.Set(ginLoggerKey, reqLog)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		fields := NewFields().
			WithHTTPRequest(c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery, c.ClientIP(), c.Request.UserAgent()).
			WithHTTPResponse(status, time.Since(start).Milliseconds())
		if len(c.Errors) > 0 {
			fields[FieldError] = c.Errors.String()
		}
		reqLog.Log(c.Request.Context(), level, "HTTP request completed", fields.ToSlice()...)
	}
}

// FromGin returns the request scoped logger, or the slog default when the
// middleware did not run.
func FromGin(c *gin.Context) *Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(*Logger); ok {
			return l
		}
	}
	return &Logger{Logger: slog.Default(), component: ComponentHTTP}
}

// RequestID returns the id assigned by GinMiddleware.
func RequestID(c *gin.Context) string {
	return c.GetString(ginRequestIDKey)
}
