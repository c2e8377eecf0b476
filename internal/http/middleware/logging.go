// Package middleware contains the Gin middleware used by the catalog HTTP
// layer.
//
// This file provides request correlation, structured access logging, and
// panic recovery:
//
//   - RequestID() propagates or generates an X-Request-ID per request.
//   - Logger() records method, path and arrival time, attaches a
//     request-scoped zerolog.Logger to the Gin context and to the request
//     context.Context, and emits one access log line after the handler chain.
//   - Recovery() turns panics into non-operational errors that the
//     ErrorResponder answers with a generic 500.
//   - LoggerFrom() retrieves the request-scoped logger inside handlers.
//
// Recommended order:
//
//	RequestID() → Logger() → Metrics() → ErrorResponder() → Recovery() → …
//
// Query strings are truncated and scrubbed of e-mail addresses and phone
// numbers before they are logged.
package middleware

import (
	"fmt"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey is the Gin context key of the request-scoped logger.
	loggerKey = "logger"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

var (
	emailRE = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+(?:@|%40)[a-z0-9.\-]+\.[a-z]{2,}`)
	// Digits only, so hex ids are left alone.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// RequestID attaches (or propagates) a correlation identifier per request.
//
// If the incoming request carries X-Request-ID that value is reused;
// otherwise a new UUIDv4 is generated. The ID is echoed on the response and
// stored in the Gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes a structured access log for each request.
//
// On arrival it records method, path and received_at and attaches the
// request-scoped logger (see LoggerFrom and zerolog.Ctx). After the chain it
// adds status, latency and bytes written and logs at:
//   - error for 5xx,
//   - warn  for 4xx,
//   - info  otherwise.
//
// Errors forwarded through c.Error are listed under "errors". The request
// itself is never modified beyond its context.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Time("received_at", start).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", redactQuery(c.Request.URL.RawQuery)).
			Int64("bytes_in", c.Request.ContentLength).
			Logger()

		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		ev := l.With().
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		var e *zerolog.Event
		switch {
		case status >= 500:
			e = ev.Error()
		case status >= 400:
			e = ev.Warn()
		default:
			e = ev.Info()
		}
		if len(c.Errors) > 0 {
			e = e.Str("errors", c.Errors.String())
		}
		e.Msg("request")
	}
}

// Recovery intercepts panics, logs the stack, and forwards a
// non-operational error so the ErrorResponder answers with a generic 500.
//
// Place it after ErrorResponder() so the forwarded error is still seen.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				_ = c.Error(fmt.Errorf("panic: %v", rec))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or a logger without
// request fields when Logger() did not run.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// RequestIDFrom returns the correlation ID set by RequestID().
func RequestIDFrom(c *gin.Context) string {
	rid, _ := c.Get(requestIDKey)
	return asString(rid)
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// redactQuery masks e-mail addresses and phone numbers, then truncates.
func redactQuery(q string) string {
	if q == "" {
		return q
	}
	q = emailRE.ReplaceAllString(q, "[REDACTED:email]")
	q = phoneRE.ReplaceAllString(q, "[REDACTED:phone]")
	return truncate(q, maxQueryLogLength)
}

// truncate operates on bytes, which is acceptable for logging.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
