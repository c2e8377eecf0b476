// Package middleware – idempotency support for product creation.
//
// IdempotencyValidator validates an optional Idempotency-Key header on POST
// requests, stashes it in the Gin context, and consults a lookup for a prior
// completed request by the same user. When one exists, the stored record is
// stashed for the handler to replay and the rate limiter is bypassed.
//
// Persistence stays behind the IdempotencyLookup function type; TTL is
// enforced by the lookup.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-catalog-api/internal/apperr"
	"github.com/tbourn/go-catalog-api/internal/domain"
)

// HeaderIdempotencyKey is the request header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // *domain.Idempotency of the prior request
	ctxKeyRateBypass = "rate.bypass"

	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// ReplayRecord returns the stored outcome when this request replays an
// earlier one.
func ReplayRecord(c *gin.Context) (*domain.Idempotency, bool) {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return nil, false
	}
	rec, ok := v.(*domain.Idempotency)
	return rec, ok && rec != nil
}

// IsReplay reports whether ReplayRecord would return a record.
func IsReplay(c *gin.Context) bool {
	_, ok := ReplayRecord(c)
	return ok
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup returns the unexpired record for (userID, key), or an
// error when there is none. Errors never block normal processing.
type IdempotencyLookup func(ctx context.Context, userID, key string, now time.Time) (*domain.Idempotency, error)

// IdempotencyValidator handles the Idempotency-Key header on POST requests.
//
//   - No header, or not a POST: no-op.
//   - Invalid header: ValidationError (400) forwarded to the ErrorResponder.
//   - Prior record found: stashed for ReplayRecord, rate limiting bypassed.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			Forward(c, apperr.Validation("invalid Idempotency-Key"))
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			uid := c.GetHeader(UserIDHeader)
			rec, err := lookup(c.Request.Context(), uid, key, time.Now().UTC())
			if err == nil && rec != nil {
				c.Set(ctxKeyIdemReplay, rec)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}
