package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-catalog-api/internal/apperr"
	"github.com/tbourn/go-catalog-api/internal/domain"
	"github.com/tbourn/go-catalog-api/internal/repo"
)

const (
	// APIKeyHeader carries the shared secret checked by RequireAPIKey.
	APIKeyHeader = "X-API-Key"
	// UserIDHeader identifies the requester for RequireAdmin.
	UserIDHeader = "X-User-ID"

	userKey = "user"

	adminDeniedMessage = "Access Denied!! You have to be an admin to create a product"
)

// UserLookup resolves a user by id. It returns repo.ErrNotFound for unknown
// ids.
type UserLookup func(ctx context.Context, id string) (*domain.User, error)

// RequireAPIKey lets a request through only when its X-API-Key header equals
// secret. An empty secret denies every request.
func RequireAPIKey(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		got := c.GetHeader(APIKeyHeader)
		if secret == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			Forward(c, apperr.Authentication("Invalid Key"))
			return
		}
		c.Next()
	}
}

// RequireAdmin resolves the requester from X-User-ID and lets the request
// through only for admins. Unknown users and non-admins get 403. Lookup
// failures, panics included, are forwarded as internal errors.
func RequireAdmin(lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := safeLookup(c.Request.Context(), lookup, c.GetHeader(UserIDHeader))
		switch {
		case errors.Is(err, repo.ErrNotFound):
			Forward(c, apperr.Forbidden(adminDeniedMessage))
			return
		case err != nil:
			Forward(c, err)
			return
		case !u.IsAdmin():
			Forward(c, apperr.Forbidden(adminDeniedMessage))
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// UserFrom returns the admin resolved by RequireAdmin, if any.
func UserFrom(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok
}

func safeLookup(ctx context.Context, lookup UserLookup, id string) (u *domain.User, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("user lookup panicked: %v", rec)
		}
	}()
	if id == "" {
		return nil, repo.ErrNotFound
	}
	return lookup(ctx, id)
}
