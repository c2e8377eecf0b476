package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so both stores report the same value.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique-key collision (product id, or an
// idempotency (user_id, key) pair).
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation recognizes UNIQUE/PRIMARY KEY failures. glebarez/sqlite
// often returns plain-text errors instead of gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "constraint failed: primary key")
}
