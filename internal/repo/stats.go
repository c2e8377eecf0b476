// Package repo implements the catalog stores. This file provides the
// aggregate query behind GET /products/stats for the SQLite store, so the
// counts are computed by the database instead of in Go.
package repo

import (
	"context"

	"github.com/tbourn/go-catalog-api/internal/domain"
)

// CategoryCounts returns the number of products per category. Categories are
// ordered by the first product inserted into each (lowest rowid), which
// matches the first-seen order of ListProducts. An empty catalog yields an
// empty, non-nil slice.
func (s *SQLStore) CategoryCounts(ctx context.Context) ([]domain.CategoryCount, error) {
	var rows []domain.CategoryCount
	err := s.DB.WithContext(ctx).
		Model(&domain.Product{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("MIN(rowid)").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.CategoryCount{}
	}
	return rows, nil
}
