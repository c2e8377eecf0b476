// Package repo implements the catalog stores. This file provides SQLStore,
// the GORM-backed implementation used when STORE_DRIVER=sqlite.
//
// All methods are context-aware and follow the "thin repository" approach:
// no business logic, only persistence and query composition. Not-found and
// unique-key failures are normalized to ErrNotFound and ErrDuplicate so the
// service layer treats SQLStore and MemoryStore identically.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-catalog-api/internal/domain"
)

// SQLStore persists users and products through GORM.
type SQLStore struct {
	DB *gorm.DB
}

// NewSQLStore wraps db.
func NewSQLStore(db *gorm.DB) *SQLStore { return &SQLStore{DB: db} }

// ListProducts returns every product in insertion (rowid) order.
func (s *SQLStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := s.DB.WithContext(ctx).Order("rowid").Find(&out).Error
	return out, err
}

// GetProduct fetches a product by id, or returns ErrNotFound.
func (s *SQLStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertProduct creates a row for p, mapping key collisions to ErrDuplicate.
func (s *SQLStore) InsertProduct(ctx context.Context, p *domain.Product) error {
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateProduct writes every supplied column of patch to the row with id and
// returns the row as stored afterwards. Updating the primary key in place
// keeps the rowid, so listing order is unchanged.
func (s *SQLStore) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	var out domain.Product
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&out).Error; err != nil {
			return err
		}
		if cols := patch.Columns(); len(cols) > 0 {
			res := tx.Model(&domain.Product{}).Where("id = ?", id).Updates(cols)
			if res.Error != nil {
				if isUniqueViolation(res.Error) {
					return ErrDuplicate
				}
				return res.Error
			}
		}
		patch.Apply(&out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct removes the row with id, or returns ErrNotFound.
func (s *SQLStore) DeleteProduct(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUser fetches a user by id, or returns ErrNotFound.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
