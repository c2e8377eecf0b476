package repo

import (
	"context"
	"sync"

	"github.com/tbourn/go-catalog-api/internal/domain"
)

// MemoryStore keeps users and products in process memory, in insertion
// order. It is the default store; a restart discards every change.
//
// Callers always receive copies, so mutating a returned value never changes
// the store. All methods are safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	users    []domain.User
	products []domain.Product
}

// NewMemoryStore returns a store holding copies of users and products.
func NewMemoryStore(users []domain.User, products []domain.Product) *MemoryStore {
	return &MemoryStore{
		users:    append([]domain.User(nil), users...),
		products: append([]domain.Product(nil), products...),
	}
}

// NewSeededMemoryStore returns a store holding the seed users and products.
func NewSeededMemoryStore() *MemoryStore {
	return NewMemoryStore(domain.SeedUsers(), domain.SeedProducts())
}

// GetUser returns the user with id, or ErrNotFound.
func (s *MemoryStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// ListProducts returns a snapshot of every product in insertion order.
func (s *MemoryStore) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.products...), nil
}

// GetProduct returns the product with id, or ErrNotFound.
func (s *MemoryStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		p := s.products[i]
		return &p, nil
	}
	return nil, ErrNotFound
}

// InsertProduct appends p. It returns ErrDuplicate when p.ID is taken.
func (s *MemoryStore) InsertProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(p.ID) >= 0 {
		return ErrDuplicate
	}
	s.products = append(s.products, *p)
	return nil
}

// UpdateProduct applies patch to the product with id in place and returns
// the updated copy. Renaming onto another product's id yields ErrDuplicate.
func (s *MemoryStore) UpdateProduct(_ context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	if patch.ID != nil && *patch.ID != id && s.indexOf(*patch.ID) >= 0 {
		return nil, ErrDuplicate
	}
	patch.Apply(&s.products[i])
	p := s.products[i]
	return &p, nil
}

// DeleteProduct removes the product with id, or returns ErrNotFound.
func (s *MemoryStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.products = append(s.products[:i:i], s.products[i+1:]...)
	return nil
}

// indexOf must be called with mu held.
func (s *MemoryStore) indexOf(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}
