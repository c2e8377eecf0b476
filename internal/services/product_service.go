// Package services – ProductService
//
// This file implements ProductService, which owns the catalog use cases:
// filtered and paginated listing, per-category statistics, lookup, creation,
// partial update, and deletion. Filtering and pagination are linear scans
// over one snapshot returned by the store, so count and page always agree.
//
// Successful mutations are published as product events (best-effort) and
// counted in the catalog_product_mutations_total metric.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-catalog-api/internal/domain"
	"github.com/tbourn/go-catalog-api/internal/events"
	"github.com/tbourn/go-catalog-api/internal/repo"
	"github.com/tbourn/go-catalog-api/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultListLimit = 5
	maxListLimit     = 100

	// idAttempts bounds id regeneration when a generated id collides.
	idAttempts = 3
)

// ProductStore defines the persistence contract required by ProductService.
// repo.MemoryStore and repo.SQLStore both implement it.
type ProductStore interface {
	// ListProducts returns a snapshot of all products in insertion order.
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// GetProduct returns the product with id or repo.ErrNotFound.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// InsertProduct appends p, or returns repo.ErrDuplicate if p.ID is taken.
	InsertProduct(ctx context.Context, p *domain.Product) error

	// UpdateProduct applies patch to the product with id.
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)

	// DeleteProduct removes the product with id or returns repo.ErrNotFound.
	DeleteProduct(ctx context.Context, id string) error
}

// CategoryCounter is implemented by stores that can aggregate category
// counts themselves (SQLStore). Results must keep first-seen order.
type CategoryCounter interface {
	CategoryCounts(ctx context.Context) ([]domain.CategoryCount, error)
}

// ListQuery selects and pages products. Zero or negative Page and Limit take
// the defaults (page 1, DefaultLimit).
type ListQuery struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

// ProductPage is one page of a filtered listing. Total counts the filtered
// products before paging; Page is 1-indexed.
type ProductPage struct {
	Total   int              `json:"total"   example:"2"`
	Page    int              `json:"page"    example:"1"`
	Limit   int              `json:"limit"   example:"5"`
	Results []domain.Product `json:"results"`
}

// NewProduct is the input to Create.
type NewProduct struct {
	Name        string
	Description string
	Price       float64
	Category    string
	InStock     bool
}

// ProductService implements the catalog use cases on top of a ProductStore.
type ProductService struct {
	Store  ProductStore
	Events events.Publisher

	// DefaultLimit is the page size used when the caller supplies none.
	DefaultLimit int
	// MaxLimit caps how many rows one page returns. The offset is always
	// computed from the requested limit.
	MaxLimit int
	// NewID generates product ids.
	NewID func() string
}

// NewProductService constructs a ProductService with default paging and
// UUIDv4 ids. A nil publisher disables events.
func NewProductService(store ProductStore, pub events.Publisher) *ProductService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &ProductService{
		Store:        store,
		Events:       pub,
		DefaultLimit: defaultListLimit,
		MaxLimit:     maxListLimit,
		NewID:        uuid.NewString,
	}
}

func (s *ProductService) tracer() trace.Tracer { return otel.Tracer("services/ProductService") }

// List filters by exact category, then by case-insensitive name substring,
// then slices the result at offset (page-1)*limit.
func (s *ProductService) List(ctx context.Context, q ListQuery) (*ProductPage, error) {
	page, limit := s.clampPage(q.Page, q.Limit)
	ctx, span := s.tracer().Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("category", q.Category),
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	all, err := s.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	filtered := all
	if q.Category != "" {
		filtered = filtered[:0:0]
		for _, p := range all {
			if p.Category == q.Category {
				filtered = append(filtered, p)
			}
		}
	}
	if q.Search != "" {
		// Caser is stateful; one per call. Lower, not Fold: "ß" must not match "ss".
		lower := cases.Lower(language.Und)
		term := lower.String(q.Search)
		matched := make([]domain.Product, 0, len(filtered))
		for _, p := range filtered {
			if strings.Contains(lower.String(p.Name), term) {
				matched = append(matched, p)
			}
		}
		filtered = matched
	}

	total := len(filtered)
	start, end := utils.PageBounds(total, page, limit)
	if s.MaxLimit > 0 && end-start > s.MaxLimit {
		end = start + s.MaxLimit
	}

	results := make([]domain.Product, end-start)
	copy(results, filtered[start:end])

	span.SetAttributes(attribute.Int("total", total))
	return &ProductPage{Total: total, Page: page, Limit: limit, Results: results}, nil
}

// Stats counts products per category, in the order each category first
// appears in the catalog.
func (s *ProductService) Stats(ctx context.Context) ([]domain.CategoryCount, error) {
	ctx, span := s.tracer().Start(ctx, "Stats")
	defer span.End()

	if cc, ok := s.Store.(CategoryCounter); ok {
		return cc.CategoryCounts(ctx)
	}

	all, err := s.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	out := []domain.CategoryCount{}
	pos := make(map[string]int)
	for _, p := range all {
		i, ok := pos[p.Category]
		if !ok {
			i = len(out)
			pos[p.Category] = i
			out = append(out, domain.CategoryCount{Category: p.Category})
		}
		out[i].Count++
	}
	return out, nil
}

// Get returns the product with id or ErrProductNotFound.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := s.tracer().Start(ctx, "Get", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	p, err := s.Store.GetProduct(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// Create validates presence of the required fields, assigns a fresh id, and
// appends the product.
func (s *ProductService) Create(ctx context.Context, in NewProduct) (*domain.Product, error) {
	ctx, span := s.tracer().Start(ctx, "Create", trace.WithAttributes(attribute.String("product.category", in.Category)))
	defer span.End()

	if in.Name == "" || in.Description == "" || in.Category == "" || in.Price == 0 {
		return nil, ErrMissingFields
	}

	p := &domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		InStock:     in.InStock,
	}
	var err error
	for attempt := 0; attempt < idAttempts; attempt++ {
		p.ID = s.NewID()
		if err = s.Store.InsertProduct(ctx, p); !errors.Is(err, repo.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("product.id", p.ID))
	productMutations.WithLabelValues("create").Inc()
	s.publish(ctx, events.ProductEvent{Type: events.ProductCreated, ProductID: p.ID, Name: p.Name})
	return p, nil
}

// Update overwrites the supplied fields of the product with id.
func (s *ProductService) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	ctx, span := s.tracer().Start(ctx, "Update", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	p, err := s.Store.UpdateProduct(ctx, id, patch)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, ErrProductNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return nil, ErrDuplicateProductID
	case err != nil:
		return nil, err
	}

	productMutations.WithLabelValues("update").Inc()
	ev := events.ProductEvent{Type: events.ProductUpdated, ProductID: p.ID, Name: p.Name}
	if p.ID != id {
		ev.PreviousID = id
	}
	s.publish(ctx, ev)
	return p, nil
}

// Delete removes the product with id.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer().Start(ctx, "Delete", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	if err := s.Store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	productMutations.WithLabelValues("delete").Inc()
	s.publish(ctx, events.ProductEvent{Type: events.ProductDeleted, ProductID: id})
	return nil
}

// clampPage applies the page and limit defaults.
func (s *ProductService) clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	def := s.DefaultLimit
	if def < 1 {
		def = defaultListLimit
	}
	if limit < 1 {
		limit = def
	}
	return page, limit
}

func (s *ProductService) publish(ctx context.Context, ev events.ProductEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("event", ev.Type).
			Str("product_id", ev.ProductID).
			Msg("product event not published")
	}
}
