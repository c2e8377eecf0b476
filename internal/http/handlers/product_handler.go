// Product HTTP handlers.
//
// This file exposes the catalog endpoints:
//   - GET    /                      (greeting)
//   - GET    /products              (filtered, paginated list)
//   - GET    /products/stats        (count per category)
//   - GET    /products/{id}         (lookup)
//   - POST   /products              (create, admin only, idempotent)
//   - PUT    /products/{id}         (partial update, API key)
//   - DELETE /products/{id}         (delete)
//
// Handlers are transport-thin: they bind input, call ProductService, and
// translate service errors into apperr values (forwarded) or local answers.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-catalog-api/internal/apperr"
	"github.com/tbourn/go-catalog-api/internal/domain"
	"github.com/tbourn/go-catalog-api/internal/http/middleware"
	"github.com/tbourn/go-catalog-api/internal/services"
	"github.com/tbourn/go-catalog-api/internal/utils"
)

const (
	msgAllFieldsRequired = "All fields are required!!"
	msgUpdated           = "Successfully updated"
	msgDeleted           = "Product successfully deleted!!!"

	defaultIdempotencyTTL = 24 * time.Hour
)

//
// Service contracts (context-aware)
//

// ProductService defines the catalog operations consumed by the handlers.
// *services.ProductService implements it.
type ProductService interface {
	List(ctx context.Context, q services.ListQuery) (*services.ProductPage, error)
	Stats(ctx context.Context) ([]domain.CategoryCount, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in services.NewProduct) (*domain.Product, error)
	Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// IdempotencyRecorder stores the outcome of a create so a retry with the
// same Idempotency-Key can be replayed.
type IdempotencyRecorder interface {
	CreateIdempotency(ctx context.Context, userID, key, productID, productName string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

//
// Handler wiring
//

// Options tunes Handlers.
type Options struct {
	// BasePath prefixes the Location header of created products ("/api").
	BasePath string
	// IdempotencyTTL is how long a create can be replayed. Defaults to 24h.
	IdempotencyTTL time.Duration
}

// Handlers groups the catalog endpoints.
type Handlers struct {
	products ProductService
	idem     IdempotencyRecorder
	basePath string
	idemTTL  time.Duration
}

// New constructs Handlers. A nil recorder disables idempotent replay
// storage.
func New(products ProductService, idem IdempotencyRecorder, opt Options) *Handlers {
	ttl := opt.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &Handlers{
		products: products,
		idem:     idem,
		basePath: strings.TrimRight(opt.BasePath, "/"),
		idemTTL:  ttl,
	}
}

//
// DTOs
//

// CreateProductRequest is the JSON payload for creating a product. Name,
// description and category must be non-empty and price non-zero.
type CreateProductRequest struct {
	Name        string  `json:"name"        binding:"required" example:"Desk Lamp"`
	Description string  `json:"description" binding:"required" example:"LED lamp with dimmer"`
	Price       float64 `json:"price"       binding:"required" example:"35.5"`
	Category    string  `json:"category"    binding:"required" example:"home"`
	InStock     bool    `json:"inStock"     example:"true"`
}

//
// Handlers
//

// Root godoc
// @ID          root
// @Summary     Greeting
// @Tags        Meta
// @Produce     plain
// @Success     200 {string} string "Hello World!!!"
// @Router      / [get]
func (h *Handlers) Root(c *gin.Context) {
	c.String(http.StatusOK, "Hello World!!!")
}

// ListProducts godoc
// @ID          listProducts
// @Summary     List products
// @Description Filters by exact category and case-insensitive name substring, then paginates.
// @Tags        Products
// @Produce     json
//
// @Param       category  query  string  false "Exact category"         example(electronics)
// @Param       search    query  string  false "Substring of the name"  example(phone)
// @Param       page      query  int     false "Page number"            minimum(1) default(1)
// @Param       limit     query  int     false "Items per page"         minimum(1) default(5)
//
// @Success     200  {object} services.ProductPage
// @Failure     500  {object} middleware.ErrorResponse "Internal error"
// @Router      /products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	page, err := h.products.List(c.Request.Context(), services.ListQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     utils.AtoiDefault(c.Query("page"), 0),
		Limit:    utils.AtoiDefault(c.Query("limit"), 0),
	})
	if err != nil {
		forward(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

// ProductStats godoc
// @ID          productStats
// @Summary     Product count per category
// @Description Categories appear in the order they were first added to the catalog.
// @Tags        Products
// @Produce     json
// @Success     200  {array}  domain.CategoryCount
// @Failure     500  {object} middleware.ErrorResponse "Internal error"
// @Router      /products/stats [get]
func (h *Handlers) ProductStats(c *gin.Context) {
	stats, err := h.products.Stats(c.Request.Context())
	if err != nil {
		forward(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Get a product
// @Tags        Products
// @Produce     json
// @Param       id   path     string  true  "Product ID"
// @Success     200  {object} domain.Product
// @Failure     404  {object} middleware.ErrorResponse "Product not found"
// @Failure     500  {object} middleware.ErrorResponse "Lookup failed"
// @Router      /products/{id} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		forward(c, apperr.NotFound("Product"))
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, err.Error())
	default:
		ok(c, http.StatusOK, p)
	}
}

// CreateProduct godoc
// @ID          createProduct
// @Summary     Create a product
// @Description Admin only. Responds with a confirmation message and a Location header.
// @Description Supports idempotency via the Idempotency-Key header (same admin + key → same result).
// @Description Missing or empty fields are answered with 404.
// @Tags        Products
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "ID of an admin user"  example(1001)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateProductRequest  true  "New product"
//
// @Success     201  {object}  handlers.MessageResponse
// @Header      201  {string}  Location  "/api/products/{id}"
// @Failure     400  {object}  middleware.ErrorResponse "Invalid Idempotency-Key"
// @Failure     403  {object}  middleware.ErrorResponse "Not an admin"
// @Failure     404  {object}  middleware.ErrorResponse "All fields are required"
// @Router      /products [post]
func (h *Handlers) CreateProduct(c *gin.Context) {
	ctx := c.Request.Context()

	if rec, replay := middleware.ReplayRecord(c); replay {
		c.Header("Idempotency-Replayed", "true")
		h.created(c, rec.ProductID, rec.ProductName)
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ev := middleware.LoggerFrom(c).Warn().Err(err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			ev = ev.Strs("missing_fields", fields)
		}
		ev.Msg("create product rejected")
		fail(c, http.StatusNotFound, ErrCodeMissingFields, msgAllFieldsRequired)
		return
	}

	p, err := h.products.Create(ctx, services.NewProduct{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		InStock:     req.InStock,
	})
	switch {
	case errors.Is(err, services.ErrMissingFields):
		fail(c, http.StatusNotFound, ErrCodeMissingFields, msgAllFieldsRequired)
		return
	case err != nil:
		fail(c, http.StatusNotFound, ErrCodeCreateFailed, err.Error())
		return
	}

	if key, has := middleware.GetIdempotencyKey(c); has && h.idem != nil {
		uid := c.GetHeader(middleware.UserIDHeader)
		if u, found := middleware.UserFrom(c); found {
			uid = u.ID
		}
		if _, err := h.idem.CreateIdempotency(ctx, uid, key, p.ID, p.Name, http.StatusCreated, h.idemTTL); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("product_id", p.ID).Msg("idempotency record not stored")
		}
	}

	h.created(c, p.ID, p.Name)
}

// UpdateProduct godoc
// @ID          updateProduct
// @Summary     Update a product
// @Description Overwrites only the supplied fields. The id itself may be changed.
// @Tags        Products
// @Accept      json
// @Produce     json
//
// @Param       X-API-Key  header  string  true  "API key"
// @Param       id         path    string  true  "Product ID"
// @Param       body       body    domain.ProductPatch  true  "Fields to overwrite"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  middleware.ErrorResponse "Malformed body"
// @Failure     401  {object}  middleware.ErrorResponse "Invalid Key"
// @Failure     404  {object}  middleware.ErrorResponse "Product not found"
// @Failure     409  {object}  middleware.ErrorResponse "Id already in use"
// @Router      /products/{id} [put]
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var patch domain.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	_, err := h.products.Update(c.Request.Context(), c.Param("id"), patch)
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		forward(c, apperr.NotFound("Product"))
	case errors.Is(err, services.ErrDuplicateProductID):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case err != nil:
		fail(c, http.StatusBadRequest, ErrCodeUpdateFailed, err.Error())
	default:
		message(c, http.StatusOK, msgUpdated)
	}
}

// DeleteProduct godoc
// @ID          deleteProduct
// @Summary     Delete a product
// @Tags        Products
// @Produce     json
// @Param       id   path     string  true  "Product ID"
// @Success     200  {object} handlers.MessageResponse
// @Failure     404  {object} middleware.ErrorResponse "Product not found"
// @Failure     500  {object} middleware.ErrorResponse "Delete failed"
// @Router      /products/{id} [delete]
func (h *Handlers) DeleteProduct(c *gin.Context) {
	err := h.products.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		forward(c, apperr.NotFound("Product"))
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
	default:
		message(c, http.StatusOK, msgDeleted)
	}
}

// created writes the 201 confirmation with the product's Location.
func (h *Handlers) created(c *gin.Context, id, name string) {
	c.Header("Location", h.basePath+"/products/"+id)
	message(c, http.StatusCreated, name+" has successfully been created")
}
