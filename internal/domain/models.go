// Package domain defines the catalog entities shared by the store, service,
// and HTTP layers. The same types are mapped with GORM when the SQLite store
// is enabled.
package domain

// Role is the authorization role of a User.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User identifies a caller through the X-User-ID header. Users are seeded at
// startup and never created or destroyed at runtime.
type User struct {
	ID   string `json:"id"   gorm:"type:varchar(64);primaryKey"`
	Name string `json:"name" gorm:"type:varchar(255);not null"`
	Role Role   `json:"role" gorm:"type:varchar(16);not null;check:role IN ('user','admin')"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Product is a catalog entry.
//
// Fields:
//   - ID: unique within the catalog; generated (UUIDv4) on create.
//   - Category: matched exactly by the list filter and grouped by stats.
//   - InStock: serialized as "inStock".
type Product struct {
	ID          string  `json:"id"          gorm:"type:varchar(64);primaryKey"`
	Name        string  `json:"name"        gorm:"type:varchar(255);not null"`
	Description string  `json:"description" gorm:"type:text;not null"`
	Price       float64 `json:"price"       gorm:"not null"`
	Category    string  `json:"category"    gorm:"type:varchar(64);not null;index:idx_products_category"`
	InStock     bool    `json:"inStock"     gorm:"not null;default:false"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// ProductPatch carries a partial update. A nil field was not supplied and
// leaves the stored value untouched; a non-nil field overwrites it, ID
// included.
type ProductPatch struct {
	ID          *string  `json:"id,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    *string  `json:"category,omitempty"`
	InStock     *bool    `json:"inStock,omitempty"`
}

// Apply overwrites dst with every supplied field.
func (p ProductPatch) Apply(dst *Product) {
	if p.ID != nil {
		dst.ID = *p.ID
	}
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.InStock != nil {
		dst.InStock = *p.InStock
	}
}

// Columns returns the supplied fields keyed by column name, for use with
// gorm's Updates (a map keeps zero values such as false or 0).
func (p ProductPatch) Columns() map[string]any {
	cols := make(map[string]any, 6)
	if p.ID != nil {
		cols["id"] = *p.ID
	}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.InStock != nil {
		cols["in_stock"] = *p.InStock
	}
	return cols
}

// Empty reports whether no field was supplied.
func (p ProductPatch) Empty() bool { return len(p.Columns()) == 0 }

// CategoryCount is one row of the catalog statistics.
type CategoryCount struct {
	Category string `json:"category" example:"electronics"`
	Count    int    `json:"count"    example:"2"`
}
