// Package services defines the business logic for the product catalog.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages and HTTP status codes happens at the
// handler layer.
package services

import "errors"

var (
	// ErrProductNotFound indicates that no product has the requested id.
	ErrProductNotFound = errors.New("product not found")

	// ErrMissingFields is returned by Create when name, description,
	// category, or price is empty. A zero price counts as missing.
	ErrMissingFields = errors.New("all fields are required")

	// ErrDuplicateProductID is returned when an update would rename a
	// product onto an id that another product already holds.
	ErrDuplicateProductID = errors.New("product id already exists")
)
