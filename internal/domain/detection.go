// Package domain holds the shared types of the visual search pipeline.
package domain

import "github.com/snapseek/snapseek/internal/domain/box"

// Detection is the result of one detect request: the id under which the
// source image was cached and the surviving boxes in fractional (0..1)
// center-form coordinates of the source frame, in suppression order.
// Immutable once produced; the search pipeline consumes it as-is.
type Detection struct {
	ID    string
	Boxes []box.Box
}

// Price carries the original and discounted price of a product.
type Price struct {
	Original   float64
	Discounted float64
}

// Product is a resolved catalog record for a matched SKU.
type Product struct {
	ID       string
	Image    string
	Banner   string
	Name     string
	Category string
	Price    Price
	// Ratings is the five-star histogram, index 0 = one star.
	Ratings [5]int
	InStock bool
}
