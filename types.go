package snapseek

import (
	"github.com/snapseek/snapseek/internal/domain"
	"github.com/snapseek/snapseek/internal/domain/box"
)

// Box is a detected region in fractional center-form coordinates: the
// center and extents are fractions of the source image size.
type Box struct {
	CX   float64
	CY   float64
	W    float64
	H    float64
	Conf float64
}

// Detection is the result of running detection on one image.
type Detection struct {
	// ID identifies the stored image for a later Search call.
	ID    string
	Boxes []Box
}

// Price holds original and discounted prices.
type Price struct {
	Original   float64
	Discounted float64
}

// Product is one catalog entry matched by a search.
type Product struct {
	ID       string
	Image    string
	Banner   string
	Name     string
	Category string
	Price    Price
	// Ratings counts reviews per star, one star first.
	Ratings [5]int
	InStock bool
}

func detectionFromDomain(d domain.Detection) Detection {
	boxes := make([]Box, len(d.Boxes))
	for i, b := range d.Boxes {
		boxes[i] = Box{CX: b.CX, CY: b.CY, W: b.W, H: b.H, Conf: b.Conf}
	}
	return Detection{ID: d.ID, Boxes: boxes}
}

func boxToDomain(b Box) box.Box {
	return box.Box{CX: b.CX, CY: b.CY, W: b.W, H: b.H, Conf: b.Conf}
}

func productFromDomain(p domain.Product) Product {
	return Product{
		ID:       p.ID,
		Image:    p.Image,
		Banner:   p.Banner,
		Name:     p.Name,
		Category: p.Category,
		Price:    Price{Original: p.Price.Original, Discounted: p.Price.Discounted},
		Ratings:  p.Ratings,
		InStock:  p.InStock,
	}
}
