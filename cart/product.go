package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-storefront/internal/utils"
	"github.com/shopspring/decimal"
)

var ErrInvalidProduct = errors.New("invalid product")

// Product is owned by the catalog. The cart keeps its own copy.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url,omitempty"`
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	return nil
}

// Image returns the image URL, or "" when the product has none.
func (p Product) Image() string {
	return utils.Value(p.ImageURL)
}

func (p Product) clone() Product {
	if p.ImageURL != nil {
		p.ImageURL = utils.Ptr(*p.ImageURL)
	}
	return p
}
