package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/go-storefront/cart"
	"github.com/jrsteele09/go-storefront/dataprovider"
	"github.com/jrsteele09/go-storefront/internal/utils"
	"github.com/shopspring/decimal"
)

const (
	Table = "products"

	ColumnID          = "id"
	ColumnName        = "name"
	ColumnDescription = "description"
	ColumnPrice       = "price"
	ColumnImageURL    = "image_url"
)

// FromRow maps a products row to a Product.
func FromRow(row dataprovider.Row) (cart.Product, error) {
	price, err := parsePrice(row[ColumnPrice])
	if err != nil {
		return cart.Product{}, fmt.Errorf("%w: %v", ErrProductMalformed, err)
	}

	p := cart.Product{
		ID:          row.String(ColumnID),
		Name:        row.String(ColumnName),
		Description: row.String(ColumnDescription),
		Price:       price,
		ImageURL:    utils.NonZeroPtr(row.String(ColumnImageURL)),
	}
	if err := p.Validate(); err != nil {
		return cart.Product{}, fmt.Errorf("%w: %v", ErrProductMalformed, err)
	}
	return p, nil
}

// Row is the products row for p.
func Row(p cart.Product) dataprovider.Row {
	row := dataprovider.Row{
		ColumnID:          p.ID,
		ColumnName:        p.Name,
		ColumnDescription: p.Description,
		ColumnPrice:       p.Price.String(),
	}
	if p.ImageURL != nil {
		row[ColumnImageURL] = *p.ImageURL
	}
	return row
}

func parsePrice(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case string:
		return decimal.NewFromString(val)
	case json.Number:
		return decimal.NewFromString(val.String())
	case float64:
		return decimal.NewFromFloat(val), nil
	case float32:
		return decimal.NewFromFloat32(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int32:
		return decimal.NewFromInt32(val), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case nil:
		return decimal.Decimal{}, fmt.Errorf("price is missing")
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported price type %T", v)
	}
}
