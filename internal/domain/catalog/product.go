package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

type Product struct {
	Handle            string
	SKU               string
	Title             string
	Description       string
	VariantTitle      string
	PriceAmount       int64
	CurrencyCode      string
	InventoryQuantity int64
	ImageURLs         []string
}

// NewProduct normalizes and validates a product row. upsertKey names the
// field ("sku" or "handle") that must identify the product.
func NewProduct(p Product, upsertKey string) (Product, error) {
	p.Handle = strings.ToLower(strings.TrimSpace(p.Handle))
	p.SKU = strings.TrimSpace(p.SKU)
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.VariantTitle = strings.TrimSpace(p.VariantTitle)
	p.CurrencyCode = strings.ToUpper(strings.TrimSpace(p.CurrencyCode))

	if p.Title == "" {
		return Product{}, ErrMissingTitle
	}
	if p.Identifier(upsertKey) == "" {
		return Product{}, ErrMissingIdentifier
	}
	if p.PriceAmount < 0 {
		return Product{}, ErrInvalidPrice
	}
	if len(p.CurrencyCode) != 3 || strings.Trim(p.CurrencyCode, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return Product{}, ErrInvalidCurrency
	}
	if p.InventoryQuantity < 0 {
		return Product{}, ErrInvalidInventory
	}
	for _, raw := range p.ImageURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Product{}, ErrInvalidImageURL
		}
	}

	return p, nil
}

func (p Product) Identifier(upsertKey string) string {
	if upsertKey == "handle" {
		return p.Handle
	}
	return p.SKU
}

// ParsePriceAmount converts a decimal price such as "12.5" into minor units (1250).
func ParsePriceAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidPrice
	}
	whole, frac, _ := strings.Cut(raw, ".")
	if len(frac) > 2 || strings.HasPrefix(whole, "-") {
		return 0, ErrInvalidPrice
	}
	frac += strings.Repeat("0", 2-len(frac))

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, ErrInvalidPrice
	}
	return units*100 + cents, nil
}

// ImportChunkResult counts how one chunk of products landed in the catalog.
type ImportChunkResult struct {
	CreatedCount int64
	UpdatedCount int64
}
