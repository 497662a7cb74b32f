package importjob

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

const (
	fieldHandle       = "handle"
	fieldSKU          = "sku"
	fieldTitle        = "title"
	fieldDescription  = "description"
	fieldVariantTitle = "variant_title"
	fieldPrice        = "price"
	fieldCurrency     = "currency_code"
	fieldInventory    = "inventory_quantity"
	fieldImages       = "image_urls"
)

var errMissingColumns = errors.New("missing required columns")

type mappingProfile struct {
	// columns maps a normalized source header onto a product field.
	columns  map[string]string
	defaults map[string]string
}

var mappingProfiles = map[string]mappingProfile{
	"shopify": {
		columns: map[string]string{
			"handle":                fieldHandle,
			"variant_sku":           fieldSKU,
			"title":                 fieldTitle,
			"body_(html)":           fieldDescription,
			"option1_value":         fieldVariantTitle,
			"variant_price":         fieldPrice,
			"variant_inventory_qty": fieldInventory,
			"image_src":             fieldImages,
		},
		defaults: map[string]string{fieldCurrency: "USD"},
	},
}

// KnownMappingProfile reports whether id names a built-in mapping profile.
// The empty id selects the native column layout.
func KnownMappingProfile(id string) bool {
	if id == "" {
		return true
	}
	_, ok := mappingProfiles[id]
	return ok
}

type rowMapper struct {
	index     map[string]int
	defaults  map[string]string
	upsertKey string
}

func newRowMapper(header []string, profileID, upsertKey string) (*rowMapper, error) {
	profile := mappingProfiles[profileID]

	index := make(map[string]int, len(header))
	for i, raw := range header {
		column := normalizeHeader(raw)
		field := column
		if mapped, ok := profile.columns[column]; ok {
			field = mapped
		}
		if _, dup := index[field]; !dup {
			index[field] = i
		}
	}

	var missing []string
	for _, required := range []string{fieldTitle, upsertKey} {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", errMissingColumns, strings.Join(missing, ", "))
	}

	return &rowMapper{index: index, defaults: profile.defaults, upsertKey: upsertKey}, nil
}

func normalizeHeader(raw string) string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	return strings.Join(strings.Fields(strings.ToLower(raw)), "_")
}

func (m *rowMapper) value(cells []string, field string) string {
	if i, ok := m.index[field]; ok && i < len(cells) {
		if v := strings.TrimSpace(cells[i]); v != "" {
			return v
		}
	}
	return m.defaults[field]
}

func (m *rowMapper) toProduct(cells []string) (catalog.Product, error) {
	price, err := catalog.ParsePriceAmount(m.value(cells, fieldPrice))
	if err != nil {
		return catalog.Product{}, err
	}

	var inventory int64
	if raw := m.value(cells, fieldInventory); raw != "" {
		inventory, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return catalog.Product{}, catalog.ErrInvalidInventory
		}
	}

	var images []string
	for _, raw := range strings.Split(m.value(cells, fieldImages), "|") {
		if raw = strings.TrimSpace(raw); raw != "" {
			images = append(images, raw)
		}
	}

	return catalog.NewProduct(catalog.Product{
		Handle:            m.value(cells, fieldHandle),
		SKU:               m.value(cells, fieldSKU),
		Title:             m.value(cells, fieldTitle),
		Description:       m.value(cells, fieldDescription),
		VariantTitle:      m.value(cells, fieldVariantTitle),
		PriceAmount:       price,
		CurrencyCode:      m.value(cells, fieldCurrency),
		InventoryQuantity: inventory,
		ImageURLs:         images,
	}, m.upsertKey)
}

func blankRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
