package openai

import (
	"encoding/json"
	"strconv"

	"github.com/smartkanban/backend/internal/domain"
)

// MergeWithFallbacks builds the final record from the model's JSON object,
// filling every absent or empty field from the raw record or the defaults.
func MergeWithFallbacks(resp map[string]any, raw domain.RawRecord) domain.NormalizedRecord {
	return domain.NormalizedRecord{
		TitleShort:    firstNonEmpty(field(resp, "title_short"), raw.Title),
		Price:         firstNonEmpty(field(resp, "price"), raw.Price),
		QuantityUnit:  firstNonEmpty(field(resp, "quantity_unit"), raw.Quantity),
		Supplier:      firstNonEmpty(field(resp, "supplier"), raw.Supplier),
		ImageURL:      firstNonEmpty(field(resp, "image_url"), raw.ImageURL),
		ProductURL:    firstNonEmpty(field(resp, "product_url"), raw.ProductURL),
		ReorderLevel:  firstNonEmpty(field(resp, "reorder_level"), domain.DefaultStockPolicy),
		OrderQuantity: firstNonEmpty(field(resp, "order_quantity"), domain.DefaultStockPolicy),
		Notes:         field(resp, "notes"),
	}
}

// field reads a scalar as text. Null, objects and arrays count as absent.
func field(resp map[string]any, key string) string {
	switch v := resp[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
