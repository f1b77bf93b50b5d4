package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ProductField picks one value out of a schema.org Product object
type ProductField func(product map[string]any) string

// ProductName reads Product.name
func ProductName(p map[string]any) string {
	return stringValue(p["name"])
}

// ProductBrand reads Product.brand, which may be a string or a Brand/Organization object
func ProductBrand(p map[string]any) string {
	switch b := p["brand"].(type) {
	case string:
		return b
	case map[string]any:
		return stringValue(b["name"])
	case []any:
		if len(b) > 0 {
			return ProductBrand(map[string]any{"brand": b[0]})
		}
	}
	return stringValue(p["manufacturer"])
}

// ProductPrice reads Product.offers price and currency, e.g. "1,299.99 EUR".
// Offers carry plain machine numbers; they are regrouped so that page-text
// price parsing reads every digit.
func ProductPrice(p map[string]any) string {
	offer := p["offers"]
	if list, ok := offer.([]any); ok && len(list) > 0 {
		offer = list[0]
	}
	o, ok := offer.(map[string]any)
	if !ok {
		return ""
	}
	price := stringValue(o["price"])
	if price == "" {
		price = stringValue(o["lowPrice"])
	}
	if price == "" {
		return ""
	}
	price = groupedAmount(price)
	if currency := stringValue(o["priceCurrency"]); currency != "" {
		return price + " " + currency
	}
	return price
}

// ProductImage reads Product.image, which may be a URL, a list, or an ImageObject
func ProductImage(p map[string]any) string {
	switch img := p["image"].(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			return ProductImage(map[string]any{"image": img[0]})
		}
	case map[string]any:
		return stringValue(img["url"])
	}
	return ""
}

// findJSONLDProduct returns the first Product object found in the page's JSON-LD blocks
func findJSONLDProduct(doc *goquery.Document) map[string]any {
	var product map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return true
		}
		product = walkForProduct(payload)
		return product == nil
	})
	return product
}

func walkForProduct(payload any) map[string]any {
	switch t := payload.(type) {
	case map[string]any:
		if isProductType(t["@type"]) {
			return t
		}
		if graph, ok := t["@graph"].([]any); ok {
			for _, item := range graph {
				if p := walkForProduct(item); p != nil {
					return p
				}
			}
		}
	case []any:
		for _, item := range t {
			if p := walkForProduct(item); p != nil {
				return p
			}
		}
	}
	return nil
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product" || v == "ProductGroup"
	case []any:
		for _, item := range v {
			if isProductType(item) {
				return true
			}
		}
	}
	return false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// groupedAmount rewrites a machine number such as "1299.9" as "1,299.90".
// Anything that is not a plain number is returned unchanged.
func groupedAmount(price string) string {
	v, err := strconv.ParseFloat(price, 64)
	if err != nil || v < 0 {
		return price
	}

	fixed := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String() + "." + frac
}
