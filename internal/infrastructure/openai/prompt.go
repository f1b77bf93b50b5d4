package openai

import (
	"fmt"
	"strings"

	"github.com/smartkanban/backend/internal/domain"
)

const systemPrompt = `You are an assistant that normalizes product data for kanban inventory cards.

Your task:
- Extract and normalize product information from the given raw data
- Write a short, concise title (e.g. "Miele dishwasher tabs, 16 pieces, 14.99 €")
- Normalize prices to the format "XX.XX €"
- Normalize quantities (e.g. "500g", "1L", "16 pieces")
- Suggest sensible values for the reorder level (reorder_level) and order quantity (order_quantity)
- Default rule: reorder level 1 package, order quantity 1 package
- Shorten the product URL:
  * Remove tracking parameters (utm_*, ref, tag, fbclid, gclid, mc_*, _ga, etc.)
  * Keep only parameters needed to identify the product
  * Example: amazon.de/dp/B0ABCDEF?tag=xyz&ref=123 -> amazon.de/dp/B0ABCDEF
  * When unsure: drop everything after "?"
- Leave fields empty when the data cannot be determined unambiguously

Reply ONLY with a JSON object. No additional text.`

const notAvailable = "N/A"

// buildUserPrompt renders the raw record and the expected schema
func buildUserPrompt(raw domain.RawRecord) string {
	var b strings.Builder

	b.WriteString("Normalize the following product data into a kanban card:\n\n")
	b.WriteString("Raw data:\n")
	writeField(&b, "Title", raw.Title)
	writeField(&b, "Price", raw.Price)
	writeField(&b, "Quantity/unit", raw.Quantity)
	writeField(&b, "Supplier/brand", raw.Supplier)
	writeField(&b, "Image URL", raw.ImageURL)
	writeField(&b, "Product URL", raw.ProductURL)
	writeField(&b, "Domain", raw.Domain)

	b.WriteString(`
Expected JSON schema:
{
  "title_short": "Short, concise title (max. 60 characters)",
  "price": "Normalized price in the format 'XX.XX €'",
  "quantity_unit": "Normalized quantity (e.g. '500g', '1L', '16 pieces')",
  "supplier": "Manufacturer/brand",
  "image_url": "Original image URL (copy unchanged)",
  "product_url": "SHORTENED product URL without tracking parameters",
  "reorder_level": "Reorder level as text (e.g. '1 package', '2 pieces')",
  "order_quantity": "Order quantity as text (e.g. '1 package', '3 pieces')",
  "notes": "Optional notes or an empty string"
}

Important:
- title_short: combine brand, product and quantity sensibly
- When data is unclear: leave the field empty ("")
- reorder_level and order_quantity: use "1 package" unless something else makes sense
- product_url: remove tracking parameters for a more compact QR code
- image_url: copy unchanged
`)

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		value = notAvailable
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}
