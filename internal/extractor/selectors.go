package extractor

// Field cascades, ordered from marketplace-specific markup to generic tags.
// The first strategy that yields non-empty text wins.

var titleStrategies = []Strategy{
	// Amazon
	CSS("#productTitle"),
	CSS("h1#title"),
	CSS("span#productTitle"),
	// Generic e-commerce
	CSS(`h1[itemprop="name"]`),
	JSONLD{Field: ProductName},
	CSS("h1.product-title"),
	CSS("h1.product-name"),
	CSS(".product-detail-title h1"),
	CSS(`[data-testid="product-title"]`),
	MetaContent(`meta[property="og:title"]`),
	// eBay
	CSS("h1.x-item-title__mainTitle"),
	// Shopify
	CSS(".product-single__title"),
	CSS("h1.product__title"),
	// WooCommerce
	CSS("h1.product_title"),
	// Fallback
	CSS("h1"),
}

var priceStrategies = []Strategy{
	// Amazon
	CSS(".a-price .a-offscreen"),
	CSS("span.a-price-whole"),
	CSS("#priceblock_ourprice"),
	CSS("#priceblock_dealprice"),
	CSS(".a-price-range .a-offscreen"),
	// Structured data
	CSS(`[itemprop="price"]`),
	MetaContent(`meta[property="product:price:amount"]`),
	JSONLD{Field: ProductPrice},
	// Generic class-based
	CSS(".price"),
	CSS(".product-price"),
	CSS(".current-price"),
	CSS(".sale-price"),
	CSS(".final-price"),
	CSS("span.price"),
	CSS("div.price"),
	CSS("p.price"),
	CSS(`[data-testid="product-price"]`),
	CSS(`[data-test="product-price"]`),
	// Pharmacy shops (Shop Apotheke and similar Magento themes)
	CSS(".price-box .price"),
	CSS(".product-info-price .price"),
	CSS(".price-final"),
	CSS(".regular-price"),
	CSS(".special-price"),
	// eBay
	CSS(".x-price-primary"),
	CSS(".x-bin-price__content"),
	// Shopify
	CSS(".price--main"),
	CSS(".product__price"),
	CSS(".product-price__price"),
	// WooCommerce
	CSS(".woocommerce-Price-amount"),
	CSS("p.price ins .amount"),
	CSS(".amount"),
	// Fallbacks
	CSS(`[class*="price"]`),
	CSS(`[id*="price"]`),
}

// imageSetSelectors feed the candidate image gallery
var imageSetSelectors = []*Selector{
	// Amazon
	CSS("#landingImage"),
	CSS("#imgBlkFront"),
	CSS("#main-image"),
	CSS("img.a-dynamic-image"),
	// Generic
	CSS(`[itemprop="image"]`),
	CSS(".product-image img"),
	CSS(".product-gallery img"),
	CSS(".product-images img"),
	CSS(`[data-testid="product-image"]`),
	CSS(".product-detail-image img"),
	CSS(".product-photo img"),
	// Pharmacy shops
	CSS(".gallery-image img"),
	CSS(".product-image-gallery img"),
	CSS(".image-gallery img"),
	// eBay
	CSS(".ux-image-carousel-item img"),
	// Shopify
	CSS(".product__main-photos img"),
	// WooCommerce
	CSS(".woocommerce-product-gallery__image img"),
	// Any image in the main content area
	CSS("main img"),
	CSS("article img"),
	CSS(".main-content img"),
}

// bestImageStrategies pick the single default image, independent of the gallery
var bestImageStrategies = []Strategy{
	// Amazon
	imageSrc{CSS("#landingImage")},
	imageSrc{CSS("#imgBlkFront")},
	imageSrc{CSS("#main-image")},
	imageSrc{CSS("img.a-dynamic-image")},
	// Generic
	imageSrc{CSS(`[itemprop="image"]`)},
	imageSrc{CSS(".product-image img")},
	imageSrc{CSS(".product-gallery img:first-of-type")},
	imageSrc{CSS(`[data-testid="product-image"]`)},
	MetaContent(`meta[property="og:image"]`),
	JSONLD{Field: ProductImage},
	// eBay
	imageSrc{CSS(".ux-image-carousel-item img")},
	// Shopify
	imageSrc{CSS(".product__main-photos img")},
	// WooCommerce
	imageSrc{CSS(".woocommerce-product-gallery__image img")},
}

var quantityStrategies = []Strategy{
	// Amazon
	CSS("#variation_size_name .selection"),
	CSS("#quantity"),
	CSS(`span.a-size-medium.a-color-base:contains("Größe")`),
	// Generic
	CSS(`[itemprop="weight"]`),
	CSS(".product-quantity"),
	CSS(".product-size"),
	CSS(`[data-testid="product-quantity"]`),
	CSS(".a-spacing-mini .a-size-base"),
}

var supplierStrategies = []Strategy{
	// Amazon
	CSS("#bylineInfo"),
	CSS("a#bylineInfo"),
	CSS(".po-brand .po-break-word"),
	CSS("#brand"),
	// Generic
	CSS(`[itemprop="brand"]`),
	CSS(".product-brand"),
	CSS(".brand-name"),
	CSS(`[data-testid="product-brand"]`),
	MetaContent(`meta[property="product:brand"]`),
	JSONLD{Field: ProductBrand},
	// eBay item specifics: the value cell following the "Marke" label
	XPath{Expr: `//*[contains(concat(' ', normalize-space(@class), ' '), ' ux-labels-values__labels ')][contains(., 'Marke')]` +
		`/following-sibling::*[1][contains(concat(' ', normalize-space(@class), ' '), ' ux-labels-values__values ')]`},
	// Shopify
	CSS(".product__vendor"),
	// WooCommerce
	CSS(".posted_in a"),
}
