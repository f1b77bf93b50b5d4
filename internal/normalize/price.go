package normalize

import (
	"regexp"
	"strings"
)

// Compiled regex patterns for price normalization
var (
	whitespacePattern = regexp.MustCompile(`\s+`)

	// Matches formats like 14,99 or 1.299,99 or 1,299.99 or 14.99 or 1 299,99
	priceNumberPattern = regexp.MustCompile(`\d{1,3}(?:[.,\s]\d{3})*(?:[.,]\d{2})?`)

	europeanDecimalPattern = regexp.MustCompile(`,\d{2}$`)
	usDecimalPattern       = regexp.MustCompile(`\.\d{2}$`)

	currencySymbolPattern = regexp.MustCompile(`[€$£¥]`)
	eurCodePattern        = regexp.MustCompile(`(?i)EUR`)
	usdCodePattern        = regexp.MustCompile(`(?i)USD`)
	gbpCodePattern        = regexp.MustCompile(`(?i)GBP`)
)

// CleanPrice parses free-form localized price text into "NN.NN <symbol>".
// It never fails: text without a numeric run is returned trimmed.
//
// A run without a two-digit fraction ("1.234", "1,234") is read the European
// way: dots group thousands and a comma marks the decimal.
func CleanPrice(text string) string {
	if text == "" {
		return ""
	}

	text = strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))

	price := priceNumberPattern.FindString(text)
	if price == "" {
		return text
	}

	// space-grouped thousands ("1 299,99") carry no meaning once matched
	price = strings.ReplaceAll(price, " ", "")

	switch {
	case europeanDecimalPattern.MatchString(price):
		// 1.299,99
		price = strings.ReplaceAll(price, ".", "")
		price = strings.Replace(price, ",", ".", 1)
	case usDecimalPattern.MatchString(price):
		// 1,299.99
		price = strings.ReplaceAll(price, ",", "")
	default:
		price = strings.ReplaceAll(price, ".", "")
		price = strings.Replace(price, ",", ".", 1)
	}

	if symbol := detectCurrency(text); symbol != "" {
		price += " " + symbol
	}

	return price
}

// detectCurrency returns the currency symbol found in text, mapping ISO codes to symbols
func detectCurrency(text string) string {
	if symbol := currencySymbolPattern.FindString(text); symbol != "" {
		return symbol
	}
	switch {
	case eurCodePattern.MatchString(text):
		return "€"
	case usdCodePattern.MatchString(text):
		return "$"
	case gbpCodePattern.MatchString(text):
		return "£"
	}
	return ""
}
