package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

// asinPathPattern finds an Amazon product identifier in /dp/ASIN or /gp/product/ASIN paths
var asinPathPattern = regexp.MustCompile(`(?i)/(dp|gp/product)/([A-Z0-9]{10})`)

// ShortenURL rewrites known marketplace product URLs into a short canonical form
// suitable for QR codes. Amazon URLs become <scheme>//<host>/dp/<ASIN>/.
// Every other URL, including unparseable input, is returned unchanged;
// tracking parameter removal for other hosts is left to the normalizer.
func ShortenURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}

	if strings.Contains(u.Hostname(), "amazon.") {
		if m := asinPathPattern.FindStringSubmatch(u.Path); m != nil {
			return u.Scheme + "://" + u.Hostname() + "/dp/" + m[2] + "/"
		}
	}

	return rawURL
}
