package fetcher

import (
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// decodeBody returns body as UTF-8 text. Bodies with a declared charset have
// already been converted by colly; undeclared ones are sniffed from the
// <meta> prescan and, failing that, statistically.
func decodeBody(body []byte, contentType string) string {
	if hasCharset(contentType) || utf8.Valid(body) {
		return string(body)
	}

	_, name, _ := charset.DetermineEncoding(body, "")
	if name == "windows-1252" {
		// also the prescan's default; let the detector have a say
		if detected := detectCharset(body); detected != "" {
			name = detected
		}
	}

	enc, _ := charset.Lookup(name)
	if enc == nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func hasCharset(contentType string) bool {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return params["charset"] != ""
}

func detectCharset(body []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil || result == nil {
		return ""
	}
	return strings.ToLower(result.Charset)
}
