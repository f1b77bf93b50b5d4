package extractor

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Attributes written onto <img> elements by the rendered-page fetcher
const (
	AttrNaturalWidth  = "data-natural-width"
	AttrNaturalHeight = "data-natural-height"
	AttrCurrentSrc    = "data-current-src"
)

// ImageSizer reports the natural pixel dimensions of an image element.
// ok is false when the size cannot be determined.
type ImageSizer interface {
	Size(ctx context.Context, img *goquery.Selection, src string) (width, height int, ok bool)
}

// ChainSizer asks each sizer in turn until one knows the answer
type ChainSizer []ImageSizer

func (c ChainSizer) Size(ctx context.Context, img *goquery.Selection, src string) (int, int, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if w, h, ok := s.Size(ctx, img, src); ok {
			return w, h, true
		}
	}
	return 0, 0, false
}

// AttributeSizer reads dimensions from the markup: natural sizes recorded by
// the rendering fetcher, Amazon's data-a-dynamic-image map, then width/height.
// With NaturalOnly set the declared width/height, which is a display size, is ignored.
type AttributeSizer struct {
	NaturalOnly bool
}

func (a AttributeSizer) Size(_ context.Context, img *goquery.Selection, src string) (int, int, bool) {
	if img == nil {
		return 0, 0, false
	}
	if w, h, ok := attrPair(img, AttrNaturalWidth, AttrNaturalHeight); ok {
		return w, h, true
	}
	if w, h, ok := dynamicImageSize(img, src); ok {
		return w, h, true
	}
	if a.NaturalOnly {
		return 0, 0, false
	}
	return attrPair(img, "width", "height")
}

func attrPair(img *goquery.Selection, wAttr, hAttr string) (int, int, bool) {
	w, wok := parsePixels(img.AttrOr(wAttr, ""))
	h, hok := parsePixels(img.AttrOr(hAttr, ""))
	if !wok || !hok || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// dynamicImageSize reads data-a-dynamic-image, a JSON map of URL to [width, height]
func dynamicImageSize(img *goquery.Selection, src string) (int, int, bool) {
	raw, exists := img.Attr("data-a-dynamic-image")
	if !exists || raw == "" {
		return 0, 0, false
	}
	var sizes map[string][]float64
	if err := json.Unmarshal([]byte(raw), &sizes); err != nil {
		return 0, 0, false
	}
	if dims, ok := sizes[src]; ok && len(dims) == 2 {
		return int(dims[0]), int(dims[1]), dims[0] > 0 && dims[1] > 0
	}
	// src not listed; the largest variant is what the browser loads on zoom
	best := 0
	var bw, bh int
	for _, dims := range sizes {
		if len(dims) != 2 {
			continue
		}
		if area := int(dims[0] * dims[1]); area > best {
			best, bw, bh = area, int(dims[0]), int(dims[1])
		}
	}
	return bw, bh, best > 0
}

func parsePixels(v string) (int, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0, false
		}
		n = int(f)
	}
	return n, true
}

// DimensionProber fetches an image and decodes its header
type DimensionProber interface {
	Dimensions(ctx context.Context, imageURL string) (width, height int, err error)
}

// NewProbingSizer sizes images from natural sizes in the markup, falling back
// to downloading the image header. Declared width/height is never consulted.
func NewProbingSizer(prober DimensionProber) ImageSizer {
	return ChainSizer{AttributeSizer{NaturalOnly: true}, ProbeSizer{Prober: prober}}
}

// ProbeSizer sizes images by downloading their headers
type ProbeSizer struct {
	Prober DimensionProber
}

func (p ProbeSizer) Size(ctx context.Context, _ *goquery.Selection, src string) (int, int, bool) {
	if p.Prober == nil || src == "" {
		return 0, 0, false
	}
	w, h, err := p.Prober.Dimensions(ctx, src)
	if err != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
