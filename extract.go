package bingart

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// partialReadyMarker is present once the images partial has been rendered.
	partialReadyMarker = "text/css"
	// streamingMarker is present while the rich model is still painting.
	streamingMarker = "imgri-inner-container strm"

	canonicalImageQuery = "pid=ImgGn"
)

// ImageExtractor pulls image URLs and the caption out of a results partial.
// Keeping the markup knowledge behind this interface lets a change upstream
// be handled by swapping one extractor.
type ImageExtractor interface {
	// Streaming reports that the partial is still being rendered and must
	// not be read yet.
	Streaming(body string) bool
	// ImageURLs returns raw image references in page order.
	ImageURLs(body string) []string
	// Caption returns the enhanced prompt, or "" when there is none.
	Caption(body string) string
}

// VideoExtractor classifies a video results response.
type VideoExtractor interface {
	Pending(body string) bool
	VideoURL(body string) (string, bool)
}

// ExtractorSet picks the extractor for a (content kind, model) pair.
type ExtractorSet struct {
	Images       map[Model]ImageExtractor
	DefaultImage ImageExtractor
	Video        VideoExtractor
}

// DefaultExtractors returns the extractors matching the current markup.
func DefaultExtractors() *ExtractorSet {
	return &ExtractorSet{
		Images: map[Model]ImageExtractor{
			ModelGPT4O: richImageExtractor{},
		},
		DefaultImage: cdnImageExtractor{},
		Video:        markupVideoExtractor{},
	}
}

// ForImages returns the image extractor for model.
func (e *ExtractorSet) ForImages(model Model) ImageExtractor {
	if x, ok := e.Images[model]; ok {
		return x
	}
	return e.DefaultImage
}

// =============================================================================
// Image extractors
// =============================================================================

var (
	richAbsoluteSrc = regexp.MustCompile(`src="(https://th\.bing\.com/th/id/OIG[^"]+)"`)
	richRelativeSrc = regexp.MustCompile(`src="(/th/id/OIG[^"]+)"`)
	anySrc          = regexp.MustCompile(`src="([^"]+)"`)
)

// richImageExtractor handles the incrementally rendered model, whose images
// are always OIG ids on the thumbnail CDN.
type richImageExtractor struct{}

func (richImageExtractor) Streaming(body string) bool {
	return strings.Contains(body, streamingMarker)
}

func (richImageExtractor) ImageURLs(body string) []string {
	urls := allSubmatches(richAbsoluteSrc, body)
	if len(urls) == 0 {
		urls = allSubmatches(richRelativeSrc, body)
	}
	return urls
}

func (richImageExtractor) Caption(body string) string {
	return captionFromMarkup(body)
}

// cdnImageExtractor keeps any src that looks like a CDN image reference.
type cdnImageExtractor struct{}

func (cdnImageExtractor) Streaming(string) bool { return false }

func (cdnImageExtractor) ImageURLs(body string) []string {
	var urls []string
	for _, src := range allSubmatches(anySrc, body) {
		if strings.Contains(src, "?") || strings.Contains(src, "/th/id/") {
			urls = append(urls, src)
		}
	}
	return urls
}

func (cdnImageExtractor) Caption(body string) string {
	return captionFromMarkup(body)
}

func allSubmatches(re *regexp.Regexp, body string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(body, -1) {
		out = append(out, m[1])
	}
	return out
}

// captionFromMarkup reads the first non-empty data-selcap, falling back to the
// first non-empty alt text of a result image.
func captionFromMarkup(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}

	if caption := firstNonEmptyAttr(doc.Find("[data-selcap]"), "data-selcap"); caption != "" {
		return caption
	}
	return firstNonEmptyAttr(doc.Find(`img[class^="image-row-img"]`), "alt")
}

func firstNonEmptyAttr(sel *goquery.Selection, name string) string {
	var value string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr(name); ok && v != "" {
			value = v
			return false
		}
		return true
	})
	return value
}

// NormalizeImageURL resolves ref against origin, drops its query and appends
// the canonical full-size query. Normalizing twice gives the same URL.
func NormalizeImageURL(ref, origin string) string {
	if i := strings.IndexByte(ref, '?'); i >= 0 {
		ref = ref[:i]
	}
	switch {
	case strings.HasPrefix(ref, "//"):
		ref = "https:" + ref
	case strings.HasPrefix(ref, "/"):
		ref = strings.TrimSuffix(origin, "/") + ref
	}
	return ref + "?" + canonicalImageQuery
}

// =============================================================================
// Video extractor
// =============================================================================

var videoOutputURL = regexp.MustCompile(`ourl="([^"]+)"`)

type markupVideoExtractor struct{}

func (markupVideoExtractor) Pending(body string) bool {
	return strings.Contains(body, "errorMessage") && strings.Contains(body, "Pending")
}

// VideoURL prefers the structured showContent field. A body that does not
// decode falls through to the ourl attribute in raw markup.
func (markupVideoExtractor) VideoURL(body string) (string, bool) {
	if strings.Contains(body, "showContent") {
		var data map[string]any
		if err := json.Unmarshal([]byte(body), &data); err == nil {
			if v, ok := data["showContent"].(string); ok && v != "" {
				return v, true
			}
		}
	}

	if m := videoOutputURL.FindStringSubmatch(body); len(m) == 2 {
		return m[1], true
	}
	return "", false
}
