package infrastructure

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractMediaSource looks for the first video with a source in the rendered
// document and, when imageMarker is set, falls back to the first image whose
// source contains the marker. Relative sources resolve against pageURL.
func extractMediaSource(html, pageURL, imageMarker string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}

	if src := firstSource(doc.Find("video[src]")); src != "" {
		return absoluteURL(pageURL, src), nil
	}

	if imageMarker != "" {
		selector := fmt.Sprintf(`img[src*=%q]`, imageMarker)
		if src := firstSource(doc.Find(selector)); src != "" {
			return absoluteURL(pageURL, src), nil
		}
	}

	return "", nil
}

func firstSource(sel *goquery.Selection) string {
	var src string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src = strings.TrimSpace(s.AttrOr("src", ""))
		return src == ""
	})
	return src
}

func absoluteURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
