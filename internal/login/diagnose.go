package login

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/williampepple1/proxy-trends/internal/browser"
)

// diagnose summarizes the current page for a failed gate. It returns an
// empty string when the page cannot be read.
func diagnose(ctx context.Context, s browser.Session, timeout time.Duration) string {
	if ctx.Err() != nil {
		return ""
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	html, err := s.HTML(dctx)
	if err != nil || html == "" {
		return ""
	}
	return summarize(html)
}

func summarize(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var parts []string
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, fmt.Sprintf("title %q", title))
	}
	if alert := collapse(doc.Find(`[role="alert"]`).First().Text()); alert != "" {
		parts = append(parts, fmt.Sprintf("alert %q", alert))
	}
	return strings.Join(parts, ", ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
