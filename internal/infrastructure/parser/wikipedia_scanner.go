package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PageviewLabeler/internal/ports"
	"PageviewLabeler/internal/textutil"
)

const defaultUserAgent = "PageviewLabeler/1.0 (corpus builder)"

// ErrNoParagraph means the article page had no usable lead paragraph.
var ErrNoParagraph = errors.New("no lead paragraph")

// WikipediaScanner extracts the lead paragraph of Wikipedia articles.
type WikipediaScanner struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

var _ ports.ParagraphFetcher = (*WikipediaScanner)(nil)

// NewWikipediaScanner wires an HTTP client; baseURL is the article prefix,
// e.g. https://en.wikipedia.org/wiki/.
func NewWikipediaScanner(client *http.Client, baseURL, userAgent string) *WikipediaScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &WikipediaScanner{client: client, baseURL: baseURL, userAgent: userAgent}
}

// FirstParagraph returns the cleaned lead paragraph of the article title.
func (w *WikipediaScanner) FirstParagraph(ctx context.Context, title string) (string, error) {
	pageURL, err := buildArticleURL(w.baseURL, title)
	if err != nil {
		return "", err
	}
	doc, err := w.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("article %s: %w", title, err)
	}
	text := extractFirstParagraph(doc)
	if text == "" {
		return "", fmt.Errorf("article %s: %w", title, ErrNoParagraph)
	}
	return text, nil
}

func (w *WikipediaScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// extractFirstParagraph walks the article body paragraphs and returns the
// first one with text once references and empty placeholders are removed.
func extractFirstParagraph(doc *goquery.Document) string {
	content := doc.Find("#mw-content-text")
	paragraphs := content.Find(".mw-parser-output > p")
	if paragraphs.Length() == 0 {
		paragraphs = content.Find("p")
	}

	var text string
	paragraphs.EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if p.HasClass("mw-empty-elt") {
			return true
		}
		p = p.Clone()
		p.Find("sup.reference, style, .noprint").Remove()
		if cleaned := textutil.CleanParagraph(p.Text()); cleaned != "" {
			text = cleaned
			return false
		}
		return true
	})
	return text
}

func buildArticleURL(base, title string) (string, error) {
	title = strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	if title == "" {
		return "", errors.New("empty article title")
	}
	parsed, err := url.Parse(base + url.PathEscape(title))
	if err != nil {
		return "", fmt.Errorf("invalid article url for %s: %w", title, err)
	}
	return parsed.String(), nil
}
