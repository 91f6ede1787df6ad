package clipper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MaxTextLength caps the imported text so a note stays prompt-sized.
const MaxTextLength = 20000

// ErrInvalidURL is returned for anything but an absolute http(s) URL.
var ErrInvalidURL = errors.New("only absolute http(s) URLs can be imported")

// Clipper fetches travel articles and reduces them to plain note text.
type Clipper struct {
	httpClient *http.Client
}

// Article is the readable part of a fetched page.
type Article struct {
	URL   string
	Title string
	Text  string
}

// NewClipper creates a new Clipper instance.
func NewClipper() *Clipper {
	return &Clipper{httpClient: &http.Client{Timeout: 15 * time.Second}}
}

// ClipURL fetches rawURL and extracts its title and body text.
func (c *Clipper) ClipURL(ctx context.Context, rawURL string) (*Article, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, ErrInvalidURL)
	}

	doc, err := c.fetch(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = u.Host
	}

	// Remove noise before reading the text
	doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe, ads, .ads, #ads, .cookie, .newsletter").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var blocks []string
	root.Find("h1, h2, h3, h4, p, li").Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		if text := collapseWhitespace(root.Text()); text != "" {
			blocks = append(blocks, text)
		}
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no readable text found at %s", u.String())
	}

	return &Article{
		URL:   u.String(),
		Title: collapseWhitespace(title),
		Text:  truncate(strings.Join(blocks, "\n"), MaxTextLength),
	}, nil
}

func (c *Clipper) fetch(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "ai-travel-planner/1.0 (+note import)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 5<<20))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
