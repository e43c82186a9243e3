package content

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
)

// Scraper fetches a page and returns its paragraph text.
type Scraper struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
}

// NewScraper builds a scraper; zero values keep colly's defaults.
func NewScraper(userAgent string, timeout time.Duration, maxBodySize int) *Scraper {
	return &Scraper{UserAgent: userAgent, Timeout: timeout, MaxBodySize: maxBodySize}
}

// Scrape GETs url and joins the text of every <p> element, in document order,
// with single spaces. Non-2xx responses fail with the HTTP status text.
// colly only runs HTML callbacks for HTML content types, so other bodies are
// parsed as HTML directly.
func (s *Scraper) Scrape(ctx context.Context, url string) (string, error) {
	c := colly.NewCollector()
	if s.UserAgent != "" {
		c.UserAgent = s.UserAgent
	}
	if s.MaxBodySize > 0 {
		c.MaxBodySize = s.MaxBodySize
	}
	if s.Timeout > 0 {
		c.SetRequestTimeout(s.Timeout)
	}

	var (
		paragraphs []string
		status     int
	)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		log.Printf("scrape: visiting %s", r.URL)
	})
	c.OnHTML("p", func(e *colly.HTMLElement) {
		paragraphs = append(paragraphs, e.Text)
	})
	c.OnResponse(func(r *colly.Response) {
		if strings.Contains(strings.ToLower(r.Headers.Get("Content-Type")), "html") {
			return
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			log.Printf("scrape: parse %s: %v", r.Request.URL, err)
			return
		}
		doc.Find("p").Each(func(_ int, p *goquery.Selection) {
			paragraphs = append(paragraphs, p.Text())
		})
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(url); err != nil {
		if status != 0 {
			return "", fmt.Errorf("fetch %s: status %d: %w", url, status, err)
		}
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.Join(paragraphs, " "), nil
}
