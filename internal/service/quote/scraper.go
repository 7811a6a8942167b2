package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/doby176/light/internal/domain/models"
	httpx "github.com/doby176/light/pkg/http"
)

// scrapeUserAgent is the desktop browser string the quote page serves full markup to.
const scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const notAvailable = "N/A"

var ErrNoKeyStats = errors.New("key stats section not found")

// Scraper reads Open and Prev Close from the key stats block of a quote page.
type Scraper struct {
	client *httpx.Client
	url    string
}

func NewScraper(url string, timeout time.Duration, opts ...httpx.ClientOption) *Scraper {
	base := []httpx.ClientOption{httpx.WithTimeout(timeout), httpx.WithUserAgent(scrapeUserAgent)}
	return &Scraper{client: httpx.NewClient(append(base, opts...)...), url: url}
}

// Fetch performs one scrape.
func (s *Scraper) Fetch(ctx context.Context) (models.Quote, error) {
	body, err := s.client.Fetch(ctx, s.url)
	if err != nil {
		return models.Quote{}, fmt.Errorf("fetch quote page: %w", err)
	}
	defer body.Close()
	return ParseQuote(body)
}

// ParseQuote extracts the quote from page markup. It fails with
// ErrNoKeyStats when neither Open nor Prev Close is present.
func ParseQuote(r io.Reader) (models.Quote, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.Quote{}, fmt.Errorf("parse quote page: %w", err)
	}

	var stats *goquery.Selection
	doc.Find("div.Summary-subsection").EachWithBreak(func(_ int, sec *goquery.Selection) bool {
		title := sec.Find("h3.Summary-title").First()
		if title.Length() == 0 || !strings.Contains(strings.ToUpper(title.Text()), "KEY STATS") {
			return true
		}
		stats = sec.Find("ul.Summary-data").First()
		return false
	})
	if stats == nil || stats.Length() == 0 {
		return models.Quote{}, ErrNoKeyStats
	}

	var q models.Quote
	stats.Find("li.Summary-stat").Each(func(_ int, item *goquery.Selection) {
		label := item.Find("span.Summary-label").First()
		value := item.Find("span.Summary-value").First()
		if label.Length() == 0 || value.Length() == 0 {
			return
		}
		switch strings.TrimSpace(label.Text()) {
		case "Open":
			q.Open = strings.TrimSpace(value.Text())
		case "Prev Close":
			q.PrevClose = strings.TrimSpace(value.Text())
		}
	})
	if q.Open == "" && q.PrevClose == "" {
		return models.Quote{}, ErrNoKeyStats
	}
	if q.Open != "" && q.PrevClose != "" {
		q.GapPct, q.GapValue = gap(q)
	}
	return q, nil
}

func gap(q models.Quote) (string, *float64) {
	open, ok1 := q.OpenPrice()
	prev, ok2 := q.PrevClosePrice()
	if !ok1 || !ok2 || prev == 0 {
		return notAvailable, nil
	}
	v := (open - prev) / prev * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable, nil
	}
	return fmt.Sprintf("%.2f%%", v), &v
}
