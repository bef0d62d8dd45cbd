package scraper

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/newsrag/internal/models"
)

type ScraperConfig struct {
	URL                string
	Origin             string // defaults to scheme://host of URL
	UserAgent          string
	InsecureSkipVerify bool // disables certificate validation, opt-in only
	PrimarySelector    string
	FallbackPath       string
	MaxItems           int
	Timeout            time.Duration
	Logger             *slog.Logger
}

type Scraper struct {
	config ScraperConfig
	client *http.Client
	log    *slog.Logger
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0"
	}
	if config.PrimarySelector == "" {
		config.PrimarySelector = `a[data-tracking-context="section_headline"]`
	}
	if config.FallbackPath == "" {
		config.FallbackPath = "/news/articles/"
	}
	if config.MaxItems == 0 {
		config.MaxItems = 30
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	parsedURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse news URL", goerr.V("url", config.URL))
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, goerr.New("news URL must be absolute", goerr.V("url", config.URL))
	}
	if config.Origin == "" {
		config.Origin = parsedURL.Scheme + "://" + parsedURL.Host
	}
	config.Origin = strings.TrimRight(config.Origin, "/")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.InsecureSkipVerify {
		config.Logger.Warn("TLS certificate verification disabled for news fetch", slog.String("url", config.URL))
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		log: config.Logger,
	}, nil
}

// Fetch downloads the configured page and returns its headlines in document order.
func (s *Scraper) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("url", s.config.URL))
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch news page", goerr.V("url", s.config.URL))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.New("unexpected status code",
			goerr.V("url", s.config.URL),
			goerr.V("status", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse news page", goerr.V("url", s.config.URL))
	}

	return s.Extract(doc), nil
}

// Extract applies the primary selector and, only when it finds nothing,
// the fallback path scan.
func (s *Scraper) Extract(doc *goquery.Document) []models.NewsItem {
	items := s.extractPrimary(doc)
	if len(items) == 0 {
		s.log.Debug("primary selector found no headlines, using fallback",
			slog.String("selector", s.config.PrimarySelector),
			slog.String("fallback_path", s.config.FallbackPath))
		items = s.extractFallback(doc)
	}

	if len(items) > s.config.MaxItems {
		items = items[:s.config.MaxItems]
	}
	return items
}

func (s *Scraper) extractPrimary(doc *goquery.Document) []models.NewsItem {
	var items []models.NewsItem
	doc.Find(s.config.PrimarySelector).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if item, ok := s.newsItem(sel, href); ok {
			items = append(items, item)
		}
	})
	return items
}

func (s *Scraper) extractFallback(doc *goquery.Document) []models.NewsItem {
	var items []models.NewsItem
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, s.config.FallbackPath) {
			return
		}
		if item, ok := s.newsItem(sel, href); ok {
			items = append(items, item)
		}
	})
	return items
}

func (s *Scraper) newsItem(sel *goquery.Selection, href string) (models.NewsItem, bool) {
	title := cleanTitle(sel.Text())
	link := s.absoluteLink(strings.TrimSpace(href))

	if title == "" || link == "" || !strings.HasPrefix(link, s.config.Origin) {
		return models.NewsItem{}, false
	}
	return models.NewsItem{Title: title, Link: link}, true
}

func (s *Scraper) absoluteLink(href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return s.config.Origin + href
}

func cleanTitle(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
