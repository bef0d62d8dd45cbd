package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestScraperConfig(t *testing.T) {
	config := ScraperConfig{
		URL:      "https://www.bloomberg.com/asia",
		MaxItems: 10,
		Timeout:  10 * time.Second,
	}

	s, err := NewWithConfig(config)
	require.NoError(t, err)
	assert.Equal(t, "https://www.bloomberg.com", s.config.Origin)
	assert.Equal(t, "Mozilla/5.0", s.config.UserAgent)
	assert.Equal(t, 10, s.config.MaxItems)
	assert.Equal(t, "/news/articles/", s.config.FallbackPath)
	assert.False(t, s.config.InsecureSkipVerify)
}

func TestScraperConfigRejectsRelativeURL(t *testing.T) {
	_, err := NewWithConfig(ScraperConfig{URL: "/asia"})
	assert.Error(t, err)
}

func TestFetchPrimarySelector(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `
			<html>
				<body>
					<a data-tracking-context="section_headline" href="/news/articles/one">
						<span>Markets   rally</span> in Tokyo
					</a>
					<a data-tracking-context="section_headline" href="%s/news/articles/two">Yen slides</a>
					<a data-tracking-context="section_headline" href="https://elsewhere.example/x">Foreign</a>
					<a data-tracking-context="section_headline" href="/news/articles/empty">   </a>
					<a data-tracking-context="section_headline">No link</a>
					<a href="/news/articles/ignored">Not a headline</a>
				</body>
			</html>`, server.URL)
	}))
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{URL: server.URL + "/asia"})
	require.NoError(t, err)

	items, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Markets rally in Tokyo", items[0].Title)
	assert.Equal(t, server.URL+"/news/articles/one", items[0].Link)
	assert.Equal(t, "Yen slides", items[1].Title)
	assert.Equal(t, server.URL+"/news/articles/two", items[1].Link)
}

func TestFetchFallback(t *testing.T) {
	server := newsServer(t, `
		<html>
			<body>
				<a href="/about">About</a>
				<a href="/news/articles/2025-01-01/first">First story</a>
				<a href="https://elsewhere.example/news/articles/x">Foreign story</a>
				<a href="/news/articles/2025-01-01/second">Second story</a>
				<a href="/news/articles/2025-01-01/untitled"></a>
			</body>
		</html>`)

	s, err := NewWithConfig(ScraperConfig{URL: server.URL})
	require.NoError(t, err)

	items, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "First story", items[0].Title)
	assert.Equal(t, "Second story", items[1].Title)

	for _, item := range items {
		assert.True(t, strings.HasPrefix(item.Link, server.URL))
	}
}

func TestFetchFallbackNotUsedWhenPrimaryFinds(t *testing.T) {
	server := newsServer(t, `
		<a data-tracking-context="section_headline" href="/markets/one">Primary</a>
		<a href="/news/articles/two">Fallback</a>`)

	s, err := NewWithConfig(ScraperConfig{URL: server.URL})
	require.NoError(t, err)

	items, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Primary", items[0].Title)
}

func TestFetchTruncates(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 45; i++ {
		fmt.Fprintf(&b, `<a data-tracking-context="section_headline" href="/news/articles/%d">Story %d</a>`, i, i)
	}
	server := newsServer(t, b.String())

	s, err := NewWithConfig(ScraperConfig{URL: server.URL})
	require.NoError(t, err)

	items, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 30)
	assert.Equal(t, "Story 0", items[0].Title)
	assert.Equal(t, "Story 29", items[29].Title)
}

func TestFetchEmptyPage(t *testing.T) {
	server := newsServer(t, `<html><body><p>Nothing here</p></body></html>`)

	s, err := NewWithConfig(ScraperConfig{URL: server.URL})
	require.NoError(t, err)

	items, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchSendsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{URL: server.URL, UserAgent: "Mozilla/5.0 (test)"})
	require.NoError(t, err)

	_, err = s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Mozilla/5.0 (test)", got)
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{URL: server.URL})
	require.NoError(t, err)

	items, err := s.Fetch(context.Background())
	assert.Error(t, err)
	assert.Nil(t, items)
}

func TestFetchTLSVerification(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a data-tracking-context="section_headline" href="/news/articles/a">Secure</a>`))
	}))
	defer server.Close()

	t.Run("verified by default", func(t *testing.T) {
		s, err := NewWithConfig(ScraperConfig{URL: server.URL})
		require.NoError(t, err)

		_, err = s.Fetch(context.Background())
		assert.Error(t, err)
	})

	t.Run("insecure opt-in", func(t *testing.T) {
		s, err := NewWithConfig(ScraperConfig{URL: server.URL, InsecureSkipVerify: true})
		require.NoError(t, err)

		items, err := s.Fetch(context.Background())
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Secure", items[0].Title)
	})
}

func TestAbsoluteLink(t *testing.T) {
	s, err := NewWithConfig(ScraperConfig{URL: "https://www.bloomberg.com/asia"})
	require.NoError(t, err)

	tests := []struct {
		href     string
		expected string
	}{
		{"/news/articles/a", "https://www.bloomberg.com/news/articles/a"},
		{"news/articles/a", "https://www.bloomberg.com/news/articles/a"},
		{"https://www.bloomberg.com/x", "https://www.bloomberg.com/x"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.absoluteLink(tt.href))
		})
	}
}
