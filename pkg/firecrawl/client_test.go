package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-api-key", WithBaseURL(srv.URL))
	return srv, c
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantURLs   []string
		wantErr    bool
		wantAPIErr bool
		wantStatus int
	}{
		{
			name: "happy path with scraped content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req SearchRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "neobank Africa startup", req.Query)
				assert.Equal(t, 5, req.Limit)
				require.NotNil(t, req.ScrapeOptions)
				assert.Equal(t, []string{"markdown"}, req.ScrapeOptions.Formats)

				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(SearchResponse{
					Success: true,
					Data: SearchData{Web: []WebResult{
						{URL: "https://kuda.com", Title: "Kuda", Description: "The money app", Markdown: "# Kuda"},
						{URL: "https://carbon.ng", Title: "Carbon", Description: "Digital bank"},
					}},
				})
			},
			wantURLs: []string{"https://kuda.com", "https://carbon.ng"},
		},
		{
			name: "insufficient credits",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusPaymentRequired)
				w.Write([]byte(`{"error":"insufficient credits"}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantStatus: 402,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantStatus: 429,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error"}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newTestServer(t, tt.handler)
			resp, err := c.Search(context.Background(), SearchRequest{
				Query:         "neobank Africa startup",
				Limit:         5,
				ScrapeOptions: &ScrapeOptions{Formats: []string{"markdown"}},
			})

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantAPIErr {
					var apiErr *APIError
					require.ErrorAs(t, err, &apiErr)
					assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			require.Len(t, resp.Data.Web, len(tt.wantURLs))
			for i, u := range tt.wantURLs {
				assert.Equal(t, u, resp.Data.Web[i].URL)
			}
		})
	}
}

func TestScrape(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scrape", r.URL.Path)

		var req ScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://flutterwave.com", req.URL)
		assert.Equal(t, []string{"markdown"}, req.Formats)

		json.NewEncoder(w).Encode(ScrapeResponse{
			Success: true,
			Data: PageData{
				URL:      "https://flutterwave.com",
				Markdown: "# Flutterwave\nPayments for Africa",
				Metadata: PageMetadata{Title: "Flutterwave", StatusCode: 200},
			},
		})
	})

	resp, err := c.Scrape(context.Background(), ScrapeRequest{
		URL:     "https://flutterwave.com",
		Formats: []string{"markdown"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Data.Markdown, "Flutterwave")
	assert.Equal(t, "Flutterwave", resp.Data.Metadata.Title)
}

func TestExtract(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)

		var req ExtractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"https://paystack.com"}, req.URLs)
		assert.NotEmpty(t, req.Schema)

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"name": "Paystack", "tagline": "Modern online payments"},
		})
	})

	resp, err := c.Extract(context.Background(), ExtractRequest{
		URLs:   []string{"https://paystack.com"},
		Prompt: "Extract company facts",
		Schema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "Paystack", data["name"])
}

func TestCrawlAndStatus(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crawl":
			var req CrawlRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"/about", "/team"}, req.IncludePaths)
			assert.Equal(t, 2, req.Limit)
			json.NewEncoder(w).Encode(CrawlResponse{Success: true, ID: "crawl-123"})
		case "/crawl/crawl-123":
			json.NewEncoder(w).Encode(CrawlStatusResponse{
				Status: "completed",
				Total:  2,
				Data: []PageData{
					{URL: "https://flutterwave.com/about", Markdown: "About us"},
					{URL: "https://flutterwave.com/team", Markdown: "Our team"},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	resp, err := c.Crawl(context.Background(), CrawlRequest{
		URL:          "https://flutterwave.com",
		Limit:        2,
		IncludePaths: []string{"/about", "/team"},
	})
	require.NoError(t, err)
	assert.Equal(t, "crawl-123", resp.ID)

	status, err := c.GetCrawlStatus(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Len(t, status.Data, 2)
}

func TestDo_MalformedJSON(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := c.Search(context.Background(), SearchRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}
