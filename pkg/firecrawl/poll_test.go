package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollCrawl_CompletesAfterScraping(t *testing.T) {
	var calls atomic.Int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		status := "scraping"
		var data []PageData
		if n >= 3 {
			status = "completed"
			data = []PageData{{URL: "https://example.com/about", Markdown: "About"}}
		}
		json.NewEncoder(w).Encode(CrawlStatusResponse{Status: status, Total: len(data), Data: data})
	})

	resp, err := PollCrawl(context.Background(), c, "crawl-1",
		WithPollInterval(time.Millisecond), WithPollCap(2*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestPollCrawl_Failed(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CrawlStatusResponse{Status: "failed"})
	})

	_, err := PollCrawl(context.Background(), c, "crawl-2", WithPollInterval(time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestPollCrawl_ContextTimeout(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CrawlStatusResponse{Status: "scraping"})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := PollCrawl(ctx, c, "crawl-3", WithPollInterval(5*time.Millisecond))
	require.Error(t, err)
}
