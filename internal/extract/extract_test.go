package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/search"
	"github.com/venturescope/scout/pkg/anthropic"
)

type fakeChat struct {
	text string
	err  error
	got  anthropic.MessageRequest
}

func (f *fakeChat) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func someResults() []search.Result {
	return []search.Result{
		{URL: "https://techcabal.com/neobanks", Title: "Top neobanks in Africa", Snippet: "A roundup", Content: "Kuda and FairMoney lead the pack."},
	}
}

func TestExtract_NormalizesAndFilters(t *testing.T) {
	chat := &fakeChat{text: `Here you go:
[
  {"name":"Kuda","website":"kuda.com/","description":"Neobank","country":"Nigeria"},
  {"name":"FairMoney","website":"https://fairmoney.io","country":"NGA"},
  {"name":"Ghost",      "website":""},
  {"name":"",           "website":"https://nameless.com"},
  {"name":"Mystery","website":"mystery.africa","country":"Atlantis"}
]`}
	ex := NewExtractor(chat, "claude-haiku-4-5-20251001", 4096, 0.2)

	out, err := ex.Extract(context.Background(), someResults(), Context{Keywords: []string{"neobank"}, Regions: []string{"NG"}})
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, "https://kuda.com", out[0].Website)
	assert.Equal(t, "NG", out[0].Country)
	assert.Equal(t, "NG", out[1].Country)
	assert.Equal(t, "", out[2].Country, "unresolvable country is dropped")
}

func TestExtract_UnparseableResponseIsEmptyNotError(t *testing.T) {
	chat := &fakeChat{text: "I could not find any companies in these results."}
	ex := NewExtractor(chat, "m", 0, 0)

	out, err := ex.Extract(context.Background(), someResults(), Context{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExtract_NoResultsSkipsModelCall(t *testing.T) {
	chat := &fakeChat{text: "[]"}
	ex := NewExtractor(chat, "m", 0, 0)

	out, err := ex.Extract(context.Background(), nil, Context{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, chat.got.Messages)
}

func TestExtract_ClampsTemperatureAndCachesPolicy(t *testing.T) {
	chat := &fakeChat{text: "[]"}
	ex := NewExtractor(chat, "m", 4096, 0.9)

	_, err := ex.Extract(context.Background(), someResults(), Context{})
	require.NoError(t, err)

	require.NotNil(t, chat.got.Temperature)
	assert.InDelta(t, 0.2, *chat.got.Temperature, 1e-9)
	require.NotEmpty(t, chat.got.System)
	assert.NotNil(t, chat.got.System[len(chat.got.System)-1].CacheControl)
}

func TestExtract_ReportsUsage(t *testing.T) {
	chat := &fakeChat{text: "[]"}
	ex := NewExtractor(chat, "claude-haiku-4-5-20251001", 0, 0)

	var gotIn int64
	ex.OnUsage = func(u anthropic.TokenUsage, model string) { gotIn = u.InputTokens }

	_, err := ex.Extract(context.Background(), someResults(), Context{})
	require.NoError(t, err)
	assert.Equal(t, int64(100), gotIn)
}

func TestExtractEnriched_SeedSurvivesAndRegexLinksWin(t *testing.T) {
	chat := &fakeChat{text: `{"name":"Kuda","tagline":"The money app","founders":["Babs Ogundeyi"],"social_links":{"linkedin":"https://linkedin.com/company/old-guess"}}`}
	ex := NewExtractor(chat, "m", 0, 0)

	content := "Follow us: https://www.linkedin.com/company/kudabank and https://twitter.com/intent/tweet?text=hi and https://x.com/kudabank"
	seed := model.BasicCompetitor{Name: "Kuda", Website: "https://kuda.com", Country: "NG", Description: "Neobank"}

	enriched, err := ex.ExtractEnriched(context.Background(), content, seed)
	require.NoError(t, err)

	assert.Equal(t, "https://kuda.com", enriched.Website)
	assert.Equal(t, "NG", enriched.Country)
	assert.Equal(t, "Neobank", enriched.Description)
	assert.Equal(t, "The money app", enriched.Tagline)
	assert.Equal(t, "https://www.linkedin.com/company/kudabank", enriched.SocialLinks.LinkedIn, "regex hit beats model guess")
	assert.Equal(t, "https://x.com/kudabank", enriched.SocialLinks.Twitter, "intent link excluded")
}

func TestExtractEnriched_GarbageResponseKeepsSeed(t *testing.T) {
	chat := &fakeChat{text: "no json here"}
	ex := NewExtractor(chat, "m", 0, 0)

	enriched, err := ex.ExtractEnriched(context.Background(), "", model.BasicCompetitor{Name: "Wave", Website: "https://wave.com"})
	require.NoError(t, err)
	assert.Equal(t, "Wave", enriched.Name)
	assert.Equal(t, "https://wave.com", enriched.Website)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"kuda.com", "https://kuda.com"},
		{"https://kuda.com/", "https://kuda.com"},
		{"http://kuda.com//", "http://kuda.com"},
		{"  wave.com ", "https://wave.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestParseSocialLinks_Exclusions(t *testing.T) {
	content := `
https://twitter.com/share
https://www.facebook.com/sharer/sharer.php?u=x
https://www.linkedin.com/company/paystack
https://www.instagram.com/paystack
https://www.youtube.com/@paystack
`
	links := ParseSocialLinks(content)
	assert.Equal(t, "https://www.linkedin.com/company/paystack", links.LinkedIn)
	assert.Empty(t, links.Twitter)
	assert.Empty(t, links.Facebook)
	assert.Equal(t, "https://www.instagram.com/paystack", links.Instagram)
	assert.Equal(t, "https://www.youtube.com/@paystack", links.YouTube)
}
