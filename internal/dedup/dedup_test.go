package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturescope/scout/internal/model"
)

type fakeCorpus struct {
	websites    []string
	websitesErr error
	matches     []model.Competitor
	matchErr    error
	matchCalls  int
}

func (f *fakeCorpus) ListCompetitorWebsites(ctx context.Context, orgID string) ([]string, error) {
	return f.websites, f.websitesErr
}

func (f *fakeCorpus) MatchCompetitorsByEmbedding(ctx context.Context, orgID string, vec []float32, threshold float64, limit int) ([]model.Competitor, error) {
	f.matchCalls++
	return f.matches, f.matchErr
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func candidate(name, website string) model.Candidate {
	return model.Candidate{
		Enriched: model.EnrichedCompetitor{
			BasicCompetitor: model.BasicCompetitor{Name: name, Website: website},
		},
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.kuda.com/about", "kuda.com"},
		{"https://Kuda.com", "kuda.com"},
		{"kuda.com", "kuda.com"},
		{"www.kuda.com", "kuda.com"},
		{"http://fairmoney.io/", "fairmoney.io"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDomain(tt.in), tt.in)
	}
}

func TestFilter_WithinBatchFirstWins(t *testing.T) {
	d := NewDeduper(&fakeCorpus{}, nil, 0)

	kept := d.Filter(context.Background(), "org-1", []model.Candidate{
		candidate("Kuda", "https://kuda.com"),
		candidate("Kuda Bank", "https://www.kuda.com/"),
		candidate("FairMoney", "https://fairmoney.io"),
	})

	require.Len(t, kept, 2)
	assert.Equal(t, "Kuda", kept[0].Enriched.Name)
	assert.Equal(t, "kuda.com", kept[0].DomainKey)
	assert.Equal(t, "fairmoney.io", kept[1].DomainKey)
}

func TestFilter_CrossCorpus(t *testing.T) {
	corpus := &fakeCorpus{websites: []string{"https://www.kuda.com"}}
	d := NewDeduper(corpus, nil, 0)

	kept := d.Filter(context.Background(), "org-1", []model.Candidate{
		candidate("Kuda", "https://kuda.com"),
		candidate("Wave", "https://wave.com"),
	})

	require.Len(t, kept, 1)
	assert.Equal(t, "Wave", kept[0].Enriched.Name)
}

func TestFilter_CorpusListFailureAdmitsAll(t *testing.T) {
	corpus := &fakeCorpus{websitesErr: assert.AnError}
	d := NewDeduper(corpus, nil, 0)

	kept := d.Filter(context.Background(), "org-1", []model.Candidate{
		candidate("Kuda", "https://kuda.com"),
	})
	assert.Len(t, kept, 1)
}

func TestFilter_SemanticDuplicateDropped(t *testing.T) {
	corpus := &fakeCorpus{matches: []model.Competitor{{
		EnrichedCompetitor: model.EnrichedCompetitor{
			BasicCompetitor: model.BasicCompetitor{Name: "Kuda Technologies"},
		},
	}}}
	d := NewDeduper(corpus, &fakeEmbedder{vec: []float32{1, 0}}, 0.85)

	kept := d.Filter(context.Background(), "org-1", []model.Candidate{
		candidate("Kuda", "https://kuda.com"),
	})
	assert.Empty(t, kept)
	assert.Equal(t, 1, corpus.matchCalls)
}

func TestFilter_SemanticFailuresAdmit(t *testing.T) {
	t.Run("embedder down", func(t *testing.T) {
		d := NewDeduper(&fakeCorpus{}, &fakeEmbedder{err: assert.AnError}, 0)
		kept := d.Filter(context.Background(), "org-1", []model.Candidate{candidate("Kuda", "https://kuda.com")})
		require.Len(t, kept, 1)
		assert.Nil(t, kept[0].Embedding)
	})

	t.Run("match lookup down", func(t *testing.T) {
		corpus := &fakeCorpus{matchErr: assert.AnError}
		d := NewDeduper(corpus, &fakeEmbedder{vec: []float32{1, 0}}, 0)
		kept := d.Filter(context.Background(), "org-1", []model.Candidate{candidate("Kuda", "https://kuda.com")})
		require.Len(t, kept, 1)
		assert.Equal(t, []float32{1, 0}, kept[0].Embedding, "vector kept for persistence")
	})
}

func TestFilter_NoEmbedderSkipsSemantic(t *testing.T) {
	corpus := &fakeCorpus{matches: []model.Competitor{{}}}
	d := NewDeduper(corpus, nil, 0)

	kept := d.Filter(context.Background(), "org-1", []model.Candidate{candidate("Kuda", "https://kuda.com")})
	assert.Len(t, kept, 1)
	assert.Zero(t, corpus.matchCalls)
}

type vecEmbedder struct {
	vecs map[string][]float32
}

func (v *vecEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return v.vecs[text], nil
}

type vecCorpus struct {
	fakeCorpus
	duplicateVecs map[float32]bool
}

func (v *vecCorpus) MatchCompetitorsByEmbedding(ctx context.Context, orgID string, vec []float32, threshold float64, limit int) ([]model.Competitor, error) {
	if len(vec) > 0 && v.duplicateVecs[vec[0]] {
		return []model.Competitor{{}}, nil
	}
	return nil, nil
}

// A raw batch of 20 collapses to 7 on domain dedup and to 4 once the
// semantic pass removes near matches already in the corpus.
func TestFilter_FullFunnel(t *testing.T) {
	domains := []string{
		"kuda.com", "fairmoney.io", "wave.com", "opay.com", "palmpay.com",
		"moniepoint.com", "carbon.africa", "piggyvest.com", "cowrywise.com", "risevest.com",
	}

	batch := make([]model.Candidate, 0, 20)
	for i, d := range domains {
		batch = append(batch, candidate("Co"+d, "https://"+d))
		if i < 8 {
			// Repeat eight of them with www / trailing-slash variants.
			batch = append(batch, candidate("Dup"+d, "https://www."+d+"/"))
		}
	}
	batch = append(batch,
		candidate("NoSite A", ""),
		candidate("NoSite B", ""),
	)
	require.Len(t, batch, 20)

	// Three of the ten domains are already in the org's corpus.
	corpus := &vecCorpus{
		fakeCorpus: fakeCorpus{websites: []string{
			"https://piggyvest.com", "https://cowrywise.com", "https://risevest.com",
		}},
		duplicateVecs: map[float32]bool{1: true, 2: true, 3: true},
	}
	// And three of the seven survivors are semantic near matches.
	embedder := &vecEmbedder{vecs: map[string][]float32{
		"Cokuda.com":       {1},
		"Cofairmoney.io":   {2},
		"Cowave.com":       {3},
		"Coopay.com":       {4},
		"Copalmpay.com":    {5},
		"Comoniepoint.com": {6},
		"Cocarbon.africa":  {7},
	}}

	d := NewDeduper(corpus, embedder, 0.85)
	kept := d.Filter(context.Background(), "org-1", batch)

	require.Len(t, kept, 4)
	var names []string
	for _, c := range kept {
		names = append(names, c.Enriched.Name)
	}
	assert.Equal(t, []string{"Coopay.com", "Copalmpay.com", "Comoniepoint.com", "Cocarbon.africa"}, names)
}

func TestFingerprint(t *testing.T) {
	c := model.EnrichedCompetitor{BasicCompetitor: model.BasicCompetitor{
		Name:        "Kuda",
		Description: "Neobank",
		Industry:    "fintech",
	}}
	assert.Equal(t, "Kuda | Neobank | fintech", Fingerprint(c))
}
