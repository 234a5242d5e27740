package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeSocialLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		primary   SocialLinks
		secondary SocialLinks
		want      SocialLinks
	}{
		{
			name:      "primary wins where set",
			primary:   SocialLinks{LinkedIn: "https://linkedin.com/company/acme"},
			secondary: SocialLinks{LinkedIn: "https://linkedin.com/company/other", Twitter: "https://twitter.com/acme"},
			want:      SocialLinks{LinkedIn: "https://linkedin.com/company/acme", Twitter: "https://twitter.com/acme"},
		},
		{
			name:      "secondary fills gaps",
			primary:   SocialLinks{},
			secondary: SocialLinks{Facebook: "https://facebook.com/acme"},
			want:      SocialLinks{Facebook: "https://facebook.com/acme"},
		},
		{
			name:      "both empty",
			primary:   SocialLinks{},
			secondary: SocialLinks{},
			want:      SocialLinks{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MergeSocialLinks(tt.primary, tt.secondary))
		})
	}
}

func TestSocialLinksIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, SocialLinks{}.IsEmpty())
	assert.False(t, SocialLinks{Twitter: "https://twitter.com/acme"}.IsEmpty())
}

func TestValidationStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status ValidationStatus
		want   string
	}{
		{ValidationPending, "pending"},
		{ValidationApproved, "approved"},
		{ValidationRejected, "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func strp(s string) *string { return &s }

func TestCompetitorPatchApply(t *testing.T) {
	t.Parallel()

	e := EnrichedCompetitor{
		BasicCompetitor: BasicCompetitor{
			Name:        "Kuda",
			Website:     "https://kuda.com",
			Description: "Digital bank",
			Industry:    "fintech",
			Country:     "NG",
		},
		Tagline:      "The money app for Africans",
		Founders:     []string{"Babs Ogundeyi"},
		Technologies: []string{"AWS"},
		SocialLinks:  SocialLinks{LinkedIn: "https://linkedin.com/company/kuda"},
	}

	year := 2019
	patch := CompetitorPatch{
		Description:  strp("Pan-African digital bank"),
		FoundedYear:  &year,
		FundingStage: strp("Series B"),
		Founders:     []string{"Babs Ogundeyi", "Musty Mustapha"},
		SocialLinks:  &SocialLinks{Twitter: "https://x.com/kudabank"},
	}
	patch.Apply(&e)

	assert.Equal(t, "Kuda", e.Name)
	assert.Equal(t, "Pan-African digital bank", e.Description)
	assert.Equal(t, 2019, e.FoundedYear)
	assert.Equal(t, "Series B", e.FundingStage)
	assert.Equal(t, []string{"Babs Ogundeyi", "Musty Mustapha"}, e.Founders)
	assert.Equal(t, []string{"AWS"}, e.Technologies)
	assert.Equal(t, "https://linkedin.com/company/kuda", e.SocialLinks.LinkedIn)
	assert.Equal(t, "https://x.com/kudabank", e.SocialLinks.Twitter)
	assert.Equal(t, "The money app for Africans", e.Tagline)
}

func TestCompetitorPatchApplyEmptyNoop(t *testing.T) {
	t.Parallel()

	e := EnrichedCompetitor{
		BasicCompetitor: BasicCompetitor{Name: "Kuda", Country: "NG"},
		Founders:        []string{"Babs Ogundeyi"},
	}
	want := e

	CompetitorPatch{}.Apply(&e)
	assert.Equal(t, want, e)
}

func TestPatchFromEnriched(t *testing.T) {
	t.Parallel()

	p := PatchFromEnriched(EnrichedCompetitor{
		BasicCompetitor: BasicCompetitor{
			Name:        "Kuda",
			Industry:    "fintech",
			FoundedYear: 2019,
		},
		DataSources: []string{"website", "linkedin"},
	})

	assert.Equal(t, "Kuda", *p.Name)
	assert.Equal(t, "fintech", *p.Industry)
	assert.Equal(t, 2019, *p.FoundedYear)
	assert.Equal(t, []string{"website", "linkedin"}, p.DataSources)
	assert.Nil(t, p.Description)
	assert.Nil(t, p.TotalFunding)
	assert.Nil(t, p.SocialLinks)
	assert.Nil(t, p.Metrics)
}
