package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToISO2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"full name lowercase", "nigeria", "NG"},
		{"alpha-3", "NGA", "NG"},
		{"alpha-2 passthrough", "ke", "KE"},
		{"alpha-2 uppercase", "GH", "GH"},
		{"full name mixed case", "South Africa", "ZA"},
		{"alias uk", "UK", "GB"},
		{"alias usa", "usa", "US"},
		{"ivory coast apostrophe", "côte d'ivoire", "CI"},
		{"whitespace trimmed", "  Senegal  ", "SN"},
		{"unknown name dropped", "atlantis", ""},
		{"unknown alpha-3 dropped", "XYZ", ""},
		{"digits dropped", "12", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ToISO2(tt.input))
		})
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Nigeria", Name("NG"))
	assert.Equal(t, "Kenya", Name("ke"))
	assert.Equal(t, "Ivory Coast", Name("CI"))
	// Unknown codes come back unchanged but uppercased.
	assert.Equal(t, "XX", Name("xx"))
}

func TestRegionMembership(t *testing.T) {
	t.Parallel()

	assert.True(t, WestAfrican("NG"))
	assert.True(t, WestAfrican("sn"))
	assert.False(t, WestAfrican("KE"))

	assert.True(t, EastAfrican("KE"))
	assert.True(t, EastAfrican("TZ"))
	assert.False(t, EastAfrican("NG"))

	assert.True(t, African("NG"))
	assert.True(t, African("KE"))
	assert.True(t, African("EG"))
	assert.True(t, African("ZA"))
	assert.False(t, African("US"))
	assert.False(t, African("FR"))
}

func TestWestAndEastAfricaDisjoint(t *testing.T) {
	t.Parallel()

	for code := range westAfrica {
		assert.False(t, eastAfrica[code], "code %s in both region sets", code)
	}
}
