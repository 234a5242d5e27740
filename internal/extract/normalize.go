package extract

import (
	"strings"

	"github.com/venturescope/scout/internal/region"
)

// NormalizeURL makes extractor-emitted websites comparable: scheme
// defaults to https, trailing slashes are dropped.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return strings.TrimRight(u, "/")
}

// NormalizeCountry resolves a free-text country value to an uppercase
// ISO alpha-2 code. Unresolvable values become "" and the field is
// dropped rather than stored dirty.
func NormalizeCountry(raw string) string {
	return region.ToISO2(raw)
}
