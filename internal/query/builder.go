// Package query turns a project into a small ordered set of
// verticalized search queries. The builder is a pure function over its
// inputs; identical projects always produce identical queries.
package query

import (
	"fmt"
	"strings"

	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/region"
)

// maxQueries caps builder output. Downstream pacing makes every query
// cost at least a second, so five is already a slow run.
const maxQueries = 5

// Builder produces search queries from a project using a vertical
// ladder.
type Builder struct {
	ladder []Vertical
}

// NewBuilder creates a Builder with the given ladder, or the built-in
// default when ladder is empty.
func NewBuilder(ladder []Vertical) *Builder {
	if len(ladder) == 0 {
		ladder = DefaultLadder()
	}
	return &Builder{ladder: ladder}
}

// Build converts a project into 1-5 non-empty query strings. An empty
// project yields ["startup company"].
func (b *Builder) Build(p model.Project) []string {
	desc := strings.ToLower(p.Description)

	if isEmptyProject(p) {
		return []string{"startup company"}
	}

	var queries []string
	seen := make(map[string]bool)
	add := func(q string) {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" || seen[q] || len(queries) >= maxQueries {
			return
		}
		seen[q] = true
		queries = append(queries, q)
	}

	geo := detectGeography(desc, p.TargetRegions)
	btype := detectBusinessType(desc)

	if v := b.detectVertical(desc); v != nil {
		add(strings.TrimSpace(fmt.Sprintf("%s %s %s startup", v.Phrase, btype, geo)))
	} else if p.Name != "" {
		add(p.Name + " competitors")
	}

	// Keyword x region variants fill the remaining slots. When an
	// industry is known, each pair also gets an industry-qualified
	// variant.
	industry := ""
	if len(p.Industries) > 0 {
		industry = p.Industries[0]
	}
	regions := p.TargetRegions
	if len(regions) == 0 {
		regions = []string{""}
	}
	for _, kw := range p.Keywords {
		for _, rc := range regions {
			place := geo
			if rc != "" {
				place = region.Name(rc)
			}
			add(strings.TrimSpace(fmt.Sprintf("%s companies %s", kw, place)))
			if industry != "" {
				add(strings.TrimSpace(fmt.Sprintf("%s %s companies %s", kw, industry, place)))
			}
		}
	}

	if len(queries) == 0 {
		return []string{"startup company"}
	}
	return queries
}

func isEmptyProject(p model.Project) bool {
	return strings.TrimSpace(p.Name) == "" &&
		strings.TrimSpace(p.Description) == "" &&
		len(p.Keywords) == 0 &&
		len(p.Industries) == 0 &&
		len(p.TargetRegions) == 0
}

// detectVertical walks the ladder and returns the first rung with a
// trigger present in the lowercased description.
func (b *Builder) detectVertical(desc string) *Vertical {
	if desc == "" {
		return nil
	}
	for i := range b.ladder {
		for _, trigger := range b.ladder[i].Triggers {
			if strings.Contains(desc, trigger) {
				return &b.ladder[i]
			}
		}
	}
	return nil
}

// detectGeography resolves a geography phrase from the description,
// falling back to the majority of the project's region codes.
func detectGeography(desc string, regionCodes []string) string {
	switch {
	case strings.Contains(desc, "west africa"):
		return "West Africa"
	case strings.Contains(desc, "east africa"):
		return "East Africa"
	}
	for _, code := range regionCodes {
		name := strings.ToLower(region.Name(code))
		if name != "" && strings.Contains(desc, name) {
			return region.Name(code)
		}
	}
	if strings.Contains(desc, "africa") {
		return "Africa"
	}
	return geographyFromCodes(regionCodes)
}

// geographyFromCodes maps a region-code set to a geography label:
// majority West Africa wins, then majority East Africa, then any
// African code at all.
func geographyFromCodes(codes []string) string {
	if len(codes) == 0 {
		return ""
	}
	var west, east, african int
	for _, c := range codes {
		if region.WestAfrican(c) {
			west++
		}
		if region.EastAfrican(c) {
			east++
		}
		if region.African(c) {
			african++
		}
	}
	switch {
	case west*2 > len(codes):
		return "West Africa"
	case east*2 > len(codes):
		return "East Africa"
	case african > 0:
		return "Africa"
	case len(codes) == 1:
		return region.Name(codes[0])
	}
	return ""
}

func detectBusinessType(desc string) string {
	switch {
	case strings.Contains(desc, "b2b"):
		return "B2B"
	case strings.Contains(desc, "b2c"):
		return "B2C"
	case strings.Contains(desc, "wholesale"):
		return "wholesale"
	}
	return ""
}
