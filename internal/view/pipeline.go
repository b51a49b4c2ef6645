package view

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mviana-dev/sebo/internal/api"
	"github.com/mviana-dev/sebo/internal/cart"
	"github.com/mviana-dev/sebo/internal/catalog"
)

// Line is the unit the pipeline transforms - an enriched cart line, which
// catalog entries are also lifted into (see FromCatalog).
type Line = cart.EnrichedLine

// Refinement is the third pipeline step: a price-band filter OR a price
// sort. The two are alternative selections of the same control and are
// never combined - one enum makes that unrepresentable.
type Refinement int

const (
	RefineNone Refinement = iota
	BandUnder25
	Band25To50
	BandOver50
	SortPriceAsc
	SortPriceDesc
)

var refinementNames = map[Refinement]string{
	RefineNone:    "",
	BandUnder25:   "under25",
	Band25To50:    "25to50",
	BandOver50:    "over50",
	SortPriceAsc:  "price-asc",
	SortPriceDesc: "price-desc",
}

// String implements fmt.Stringer.
func (r Refinement) String() string {
	if name, ok := refinementNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRefinement maps a refinement name (CLI flag or view file value) to
// its Refinement. The empty string is RefineNone.
func ParseRefinement(name string) (Refinement, error) {
	for refinement, known := range refinementNames {
		if name == known {
			return refinement, nil
		}
	}
	return RefineNone, fmt.Errorf("unknown refinement %q: must be one of under25, 25to50, over50, price-asc, price-desc", name)
}

// IsBand reports whether the refinement filters by price band.
func (r Refinement) IsBand() bool {
	return r == BandUnder25 || r == Band25To50 || r == BandOver50
}

// IsSort reports whether the refinement sorts by price.
func (r Refinement) IsSort() bool {
	return r == SortPriceAsc || r == SortPriceDesc
}

// Config selects a derived view of a line sequence.
type Config struct {
	// TextQuery filters on title, case-insensitive substring.
	TextQuery string
	// FeaturedOnly filters on the featured flag; nil means no filter.
	FeaturedOnly *bool
	// Refine applies a price band or a price sort.
	Refine Refinement
}

// IsZero reports whether the config is the identity transformation.
func (c Config) IsZero() bool {
	return c.TextQuery == "" && c.FeaturedOnly == nil && c.Refine == RefineNone
}

// Apply derives a view of lines. Pure: the input is never mutated and each
// step returns a new sequence.
//
// The order of application is fixed: text filter, then featured filter,
// then price band or price sort.
func Apply(lines []cart.EnrichedLine, cfg Config) []cart.EnrichedLine {
	out := slices.Clone(lines)
	out = filterText(out, cfg.TextQuery)
	out = filterFeatured(out, cfg.FeaturedOnly)
	out = refine(out, cfg.Refine)
	return out
}

// foldCaser folds case for caseless matching; handles more than ASCII
// (the catalog carries accented titles).
var foldCaser = cases.Fold()

func filterText(lines []cart.EnrichedLine, query string) []cart.EnrichedLine {
	if query == "" {
		return lines
	}
	needle := foldCaser.String(query)
	out := make([]cart.EnrichedLine, 0, len(lines))
	for _, line := range lines {
		if strings.Contains(foldCaser.String(line.Title), needle) {
			out = append(out, line)
		}
	}
	return out
}

func filterFeatured(lines []cart.EnrichedLine, featuredOnly *bool) []cart.EnrichedLine {
	if featuredOnly == nil {
		return lines
	}
	want := *featuredOnly
	out := make([]cart.EnrichedLine, 0, len(lines))
	for _, line := range lines {
		if line.Featured == want {
			out = append(out, line)
		}
	}
	return out
}

func refine(lines []cart.EnrichedLine, r Refinement) []cart.EnrichedLine {
	switch {
	case r.IsBand():
		out := make([]cart.EnrichedLine, 0, len(lines))
		for _, line := range lines {
			if inBand(line.UnitPrice, r) {
				out = append(out, line)
			}
		}
		return out
	case r.IsSort():
		out := slices.Clone(lines)
		// Stable, so equal prices keep their server order in both
		// directions (a post-sort reverse would flip them).
		slices.SortStableFunc(out, func(a, b cart.EnrichedLine) int {
			cmp := 0
			switch {
			case a.UnitPrice < b.UnitPrice:
				cmp = -1
			case a.UnitPrice > b.UnitPrice:
				cmp = 1
			}
			if r == SortPriceDesc {
				cmp = -cmp
			}
			return cmp
		})
		return out
	default:
		return lines
	}
}

func inBand(price float64, r Refinement) bool {
	switch r {
	case BandUnder25:
		return price < 25
	case Band25To50:
		return price >= 25 && price <= 50
	case BandOver50:
		return price > 50
	default:
		return true
	}
}

// FromCatalog lifts catalog entries into displayable lines so the same
// pipeline derives catalog views and cart views.
func FromCatalog(entries []catalog.Entry) []cart.EnrichedLine {
	lines := make([]cart.EnrichedLine, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, cart.EnrichedLine{
			CartLine: api.CartLine{
				ProductID:         entry.ID,
				Quantity:          1,
				UnitPriceSnapshot: entry.UnitPrice,
			},
			Title:     entry.Title,
			Author:    entry.Author,
			Genre:     entry.Genre,
			UnitPrice: entry.UnitPrice,
			CoverRef:  entry.CoverRef,
			Featured:  entry.Featured,
			Known:     true,
		})
	}
	return lines
}
