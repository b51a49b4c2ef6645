package cart

import (
	"fmt"

	"github.com/mviana-dev/sebo/internal/api"
	"github.com/mviana-dev/sebo/internal/catalog"
)

// EnrichedLine is one cart row left-joined with its catalog entry.
//
// When the catalog has no entry for the product, the line keeps a
// placeholder title and falls back to the price snapshot - the user never
// loses a paid-for row just because the catalog moved on.
type EnrichedLine struct {
	api.CartLine

	Title     string  `json:"title"`
	Author    string  `json:"author,omitempty"`
	Genre     string  `json:"genre,omitempty"`
	UnitPrice float64 `json:"unitPrice"`
	CoverRef  string  `json:"coverRef,omitempty"`
	Featured  bool    `json:"featured"`
	// Known is false for placeholder lines synthesized without a catalog
	// entry.
	Known bool `json:"known"`
}

// LineTotal is this line's contribution to the cart total.
func (l EnrichedLine) LineTotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// enrich left-joins raw cart rows with catalog entries by product id,
// preserving server order.
func enrich(lines []api.CartLine, lookup func(string) (catalog.Entry, bool)) []EnrichedLine {
	enriched := make([]EnrichedLine, 0, len(lines))
	for _, line := range lines {
		enriched = append(enriched, enrichLine(line, lookup))
	}
	return enriched
}

func enrichLine(line api.CartLine, lookup func(string) (catalog.Entry, bool)) EnrichedLine {
	entry, ok := lookup(line.ProductID)
	if !ok {
		return EnrichedLine{
			CartLine:  line,
			Title:     fmt.Sprintf("Unknown item (%s)", line.ProductID),
			UnitPrice: line.UnitPriceSnapshot,
		}
	}
	return EnrichedLine{
		CartLine:  line,
		Title:     entry.Title,
		Author:    entry.Author,
		Genre:     entry.Genre,
		UnitPrice: entry.UnitPrice,
		CoverRef:  entry.CoverRef,
		Featured:  entry.Featured,
		Known:     true,
	}
}

// cloneLines copies a replica. Lines are value types, so a shallow slice
// copy is a full snapshot.
func cloneLines(lines []EnrichedLine) []EnrichedLine {
	if lines == nil {
		return nil
	}
	return append([]EnrichedLine(nil), lines...)
}

// replicaTotal recomputes the cart total from the lines. The total is never
// stored - deriving it fresh on every read is what keeps it from drifting.
func replicaTotal(lines []EnrichedLine) float64 {
	var total float64
	for _, line := range lines {
		total += line.LineTotal()
	}
	return total
}
