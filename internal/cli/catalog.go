package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mviana-dev/sebo/internal/catalog"
	"github.com/mviana-dev/sebo/internal/view"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(opts *RootOptions) *cobra.Command {
	flags := &viewFlags{}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			formatter := newFormatter(cmd, opts)

			cfg, err := flags.resolve(cmd, app.Config.ViewsPath)
			if err != nil {
				return err
			}

			entries, err := app.Catalog.Refresh(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "fetch catalog", err)
			}

			lines := view.Apply(view.FromCatalog(entries), cfg)
			return formatter.Success(catalogPayload(lines, entries), func(w io.Writer) {
				renderCatalog(w, lines)
			})
		},
	}

	flags.register(cmd)
	return cmd
}

type catalogItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Author    string  `json:"author,omitempty"`
	Genre     string  `json:"genre,omitempty"`
	UnitPrice float64 `json:"unitPrice"`
	Featured  bool    `json:"featured"`
}

type catalogList struct {
	Items []catalogItem `json:"items"`
	Count int           `json:"count"`
	Of    int           `json:"of"`
}

func catalogPayload(lines []view.Line, all []catalog.Entry) catalogList {
	items := make([]catalogItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, catalogItem{
			ID:        line.ProductID,
			Title:     line.Title,
			Author:    line.Author,
			Genre:     line.Genre,
			UnitPrice: line.UnitPrice,
			Featured:  line.Featured,
		})
	}
	return catalogList{Items: items, Count: len(items), Of: len(all)}
}

func renderCatalog(w io.Writer, lines []view.Line) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "No catalog items match.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tGENRE\tPRICE")
	for _, line := range lines {
		marker := ""
		if line.Featured {
			marker = " *"
		}
		fmt.Fprintf(tw, "%s\t%s%s\t%s\t%s\t%.2f\n",
			line.ProductID, line.Title, marker, line.Author, line.Genre, line.UnitPrice)
	}
	tw.Flush()
}
