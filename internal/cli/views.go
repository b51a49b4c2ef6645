package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mviana-dev/sebo/internal/view"
	"github.com/mviana-dev/sebo/internal/viewspec"
)

// viewFlags are the shared filter/sort flags on listing commands.
type viewFlags struct {
	query    string
	featured bool
	refine   string
	saved    string
}

func (v *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&v.query, "query", "q", "", "filter by title, case-insensitive substring")
	cmd.Flags().BoolVar(&v.featured, "featured", false, "only featured items")
	cmd.Flags().StringVar(&v.refine, "refine", "", "price band (under25|25to50|over50) or sort (price-asc|price-desc)")
	cmd.Flags().StringVar(&v.saved, "view", "", "named view from the views file")
}

// resolve turns the flags into a pipeline config. A saved view is the base;
// explicit flags override its individual fields.
func (v *viewFlags) resolve(cmd *cobra.Command, viewsPath string) (view.Config, error) {
	var cfg view.Config

	if v.saved != "" {
		views, err := viewspec.Load(viewsPath)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "load views file", err)
		}
		saved, ok := views[v.saved]
		if !ok {
			return cfg, NewExitError(ExitCommandError,
				fmt.Sprintf("no view named %q in %s", v.saved, viewsPath))
		}
		cfg = saved
	}

	if cmd.Flags().Changed("query") {
		cfg.TextQuery = v.query
	}
	if cmd.Flags().Changed("featured") {
		featured := v.featured
		cfg.FeaturedOnly = &featured
	}
	if cmd.Flags().Changed("refine") {
		refinement, err := view.ParseRefinement(v.refine)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "parse --refine", err)
		}
		cfg.Refine = refinement
	}

	return cfg, nil
}
