// Package viewspec compiles named view definitions written in CUE into
// pipeline configurations.
//
// A views file declares saved views under a top-level "views" struct:
//
//	views: {
//		cheap: {band: "under25"}
//		gifts: {query: "1984", featuredOnly: true, sort: "price-asc"}
//	}
//
// A view may select a price band or a price sort, never both - they are
// alternative settings of the same pipeline step.
package viewspec

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/mviana-dev/sebo/internal/view"
)

// CompileError is a view-file problem with its source position.
type CompileError struct {
	View    string
	Field   string
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	where := ""
	if e.Pos.IsValid() {
		where = fmt.Sprintf(" (%s)", e.Pos)
	}
	if e.View != "" {
		return fmt.Sprintf("view %q: %s: %s%s", e.View, e.Field, e.Message, where)
	}
	return fmt.Sprintf("%s: %s%s", e.Field, e.Message, where)
}

// Load reads and compiles a views file into named pipeline configs.
func Load(path string) (map[string]view.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read views file: %w", err)
	}
	return Compile(data, path)
}

// Compile parses CUE source into named pipeline configs. Uses the CUE SDK's
// Go API directly, not a CLI subprocess.
func Compile(src []byte, filename string) (map[string]view.Config, error) {
	cuectx := cuecontext.New()
	root := cuectx.CompileBytes(src, cue.Filename(filename))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("parse views file: %w", err)
	}

	viewsVal := root.LookupPath(cue.ParsePath("views"))
	if !viewsVal.Exists() {
		return nil, &CompileError{
			Field:   "views",
			Message: "top-level views struct is required",
			Pos:     root.Pos(),
		}
	}

	iter, err := viewsVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("read views struct: %w", err)
	}

	views := make(map[string]view.Config)
	for iter.Next() {
		name := iter.Selector().String()
		cfg, err := compileView(name, iter.Value())
		if err != nil {
			return nil, err
		}
		views[name] = cfg
	}
	return views, nil
}

// compileView parses one named view struct.
func compileView(name string, v cue.Value) (view.Config, error) {
	var cfg view.Config

	if qv := v.LookupPath(cue.ParsePath("query")); qv.Exists() {
		query, err := qv.String()
		if err != nil {
			return cfg, &CompileError{View: name, Field: "query", Message: "must be a string", Pos: qv.Pos()}
		}
		cfg.TextQuery = query
	}

	if fv := v.LookupPath(cue.ParsePath("featuredOnly")); fv.Exists() {
		featured, err := fv.Bool()
		if err != nil {
			return cfg, &CompileError{View: name, Field: "featuredOnly", Message: "must be a bool", Pos: fv.Pos()}
		}
		cfg.FeaturedOnly = &featured
	}

	bandVal := v.LookupPath(cue.ParsePath("band"))
	sortVal := v.LookupPath(cue.ParsePath("sort"))
	if bandVal.Exists() && sortVal.Exists() {
		return cfg, &CompileError{
			View:    name,
			Field:   "band",
			Message: "band and sort are mutually exclusive",
			Pos:     bandVal.Pos(),
		}
	}

	switch {
	case bandVal.Exists():
		raw, err := bandVal.String()
		if err != nil {
			return cfg, &CompileError{View: name, Field: "band", Message: "must be a string", Pos: bandVal.Pos()}
		}
		refinement, err := view.ParseRefinement(raw)
		if err != nil || !refinement.IsBand() {
			return cfg, &CompileError{
				View:    name,
				Field:   "band",
				Message: fmt.Sprintf("%q is not a price band (under25, 25to50, over50)", raw),
				Pos:     bandVal.Pos(),
			}
		}
		cfg.Refine = refinement

	case sortVal.Exists():
		raw, err := sortVal.String()
		if err != nil {
			return cfg, &CompileError{View: name, Field: "sort", Message: "must be a string", Pos: sortVal.Pos()}
		}
		refinement, err := view.ParseRefinement(raw)
		if err != nil || !refinement.IsSort() {
			return cfg, &CompileError{
				View:    name,
				Field:   "sort",
				Message: fmt.Sprintf("%q is not a sort mode (price-asc, price-desc)", raw),
				Pos:     sortVal.Pos(),
			}
		}
		cfg.Refine = refinement
	}

	return cfg, nil
}
