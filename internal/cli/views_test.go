package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mviana-dev/sebo/internal/view"
)

func newViewCommand(t *testing.T, flags *viewFlags, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "list", RunE: func(*cobra.Command, []string) error { return nil }}
	flags.register(cmd)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return cmd
}

func writeViewsFile(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "views.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestViewFlagsResolveBareFlags(t *testing.T) {
	flags := &viewFlags{}
	cmd := newViewCommand(t, flags, "-q", "dune", "--featured", "--refine", "price-desc")

	cfg, err := flags.resolve(cmd, "")
	require.NoError(t, err)

	assert.Equal(t, "dune", cfg.TextQuery)
	require.NotNil(t, cfg.FeaturedOnly)
	assert.True(t, *cfg.FeaturedOnly)
	assert.Equal(t, view.SortPriceDesc, cfg.Refine)
}

func TestViewFlagsResolveNoFlagsIsIdentity(t *testing.T) {
	flags := &viewFlags{}
	cmd := newViewCommand(t, flags)

	cfg, err := flags.resolve(cmd, "")
	require.NoError(t, err)
	assert.True(t, cfg.IsZero())
}

func TestViewFlagsSavedViewAsBase(t *testing.T) {
	path := writeViewsFile(t, `views: cheap: {band: "under25", featuredOnly: true}`)

	flags := &viewFlags{}
	cmd := newViewCommand(t, flags, "--view", "cheap")

	cfg, err := flags.resolve(cmd, path)
	require.NoError(t, err)
	assert.Equal(t, view.BandUnder25, cfg.Refine)
	require.NotNil(t, cfg.FeaturedOnly)
	assert.True(t, *cfg.FeaturedOnly)
}

func TestViewFlagsExplicitFlagOverridesSavedView(t *testing.T) {
	path := writeViewsFile(t, `views: cheap: {band: "under25", query: "dune"}`)

	flags := &viewFlags{}
	cmd := newViewCommand(t, flags, "--view", "cheap", "--refine", "price-asc")

	cfg, err := flags.resolve(cmd, path)
	require.NoError(t, err)
	// The flag wins where set; the saved view carries the rest.
	assert.Equal(t, view.SortPriceAsc, cfg.Refine)
	assert.Equal(t, "dune", cfg.TextQuery)
}

func TestViewFlagsUnknownSavedView(t *testing.T) {
	path := writeViewsFile(t, `views: cheap: {band: "under25"}`)

	flags := &viewFlags{}
	cmd := newViewCommand(t, flags, "--view", "fancy")

	_, err := flags.resolve(cmd, path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestViewFlagsBadRefine(t *testing.T) {
	flags := &viewFlags{}
	cmd := newViewCommand(t, flags, "--refine", "cheapest")

	_, err := flags.resolve(cmd, "")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootRejectsUnknownFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "whoami"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
