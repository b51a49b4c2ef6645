package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitErrorMessage(t *testing.T) {
	assert.Equal(t, "aborted", NewExitError(ExitFailure, "aborted").Error())

	err := WrapExitError(ExitFailure, "load cart", errors.New("boom"))
	assert.Equal(t, "load cart: boom", err.Error())
	assert.Equal(t, "boom", errors.Unwrap(err).Error())
}

func TestFormatterSuccessText(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Success(map[string]int{"n": 1}, func(w io.Writer) {
		fmt.Fprintln(w, "one item")
	}))

	assert.Equal(t, "one item\n", buf.String())
}

func TestFormatterSuccessJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Format: "json", Writer: &buf}
	require.True(t, f.JSON())

	require.NoError(t, f.Success(map[string]int{"count": 3}, func(io.Writer) {
		t.Fatal("render must not run in json mode")
	}))

	var env struct {
		Status string         `json:"status"`
		Data   map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "ok", env.Status)
	assert.Equal(t, 3, env.Data["count"])
}

func TestFormatterErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Error("SESSION_EXPIRED", "sign in again"))

	var env struct {
		Status string `json:"status"`
		Error  struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "SESSION_EXPIRED", env.Error.Code)
	assert.Equal(t, "sign in again", env.Error.Message)
}

func TestFormatterErrorText(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Error("CONNECTIVITY_FAILURE", "server unreachable"))
	assert.Equal(t, "Error [CONNECTIVITY_FAILURE]: server unreachable\n", buf.String())
}

func TestVerboseLog(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &Formatter{Format: "text", Writer: &out, ErrWriter: &errOut, Verbose: true}

	f.VerboseLog("loaded %d lines", 4)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 4 lines\n", errOut.String())

	quiet := &Formatter{Format: "text", Writer: &out, ErrWriter: &errOut}
	quiet.VerboseLog("hidden")
	assert.Equal(t, "loaded 4 lines\n", errOut.String())
}
