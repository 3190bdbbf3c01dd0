package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError,
		GetExitCode(WrapExitError(ExitCommandError, "bad flag", nil)))
	assert.Equal(t, ExitFailure,
		GetExitCode(WrapExitError(ExitFailure, "request failed", errors.New("boom"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestExitError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := WrapExitError(ExitCommandError, "server unreachable", inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "server unreachable")
	assert.Contains(t, err.Error(), "connection refused")

	bare := WrapExitError(ExitFailure, "request failed", nil)
	assert.Equal(t, "request failed", bare.Error())
}

type summaryValue struct {
	Name string `json:"name"`
}

func (v summaryValue) Summary() string { return "summary: " + v.Name }

func TestOutputFormatter_Text(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Print(summaryValue{Name: "a"}))
	assert.Equal(t, "summary: a\n", buf.String())
}

func TestOutputFormatter_TextFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Print(map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n": 1}`, buf.String())
}

func TestOutputFormatter_JSONIgnoresSummary(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Print(summaryValue{Name: "a"}))
	assert.JSONEq(t, `{"name": "a"}`, buf.String())
}
