package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTool(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestEncodeDecode(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "value.jsonc")
	bin := filepath.Join(dir, "value.bin")
	require.NoError(t, os.WriteFile(in, []byte(`{
	// comments and trailing commas are accepted
	"a": 1,
	"b": [true, "x", 2.5, null,],
	/* nested */
	"c": {"d": ""},
}`), 0o644))

	_, err := runTool(t, "", "encode", "--in", in, "--out", bin)
	require.NoError(t, err)

	data, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 0, 0, 0, 2}, data[:5])

	out, err := runTool(t, "", "decode", "-i", bin)
	require.NoError(t, err)
	assert.Equal(t, `Object #0 {
  "a": 1
  "b": Array #1 (length 4) [
    0: true
    1: "x"
    2: 2.5
    3: null
  ]
  "c": Object #2 {
    "d": ""
  }
}
`, out)
}

func TestStdinStdout(t *testing.T) {
	encoded, err := runTool(t, `[1, 1]`, "encode")
	require.NoError(t, err)
	assert.Equal(t, string([]byte{4, 0, 0, 0, 1, 2, 0, 0, 0, 0, 0, 0, 0, 7, 1, 0, 0, 0, 7, 0xFF, 0xFF, 0xFF, 0xFF}), encoded)

	out, err := runTool(t, encoded, "decode")
	require.NoError(t, err)
	assert.Equal(t, "Array #0 (length 2) [\n  0: 1\n  1: 1\n]\n", out)
}

func TestAlign(t *testing.T) {
	encoded, err := runTool(t, `"hi"`, "encode", "--align", "16")
	require.NoError(t, err)
	assert.Len(t, encoded, 16)

	out, err := runTool(t, encoded, "decode")
	require.NoError(t, err)
	assert.Equal(t, "\"hi\"\n", out)

	_, err = runTool(t, `"hi"`, "encode", "--align", "3")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	encoded, err := runTool(t, `"hi"`, "encode")
	require.NoError(t, err)

	out, err := runTool(t, encoded, "inspect")
	require.NoError(t, err)
	assert.Equal(t, "version: 4 (current 4)\nsize:    13 bytes\nroot:    String\nstring:  \"hi\"\n", out)

	_, err = runTool(t, "\x04", "inspect")
	assert.Error(t, err)
}

func TestConfigFlag(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "clone.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("max_depth = 2\n"), 0o644))

	_, err := runTool(t, `[[[1]]]`, "encode", "--config", cfg)
	assert.NoError(t, err)
	_, err = runTool(t, `[[[[1]]]]`, "encode", "--config", cfg)
	assert.ErrorContains(t, err, "nesting depth")

	_, err = runTool(t, `1`, "encode", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestVerboseLogger(t *testing.T) {
	log, err := newLogger(false, "debug")
	require.NoError(t, err)
	assert.NotNil(t, log)

	log, err = newLogger(true, "warn")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(-1))

	_, err = newLogger(true, "loud")
	assert.Error(t, err)
}

func TestUsageAndErrors(t *testing.T) {
	out, err := runTool(t, "", "--help")
	require.NoError(t, err)
	for _, c := range commands {
		assert.Contains(t, out, c.name)
	}

	out, err = runTool(t, "", "encode", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--align")

	_, err = runTool(t, "", "frobnicate")
	assert.ErrorContains(t, err, `unknown command "frobnicate"`)

	_, err = runTool(t, "", "decode", "extra")
	assert.ErrorContains(t, err, "unexpected argument")

	_, err = runTool(t, `{"a": }`, "encode")
	assert.Error(t, err)

	_, err = runTool(t, `1 2`, "encode")
	assert.Error(t, err)

	_, err = runTool(t, "", "decode")
	assert.Error(t, err)
}
