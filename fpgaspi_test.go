package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lautenbacher.net/fpgaspi/recipe"
)

const simConfig = `
Timing:
  ResetAssert: 0s
  ResetRelease: 0s
  PostWriteSettle: 0s
  PreCommandSettle: 0s
Simulator:
  Design: "%s"
Logging:
  Level: "ERROR"
`

func writeFile(t *testing.T, name, data string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func runApp(t *testing.T, design string, args ...string) (string, error) {
	t.Helper()
	conf := writeFile(t, "config.yml", strings.Replace(simConfig, "%s", design, 1))
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"fpgaspi", "--config", conf, "--sim"}, args...))
	return out.String(), err
}

func TestArithCommand(t *testing.T) {
	cases := map[string]string{
		"add": "1.1 + 2.3",
		"sub": "1.1 - 2.3",
		"mul": "1.1 * 2.3",
	}
	for op, name := range cases {
		out, err := runApp(t, "fpu", "arith", "--op", op)
		require.NoError(t, err, op)
		assert.Contains(t, out, name, op)
		assert.Contains(t, out, " ok", op)
	}
}

func TestArithCommand_UnsupportedOpcode(t *testing.T) {
	_, err := runApp(t, "fpu", "arith", "--op", "div")
	assert.ErrorIs(t, err, recipe.ErrUnsupportedOpcode)
}

func TestArithCommand_Mismatch(t *testing.T) {
	out, err := runApp(t, "gcd", "arith", "--op", "add")
	assert.ErrorIs(t, err, recipe.ErrMismatch)
	assert.Contains(t, out, "MISMATCH")
}

func TestGCDCommand(t *testing.T) {
	out, err := runApp(t, "gcd", "gcd", "--a", "48", "--b", "18")
	require.NoError(t, err)
	assert.Contains(t, out, "gcd(48, 18)")
	assert.Contains(t, out, "= 6 ")
}

func TestGCDCommand_Overflow(t *testing.T) {
	_, err := runApp(t, "gcd", "gcd", "--a", "4294967296")
	assert.ErrorContains(t, err, "32 bits")
}

func TestRunCommand_Trace(t *testing.T) {
	recipeFile := writeFile(t, "recipe.yml", "Steps:\n  - { Kind: arith, A: 1.5, B: 2.5, Op: mul }\n")
	out, err := runApp(t, "fpu", "--trace", "run", recipeFile)
	require.NoError(t, err)
	assert.Contains(t, out, "1.5 * 2.5")
	assert.Contains(t, out, "= 3.75")
	assert.Contains(t, out, "reset HIGH")
	assert.Contains(t, out, "xfer 82 00 00 00 03")
	assert.Equal(t, 4, strings.Count(out, "reset "), "one pulse before and one after the run")
}

func TestRunCommand_MissingFile(t *testing.T) {
	_, err := runApp(t, "fpu", "run")
	assert.ErrorContains(t, err, "no recipe file provided")
}
