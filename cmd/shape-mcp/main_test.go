package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/shape-tools-mcp/internal/detection"
	"github.com/ironsheep/shape-tools-mcp/internal/engine"
)

// writeSquare saves a white 100x80 PNG with a black square and returns its path.
func writeSquare(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			if x >= 25 && x < 65 && y >= 20 && y < 60 {
				c = color.NRGBA{0, 0, 0, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "square.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// runCLI runs the command with a clean environment and captures its output.
func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv("SHAPE_MCP_CONFIG", "")
	t.Setenv("SHAPE_MCP_LOG_LEVEL", "")
	var out, errOut bytes.Buffer
	code = run(append([]string{"shape-mcp"}, args...), strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunUsageErrors(t *testing.T) {
	img := writeSquare(t)
	out := filepath.Join(t.TempDir(), "out.png")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"detect with annotate", []string{"--detect", img, "--annotate", img, "--out", out}, "mutually exclusive"},
		{"annotate without out", []string{"--annotate", img}, "requires --out"},
		{"out without annotate", []string{"--out", out}, "only valid with --annotate"},
		{"unknown flag", []string{"--bogus"}, "unknown arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, "", tt.args...)

			assert.Equal(t, 2, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tt.want)
			assert.Contains(t, stderr, "usage:")
			assert.NoFileExists(t, out)
		})
	}
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "--version")

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "shape-tools-mcp "+engine.Version())
	assert.Contains(t, stdout, "Git commit: "+GitCommit)
}

func TestRunDetect(t *testing.T) {
	code, stdout, stderr := runCLI(t, "", "--detect", writeSquare(t))

	require.Equal(t, 0, code, "stderr: %s", stderr)
	result, err := detection.ParseText(strings.TrimSpace(stdout))
	require.NoError(t, err)
	assert.Equal(t, 100, result.Width)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, detection.KindRectangle, result.Detections[0].Kind)
}

func TestRunDetectFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
		kind string
	}{
		{"missing image", []string{"--detect", filepath.Join(t.TempDir(), "nope.png")}, engine.KindInvalidImage},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "nope.json"), "--detect", writeSquare(t)}, engine.KindInitialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, "", tt.args...)

			assert.Equal(t, 1, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tt.kind)
		})
	}
}

func TestRunAnnotate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "annotated.png")

	code, stdout, stderr := runCLI(t, "", "--annotate", writeSquare(t), "--out", out)

	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Wrote 1 detections")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 80, cfg.Height)
}

func TestRunServe(t *testing.T) {
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"engine_status"}}`,
	}, "\n")

	code, stdout, _ := runCLI(t, in)

	require.Equal(t, 0, code)
	dec := json.NewDecoder(strings.NewReader(stdout))
	var ids []float64
	for dec.More() {
		var resp struct {
			ID    float64         `json:"id"`
			Error json.RawMessage `json:"error"`
		}
		require.NoError(t, dec.Decode(&resp))
		assert.Empty(t, resp.Error)
		ids = append(ids, resp.ID)
	}
	assert.Equal(t, []float64{1, 2}, ids)
}
