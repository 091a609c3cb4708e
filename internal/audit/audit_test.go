//nolint:testpackage // White-box tests require access to unexported identifiers in this package.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/marginalia/internal/config"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func footnoted(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString("Paragraph with a note.[^n")
		b.WriteString(strings.Repeat("x", i))
		b.WriteString("]\n\n")
	}
	for i := 1; i <= n; i++ {
		b.WriteString("[^n" + strings.Repeat("x", i) + "]: note\n\n")
	}
	return b.String()
}

func TestStreamDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "# A\n")
	writeFile(t, filepath.Join(root, "sub", "b.MARKDOWN"), "# B\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "nope")
	writeFile(t, filepath.Join(root, "node_modules", "c.md"), "# C\n")

	var got []string
	for p := range streamDocuments(context.Background(), root) {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		got = append(got, rel)
	}
	assert.ElementsMatch(t, []string{"a.md", filepath.Join("sub", "b.MARKDOWN")}, got)
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "short.md"), footnoted(3))
	writeFile(t, filepath.Join(root, "plain.md"), "# Title\n\nNo markers here.\n")

	var seen int
	res, err := New(config.Terminal(), 24).WithProgress(func(FileReport) { seen++ }).Run(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, 2, seen)

	plain, short := res.Files[0], res.Files[1]
	assert.Equal(t, filepath.Join(root, "plain.md"), plain.Path)
	assert.Zero(t, plain.Markers)
	assert.Nil(t, plain.ByKind)

	assert.Equal(t, 3, short.Markers)
	assert.Equal(t, map[string]int{"footnote": 3}, short.ByKind)
	assert.True(t, short.Compressed, "a document shorter than the viewport has no scroll range")
	assert.Equal(t, 3, res.Markers)
	assert.Equal(t, 1, res.Compressed)
	assert.Zero(t, res.Failed)
}

func TestRun_Canceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "# A\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(config.Terminal(), 24).Run(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrint(t *testing.T) {
	res := &Result{
		Root: "/docs",
		Files: []FileReport{
			{Path: "/docs/a.md", Markers: 2, Rows: 40, Spacing: 4},
			{Path: "/docs/b.md", Markers: 9, Rows: 12, Spacing: 0, Compressed: true},
			{Path: "/docs/c.md", Error: "document too large"},
		},
		Markers:    11,
		Compressed: 1,
		Failed:     1,
	}

	var text bytes.Buffer
	require.NoError(t, Print(&text, res, false))
	out := text.String()
	assert.Contains(t, out, "Documents: 3, markers: 11, compressed: 1, failed: 1")
	assert.Contains(t, out, "! /docs/b.md")
	assert.Contains(t, out, "✗ /docs/c.md: document too large")

	var js bytes.Buffer
	require.NoError(t, Print(&js, res, true))
	var decoded Result
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Len(t, decoded.Files, 3)
	assert.True(t, decoded.Files[1].Compressed)
}
