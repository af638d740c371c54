package linecount

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCount(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "include/monitor.h", "#pragma once\nclass Monitor;\n")
	writeFile(t, root, "include/detail/impl.tpp", "template <class T>\nvoid f() {}\n\n")
	writeFile(t, root, "src/main.cpp", "int main() {\n  return 0;\n}")
	writeFile(t, root, "src/util.CC", "// one\n")
	writeFile(t, root, "src/notes.txt", "ignored\nignored\n")
	writeFile(t, root, "build/gen.cpp", "skipped\n")
	writeFile(t, root, "cmake-build-debug/x.h", "skipped\n")
	writeFile(t, root, "third/CMakeFiles/y.cpp", "skipped\n")
	writeFile(t, root, ".git/hooks/z.h", "skipped\n")

	res, err := Count(root)
	require.NoError(t, err)

	require.Len(t, res.Headers, 2)
	assert.Equal(t, filepath.Join("include", "detail", "impl.tpp"), res.Headers[0].Path)
	assert.Equal(t, 3, res.Headers[0].Lines)
	assert.Equal(t, "monitor.h", res.Headers[1].Name)
	assert.Equal(t, 2, res.Headers[1].Lines)

	require.Len(t, res.Sources, 2)
	assert.Equal(t, 3, res.Sources[0].Lines, "a final line without newline counts")
	assert.Equal(t, Source, res.Sources[1].Kind)

	assert.Equal(t, 5, res.HeaderLines)
	assert.Equal(t, 4, res.SourceLines)
	assert.Equal(t, 9, res.Total())
}

func TestCountErrors(t *testing.T) {
	_, err := Count(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(t.TempDir(), "a.cpp")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Count(file)
	assert.ErrorIs(t, err, ErrNotDir)
}

func TestIgnored(t *testing.T) {
	for _, name := range []string{".git", "build", "BUILD", ".idea", ".vscode", "cmake-build-release", "CMakeFiles"} {
		assert.True(t, Ignored(name), name)
	}
	for _, name := range []string{"src", "builder", "include"} {
		assert.False(t, Ignored(name), name)
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"\n", 1},
		{"a", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
		{strings.Repeat("x", 100_000) + "\n" + strings.Repeat("y", 50_000), 2},
	}
	for _, tc := range tests {
		got, err := countLines(strings.NewReader(tc.in))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}
