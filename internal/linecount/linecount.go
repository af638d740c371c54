// Package linecount counts lines in C and C++ project trees, split into
// headers and sources.
package linecount

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotDir is returned when the root is not a directory.
var ErrNotDir = errors.New("linecount: not a directory")

// Kind classifies a counted file.
type Kind int

const (
	Header Kind = iota
	Source
)

func (k Kind) String() string {
	if k == Header {
		return "header"
	}
	return "source"
}

var extensions = map[string]Kind{
	".h":   Header,
	".hpp": Header,
	".tpp": Header,
	".cpp": Source,
	".cc":  Source,
	".cxx": Source,
}

var ignoredDirs = map[string]bool{
	".git":    true,
	"build":   true,
	".idea":   true,
	".vscode": true,
}

// File is one counted file.
type File struct {
	Path  string // relative to the root
	Name  string
	Kind  Kind
	Lines int
}

// Result holds the per-kind files and totals.
type Result struct {
	Root         string
	Headers      []File
	Sources      []File
	HeaderLines  int
	SourceLines  int
	SkippedFiles int
}

// Total returns the number of lines across both kinds.
func (r *Result) Total() int { return r.HeaderLines + r.SourceLines }

// Ignored reports whether a directory name is excluded from the walk.
func Ignored(name string) bool {
	lower := strings.ToLower(name)
	return ignoredDirs[lower] || strings.Contains(lower, "cmake")
}

// Count walks root and counts the lines of every header and source file
// outside ignored directories. Unreadable files are skipped and counted
// in SkippedFiles.
func Count(root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDir, root)
	}

	res := &Result{Root: root}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if path != root && Ignored(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		kind, ok := extensions[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		lines, err := countFile(path)
		if err != nil {
			res.SkippedFiles++
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		f := File{Path: rel, Name: d.Name(), Kind: kind, Lines: lines}
		if kind == Header {
			res.Headers = append(res.Headers, f)
			res.HeaderLines += lines
		} else {
			res.Sources = append(res.Sources, f)
			res.SourceLines += lines
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byPath := func(files []File) {
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	}
	byPath(res.Headers)
	byPath(res.Sources)
	return res, nil
}

// countFile counts lines the way getline does: a final line without a
// trailing newline still counts.
func countFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return countLines(f)
}

func countLines(r io.Reader) (int, error) {
	br := bufio.NewReaderSize(r, 32*1024)
	var (
		n       int
		partial bool
	)
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 {
			partial = chunk[len(chunk)-1] != '\n'
			if !partial {
				n++
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF):
			if partial {
				n++
			}
			return n, nil
		default:
			return 0, err
		}
	}
}
