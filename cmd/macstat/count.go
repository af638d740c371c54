package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"macstat/internal/console"
	"macstat/internal/linecount"
)

func (a *app) countCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count <dir>",
		Short: "Count lines in C/C++ headers and sources under dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := linecount.Count(args[0])
			if err != nil {
				return fmt.Errorf("invalid path: %w", err)
			}
			writeCountTable(a.stdout, res)
			return nil
		},
	}
}

// writeCountTable prints headers and sources side by side with totals.
func writeCountTable(w io.Writer, res *linecount.Result) {
	nameWidth := len("Headers")
	for _, files := range [][]linecount.File{res.Headers, res.Sources} {
		for _, f := range files {
			nameWidth = max(nameWidth, console.VisibleWidth(f.Name))
		}
	}
	const countWidth = 8

	cell := func(name string, lines string) string {
		return console.PadRight(name, nameWidth) + " " + fmt.Sprintf("%*s", countWidth, lines)
	}
	row := func(left, right string) {
		fmt.Fprintf(w, "%s | %s\n", left, right)
	}
	sep := strings.Repeat("-", nameWidth+1+countWidth)

	row(cell("Headers", "Lines"), cell("Sources", "Lines"))
	row(sep, sep)
	rows := max(len(res.Headers), len(res.Sources))
	for i := 0; i < rows; i++ {
		left, right := cell("", ""), cell("", "")
		if i < len(res.Headers) {
			left = cell(res.Headers[i].Name, fmt.Sprint(res.Headers[i].Lines))
		}
		if i < len(res.Sources) {
			right = cell(res.Sources[i].Name, fmt.Sprint(res.Sources[i].Lines))
		}
		row(left, right)
	}
	row(sep, sep)
	row(cell("Total", fmt.Sprint(res.HeaderLines)), cell("Total", fmt.Sprint(res.SourceLines)))
	fmt.Fprintf(w, "\nTotal lines: %d\n", res.Total())
	if res.SkippedFiles > 0 {
		fmt.Fprintf(w, "Unreadable files skipped: %d\n", res.SkippedFiles)
	}
}
