// Package report formats batch results for humans and machines.
//
// Four renderings are supported:
//
//   - [Table]: a bordered terminal table (lipgloss)
//   - [Markdown]: a pipe table with '<' and '>' escaped as HTML entities
//   - [JSON]: an array of objects keyed by the lower-cased column headers
//   - [Minimum]: the single oldest known version, or "unknown"
//
// Columns are Distro and Version, with Release inserted between them when
// the caller asks for it.
package report

import (
	"cmp"
	"encoding/json"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/decrepit/pkg/pipeline"
	"github.com/matzehuels/decrepit/pkg/source"
)

// Unknown is printed when no source reported a usable version.
const Unknown = "unknown"

// Format selects a rendering for [Write].
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Headers returns the column headers for a results table.
func Headers(showRelease bool) []string {
	if showRelease {
		return []string{"Distro", "Release", "Version"}
	}
	return []string{"Distro", "Version"}
}

// Rows returns one row per result, in result order, aligned with Headers.
func Rows(results []pipeline.Result, showRelease bool) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if showRelease {
			rows = append(rows, []string{r.Source, r.Release, r.Version.String()})
		} else {
			rows = append(rows, []string{r.Source, r.Version.String()})
		}
	}
	return rows
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Table renders results as a bordered terminal table.
func Table(results []pipeline.Result, showRelease bool) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(Headers(showRelease)...).
		Rows(Rows(results, showRelease)...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

var markdownEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// Markdown renders results as a Markdown pipe table.
func Markdown(results []pipeline.Result, showRelease bool) string {
	rows := Rows(results, showRelease)
	for _, row := range rows {
		for i, cell := range row {
			row[i] = markdownEscaper.Replace(cell)
		}
	}
	t := table.New().
		Border(lipgloss.MarkdownBorder()).
		BorderTop(false).
		BorderBottom(false).
		Headers(Headers(showRelease)...).
		Rows(rows...).
		StyleFunc(func(int, int) lipgloss.Style { return cellStyle })
	return t.Render()
}

// Objects converts results into JSON-ready objects keyed by the lower-cased
// column headers.
func Objects(results []pipeline.Result, showRelease bool) []map[string]string {
	headers := Headers(showRelease)
	out := make([]map[string]string, 0, len(results))
	for _, row := range Rows(results, showRelease) {
		obj := make(map[string]string, len(headers))
		for i, h := range headers {
			obj[strings.ToLower(h)] = row[i]
		}
		out = append(out, obj)
	}
	return out
}

// JSON renders results as a JSON array. Object keys are sorted.
func JSON(results []pipeline.Result, showRelease bool) ([]byte, error) {
	return json.Marshal(Objects(results, showRelease))
}

// Minimum returns the oldest known version in the report, or Unknown.
func Minimum(r *pipeline.Report) string {
	if v, ok := r.Minimum(); ok {
		return v.String()
	}
	return Unknown
}

// Write renders the full result table in the given format to w, followed by
// a newline.
func Write(w io.Writer, format Format, results []pipeline.Result, showRelease bool) error {
	var out string
	switch format {
	case FormatJSON:
		data, err := JSON(results, showRelease)
		if err != nil {
			return err
		}
		out = string(data)
	case FormatMarkdown:
		out = Markdown(results, showRelease)
	default:
		out = Table(results, showRelease)
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}

// List formats a release map as "name:release" items ordered by release,
// then name. Rolling releases are shown as the bare name.
func List(releases map[string]string) string {
	names := make([]string, 0, len(releases))
	for name := range releases {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(releases[a], releases[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	items := make([]string, len(names))
	for i, name := range names {
		if rel := releases[name]; rel != source.Rolling {
			items[i] = name + ":" + rel
		} else {
			items[i] = name
		}
	}
	return strings.Join(items, ", ")
}
