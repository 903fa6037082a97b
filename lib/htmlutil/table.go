package htmlutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrMalformed = errors.New("malformed html")

type TableOptions struct {
	// Selector matches the table(s) whose rows are collected. When empty
	// the whole body is treated as a bare sequence of rows.
	Selector string
	// SkipRows drops this many leading rows (embedded header rows).
	SkipRows int
	// Drop lists cell positions to remove from every row.
	Drop []int
	// Strip lists literal markup removed before parsing.
	Strip []string
}

// ExtractTable collects the cell text of every row under the table matched
// by opts.Selector. Rows are re-serialized inside a synthesized <table>
// before being parsed, some sources emit <tr> sequences with no parent
// table which the html5 parser would otherwise flatten.
//
// A selector matching nothing yields an empty result and no error.
func ExtractTable(ctx context.Context, body []byte, opts TableOptions) ([][]string, error) {
	_, span := tracer.Start(ctx, "ExtractTable")
	defer span.End()
	span.SetAttributes(attribute.String("selector", opts.Selector))

	for _, s := range opts.Strip {
		body = bytes.ReplaceAll(body, []byte(s), nil)
	}

	var wrapped strings.Builder
	wrapped.WriteString("<table>")
	if opts.Selector == "" {
		wrapped.Write(body)
	} else {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse document")
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		rows := doc.Find(opts.Selector).Find("tr")
		if rows.Length() == 0 {
			span.AddEvent("no rows matched")
			return nil, nil
		}
		for i := range rows.Nodes {
			fragment, err := goquery.OuterHtml(rows.Eq(i))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to render row")
				return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			wrapped.WriteString(fragment)
		}
	}
	wrapped.WriteString("</table>")

	table, err := goquery.NewDocumentFromReader(strings.NewReader(wrapped.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse synthesized table")
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var result [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td, th")
		if cells.Length() == 0 {
			return
		}
		row := make([]string, 0, cells.Length())
		for _, n := range cells.Nodes {
			row = append(row, CleanText(n))
		}
		result = append(result, row)
	})

	if opts.SkipRows > 0 {
		if opts.SkipRows >= len(result) {
			return nil, nil
		}
		result = result[opts.SkipRows:]
	}
	if len(opts.Drop) > 0 {
		for i, row := range result {
			result[i] = DropColumns(row, opts.Drop)
		}
	}

	span.SetAttributes(attribute.Int("rows", len(result)))
	return result, nil
}

// DropColumns returns row without the cells at the given positions,
// positions outside of the row are ignored.
func DropColumns(row []string, positions []int) []string {
	if len(positions) == 0 {
		return row
	}
	out := make([]string, 0, len(row))
	for i, cell := range row {
		if slices.Contains(positions, i) {
			continue
		}
		out = append(out, cell)
	}
	return out
}
