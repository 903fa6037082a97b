package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"gugu/lib/htmlutil"
	"gugu/lib/quasijson"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Page is one decoded page: its raw rows, the records mapped from them and
// the continuation metadata found in the same body.
type Page struct {
	Rows    [][]string
	Records []Record

	TotalPages int
	HasMore    bool
	Cursor     string
	// NextPage is only meaningful when HasNext is set.
	NextPage int
	HasNext  bool
	// Echo is the page index the body claims to be, see
	// QuasiJSONOptions.PagePath.
	Echo    int
	HasEcho bool
}

func (p Page) Empty() bool {
	return len(p.Rows) == 0
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

func transcode(encoding Encoding, body []byte) ([]byte, error) {
	switch encoding {
	case "", EncodingUTF8:
		return body, nil
	case EncodingGBK:
		out, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
		if err != nil {
			return nil, malformed("gbk: %v", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown encoding %q", ErrInvalidParameter, encoding)
}

// Decode turns a response body into a Page according to spec.Shape. It does
// not map rows to records.
func Decode(ctx context.Context, spec DatasetSpec, body []byte) (Page, error) {
	body, err := transcode(spec.Encoding, body)
	if err != nil {
		return Page{}, err
	}

	var page Page
	switch spec.Shape {
	case ShapeQuasiJSON:
		page, err = decodeQuasiJSON(spec.QuasiJSON, string(body))
	case ShapeHTMLTable:
		page, err = decodeHTML(ctx, spec.HTML, body)
	case ShapeDelimited:
		page, err = decodeDelimited(spec.Delimited, string(body))
	default:
		return Page{}, fmt.Errorf("%w: unknown %s", ErrInvalidParameter, spec.Shape)
	}
	if err != nil {
		return Page{}, err
	}

	width := len(spec.Columns) + len(spec.Drop)
	for i, row := range page.Rows {
		if len(row) >= width {
			continue
		}
		if !spec.Ragged {
			return Page{}, malformed("row %d has %d cells, expected at least %d", i, len(row), width)
		}
		padded := make([]string, width)
		copy(padded, row)
		page.Rows[i] = padded
	}
	return page, nil
}

func envelope(text string, opts QuasiJSONOptions) (string, error) {
	if opts.Envelope != nil {
		match := opts.Envelope.FindStringSubmatch(text)
		if len(match) < 2 {
			return "", malformed("envelope %s not found", opts.Envelope)
		}
		text = match[1]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, opts.TrimPrefix)
	if opts.Split != "" {
		_, after, found := strings.Cut(text, opts.Split)
		if !found {
			return "", malformed("separator %q not found", opts.Split)
		}
		text = after
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")
	return strings.TrimSpace(text), nil
}

func cellText(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return strings.TrimSpace(r.Str)
	}
	return r.String()
}

func decodeQuasiJSON(opts QuasiJSONOptions, text string) (Page, error) {
	if opts.EndSentinel != "" && strings.TrimSpace(text) == opts.EndSentinel {
		return Page{}, nil
	}
	payload, err := envelope(text, opts)
	if err != nil {
		return Page{}, err
	}
	if payload == "" || (opts.EndSentinel != "" && payload == opts.EndSentinel) {
		return Page{}, nil
	}

	normalized, err := quasijson.Normalize(payload)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	root := gjson.Parse(normalized)
	rows := root
	if opts.RowsPath != "" {
		rows = root.Get(opts.RowsPath)
	}
	if !rows.Exists() || rows.Type == gjson.Null {
		return Page{}, nil
	}
	if !rows.IsArray() {
		return Page{}, malformed("rows at %q are not an array", opts.RowsPath)
	}

	var page Page
	for i, element := range rows.Array() {
		var row []string
		switch {
		case element.IsArray():
			for _, cell := range element.Array() {
				row = append(row, cellText(cell))
			}
		case element.IsObject():
			if len(opts.Fields) == 0 {
				return Page{}, malformed("row %d is an object but no fields are mapped", i)
			}
			if opts.CellPath != "" {
				element = element.Get(opts.CellPath)
				if !element.IsObject() {
					return Page{}, malformed("row %d has no object at %q", i, opts.CellPath)
				}
			}
			for _, field := range opts.Fields {
				row = append(row, cellText(element.Get(gjson.Escape(field))))
			}
		case element.Type == gjson.String && opts.SplitStrings != "":
			for _, cell := range strings.Split(element.Str, opts.SplitStrings) {
				row = append(row, strings.TrimSpace(cell))
			}
		default:
			return Page{}, malformed("row %d is neither an array nor an object", i)
		}
		page.Rows = append(page.Rows, row)
	}

	if opts.TotalPagesPath != "" {
		page.TotalPages = int(root.Get(opts.TotalPagesPath).Int())
	}
	if opts.HasMorePath != "" {
		page.HasMore = root.Get(opts.HasMorePath).Bool()
	}
	if opts.CursorPath != "" {
		page.Cursor = root.Get(opts.CursorPath).String()
	}
	if opts.PagePath != "" {
		echo := root.Get(opts.PagePath)
		if echo.Exists() {
			page.Echo, page.HasEcho = int(echo.Int()), true
		}
	}
	return page, nil
}

func decodeHTML(ctx context.Context, opts HTMLOptions, body []byte) (Page, error) {
	rows, err := htmlutil.ExtractTable(ctx, body, htmlutil.TableOptions{
		Selector: opts.Selector,
		SkipRows: opts.SkipRows,
		Strip:    opts.Strip,
	})
	if err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	page := Page{Rows: rows}

	if opts.NextSelector == "" && opts.PageCountSelector == "" && opts.NextText == "" {
		return page, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if opts.NextSelector != "" {
		next := doc.Find(opts.NextSelector).Last()
		if next.Length() > 0 {
			text := next.Text()
			if opts.NextAttr != "" {
				text = next.AttrOr(opts.NextAttr, "")
			}
			page.NextPage, page.HasNext = htmlutil.FirstInt(text)
		}
	}
	if opts.PageCountSelector != "" {
		page.TotalPages, _ = htmlutil.LargestInt(doc.Find(opts.PageCountSelector))
	}
	if opts.NextText != "" {
		scope := doc.Selection
		if opts.NextTextSelector != "" {
			scope = doc.Find(opts.NextTextSelector)
		}
		page.HasMore = strings.Contains(scope.Text(), opts.NextText)
	}
	return page, nil
}

func delimitedPayload(opts DelimitedOptions, text string) (string, error) {
	if opts.Envelope != nil {
		match := opts.Envelope.FindStringSubmatch(text)
		if len(match) < 2 {
			return "", malformed("envelope %s not found", opts.Envelope)
		}
		text = match[1]
	}
	if opts.Trim > 0 {
		if len(text) < opts.Trim*2 {
			return "", nil
		}
		text = text[opts.Trim : len(text)-opts.Trim]
	}
	if len(opts.Replace) > 0 {
		text = strings.NewReplacer(opts.Replace...).Replace(text)
	}
	return text, nil
}

func decodeDelimited(opts DelimitedOptions, text string) (Page, error) {
	if len(strings.TrimSpace(text)) < opts.MinBodyLen {
		return Page{}, nil
	}
	payload, err := delimitedPayload(opts, text)
	if err != nil {
		return Page{}, err
	}

	rowSep := opts.RowSep
	if rowSep == "" {
		rowSep = "\n"
	}
	fieldSep := opts.FieldSep
	if fieldSep == "" {
		fieldSep = ","
	}

	var rows [][]string
	if opts.Quoted {
		rows, err = readQuoted(payload, fieldSep)
		if err != nil {
			return Page{}, err
		}
	} else {
		for _, line := range strings.Split(payload, rowSep) {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			cells := strings.Split(line, fieldSep)
			for i := range cells {
				cells[i] = strings.TrimSpace(cells[i])
			}
			rows = append(rows, cells)
		}
	}

	if opts.SkipRows > 0 {
		if opts.SkipRows >= len(rows) {
			return Page{}, nil
		}
		rows = rows[opts.SkipRows:]
	}
	return Page{Rows: rows}, nil
}

func readQuoted(payload, fieldSep string) ([][]string, error) {
	if len([]rune(fieldSep)) != 1 {
		return nil, fmt.Errorf("%w: quoted field separator must be one character, got %q", ErrInvalidParameter, fieldSep)
	}
	reader := csv.NewReader(strings.NewReader(payload))
	reader.Comma = []rune(fieldSep)[0]
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed("csv: %v", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}
