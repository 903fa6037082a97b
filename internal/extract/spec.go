package extract

import (
	"fmt"
	"regexp"
	"time"
)

type Shape int

const (
	ShapeQuasiJSON Shape = iota + 1
	ShapeHTMLTable
	ShapeDelimited
)

func (s Shape) String() string {
	switch s {
	case ShapeQuasiJSON:
		return "quasi-json"
	case ShapeHTMLTable:
		return "html-table"
	case ShapeDelimited:
		return "delimited"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

type Encoding string

const (
	EncodingUTF8 Encoding = "utf-8"
	EncodingGBK  Encoding = "gbk"
)

type PaginationStyle int

const (
	PaginateNone PaginationStyle = iota
	// PaginateCounted continues while fewer pages than the decoded total
	// page count have been fetched.
	PaginateCounted
	// PaginateTokenized follows a decoded cursor when there is one, falls
	// back to a total page count, then to the has-more flag.
	PaginateTokenized
	// PaginateNextLink follows the page index found in the next page
	// control of the markup.
	PaginateNextLink
	// PaginateExhaust requests sequential page indices until a page decodes
	// empty.
	PaginateExhaust
)

func (p PaginationStyle) String() string {
	switch p {
	case PaginateNone:
		return "none"
	case PaginateCounted:
		return "counted"
	case PaginateTokenized:
		return "tokenized"
	case PaginateNextLink:
		return "next-link"
	case PaginateExhaust:
		return "exhaust"
	}
	return fmt.Sprintf("pagination(%d)", int(p))
}

const DefaultMaxPages = 1000

type Pagination struct {
	Style PaginationStyle
	// First is the index of the first page, most sources count from 1.
	First int
	// MaxPages stops runaway walks, 0 means DefaultMaxPages.
	MaxPages int
}

type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindDate
	// KindCode is a numeric identifier kept as a string and left padded
	// with zeros to Column.Width.
	KindCode
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	case KindCode:
		return "code"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Column struct {
	Name string
	Kind Kind
	// Width is the zero padded width of a KindCode column.
	Width int
	// Multiply and Divide scale a KindFloat column into display units,
	// zero means no scaling.
	Multiply float64
	Divide   float64
	// Extract keeps the first submatch of the cell when it matches, for
	// values wrapped in markup like `<span class="x">2019-01-15</span>`.
	Extract *regexp.Regexp
	// Strip lists characters removed before coercion, "%," for example.
	Strip string
	// Layouts are tried in order for a KindDate column, defaults to
	// DateLayout.
	Layouts []string
	// Optional columns become null when coercion fails instead of failing
	// the page.
	Optional bool
}

type DerivedColumn struct {
	Name string
	// Compute receives the coerced record, an error leaves the column null.
	Compute func(Record) (Value, error)
}

type QuasiJSONOptions struct {
	// Envelope captures the payload with its first submatch.
	Envelope *regexp.Regexp
	// TrimPrefix is removed from the start of the payload.
	TrimPrefix string
	// Split keeps the text after the first occurrence of Split, used for
	// javascript assignments like `var data_tab_1=`.
	Split string
	// EndSentinel is a payload that means there are no more rows.
	EndSentinel string
	// RowsPath is the gjson path of the row array, empty means the root.
	// {name} is replaced by the url variable of that name.
	RowsPath string
	// Fields maps object rows to positional cells. Array rows are used as
	// is.
	Fields []string
	// CellPath narrows every object row before Fields are looked up, for
	// rows shaped like {"id": 1, "cell": {...}}.
	CellPath string
	// SplitStrings turns string rows into cells, "new_blhy,玻璃行业,19"
	// with ",". String rows are an error without it.
	SplitStrings string

	TotalPagesPath string
	HasMorePath    string
	CursorPath     string
	// PagePath is the page index the server echoes back. Servers that
	// answer past the end with their last page again echo an index below
	// the requested one, which ends the walk.
	PagePath string
}

type HTMLOptions struct {
	Selector string
	SkipRows int
	Strip    []string

	// NextSelector matches the next page control, the last match is used.
	// The first integer in NextAttr (or in its text when NextAttr is empty)
	// is the next page index.
	NextSelector string
	NextAttr     string
	// PageCountSelector matches the page number bar, the largest integer
	// in it is the total page count.
	PageCountSelector string
	// NextText marks that there is another page when it is found in the
	// text of NextTextSelector (or the whole document).
	NextText         string
	NextTextSelector string
}

type DelimitedOptions struct {
	Envelope *regexp.Regexp
	// Trim removes this many characters from both ends of the payload.
	Trim     int
	RowSep   string
	FieldSep string
	// Quoted parses fields with csv quoting rules.
	Quoted   bool
	SkipRows int
	// MinBodyLen treats shorter payloads as an empty page.
	MinBodyLen int
	// Replace holds old, new pairs applied to the payload before it is
	// split.
	Replace []string
}

// DatasetSpec is the static description of one data source. It is built
// once per dataset and never mutated afterwards.
type DatasetSpec struct {
	Name string
	// URL is an RFC 6570 template, {page}, {cursor} and {rand} are filled
	// by the pipeline, anything else comes from Params.Vars.
	URL      string
	Encoding Encoding
	Shape    Shape

	QuasiJSON QuasiJSONOptions
	HTML      HTMLOptions
	Delimited DelimitedOptions

	Columns []Column
	// Drop lists cell positions removed before naming.
	Drop []int
	// Sentinels are cell values meaning "no value", defaults to "-" and
	// "--".
	Sentinels   []string
	NullOnEmpty bool
	// Ragged pads short rows and truncates long rows instead of failing.
	Ragged  bool
	Derived []DerivedColumn
	// DedupeBy keeps the first record for every value of this column.
	DedupeBy string

	Pagination Pagination

	Retry int
	Pause time.Duration
}

var defaultSentinels = []string{"-", "--"}

func (s DatasetSpec) sentinels() []string {
	if s.Sentinels == nil {
		return defaultSentinels
	}
	return s.Sentinels
}

func (s DatasetSpec) maxPages() int {
	if s.Pagination.MaxPages <= 0 {
		return DefaultMaxPages
	}
	return s.Pagination.MaxPages
}

// ColumnNames returns the canonical output columns, derived columns last.
func (s DatasetSpec) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns)+len(s.Derived))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	for _, d := range s.Derived {
		names = append(names, d.Name)
	}
	return names
}

// Validate checks the DatasetSpec is internally consistent, it does not touch the
// network.
func (s DatasetSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: dataset has no name", ErrInvalidParameter)
	}
	if s.URL == "" {
		return fmt.Errorf("%w: dataset %s has no url", ErrInvalidParameter, s.Name)
	}
	switch s.Shape {
	case ShapeQuasiJSON, ShapeHTMLTable, ShapeDelimited:
	default:
		return fmt.Errorf("%w: dataset %s has unknown %s", ErrInvalidParameter, s.Name, s.Shape)
	}
	switch s.Encoding {
	case "", EncodingUTF8, EncodingGBK:
	default:
		return fmt.Errorf("%w: dataset %s has unknown encoding %q", ErrInvalidParameter, s.Name, s.Encoding)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: dataset %s has no columns", ErrInvalidParameter, s.Name)
	}

	seen := map[string]bool{}
	for _, name := range s.ColumnNames() {
		if name == "" {
			return fmt.Errorf("%w: dataset %s has an unnamed column", ErrInvalidParameter, s.Name)
		}
		if seen[name] {
			return fmt.Errorf("%w: dataset %s has duplicate column %q", ErrInvalidParameter, s.Name, name)
		}
		seen[name] = true
	}
	if s.DedupeBy != "" && !seen[s.DedupeBy] {
		return fmt.Errorf("%w: dataset %s dedupes by unknown column %q", ErrInvalidParameter, s.Name, s.DedupeBy)
	}
	for _, d := range s.Derived {
		if d.Compute == nil {
			return fmt.Errorf("%w: derived column %s of %s has no compute function", ErrInvalidParameter, d.Name, s.Name)
		}
	}
	if len(s.Delimited.Replace)%2 != 0 {
		return fmt.Errorf("%w: dataset %s has an odd number of replacements", ErrInvalidParameter, s.Name)
	}
	if s.Shape == ShapeQuasiJSON && len(s.QuasiJSON.Fields) > 0 &&
		len(s.QuasiJSON.Fields) != len(s.Columns)+len(s.Drop) {
		return fmt.Errorf(
			"%w: dataset %s maps %d fields onto %d columns",
			ErrInvalidParameter, s.Name, len(s.QuasiJSON.Fields), len(s.Columns)+len(s.Drop),
		)
	}
	return nil
}
