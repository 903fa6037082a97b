// Package output renders result tables for the terminal or for other
// programs.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"gugu/internal/extract"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Mode string

const (
	// ModeTable is a boxed table for people.
	ModeTable Mode = "table"
	// ModeRecords is a json array of objects keyed by column name, nulls
	// included.
	ModeRecords Mode = "records"
	ModeCSV     Mode = "csv"
)

var Modes = []Mode{ModeTable, ModeRecords, ModeCSV}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown output mode %q, expected one of %v", extract.ErrInvalidParameter, s, Modes)
}

func newWriter(out io.Writer, result extract.ResultTable) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	// the rounded style upper cases headers and footers, column names stay
	// as declared
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	header := make(table.Row, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, record := range result.Records {
		row := make(table.Row, len(result.Columns))
		for i, c := range result.Columns {
			row[i] = record[c].String()
		}
		t.AppendRow(row)
	}
	return t
}

func Render(out io.Writer, mode Mode, result extract.ResultTable) error {
	switch mode {
	case ModeTable:
		t := newWriter(out, result)
		t.AppendFooter(table.Row{fmt.Sprintf("%d rows", result.Len())})
		t.Render()
		return nil
	case ModeCSV:
		newWriter(out, result).RenderCSV()
		return nil
	case ModeRecords:
		return writeRecords(out, result)
	}
	return fmt.Errorf("%w: unknown output mode %q", extract.ErrInvalidParameter, mode)
}

// writeRecords keeps the column order of the table in every object, which
// marshalling the record maps directly would sort away.
func writeRecords(out io.Writer, result extract.ResultTable) error {
	var buffer bytes.Buffer
	buffer.WriteString("[")
	for i, record := range result.Records {
		if i > 0 {
			buffer.WriteString(",")
		}
		buffer.WriteString("\n  {")
		for j, c := range result.Columns {
			if j > 0 {
				buffer.WriteString(", ")
			}
			key, err := json.Marshal(c)
			if err != nil {
				return err
			}
			value, err := json.Marshal(record[c])
			if err != nil {
				return err
			}
			buffer.Write(key)
			buffer.WriteString(": ")
			buffer.Write(value)
		}
		buffer.WriteString("}")
	}
	if len(result.Records) > 0 {
		buffer.WriteString("\n")
	}
	buffer.WriteString("]\n")

	_, err := out.Write(buffer.Bytes())
	return err
}
