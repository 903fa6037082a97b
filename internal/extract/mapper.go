package extract

import (
	"fmt"
	"gugu/lib/htmlutil"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// MapRows turns raw rows into records. Steps run in a fixed order: drop
// positions, name cells, null sentinels, coerce and scale, derive.
func MapRows(spec DatasetSpec, rows [][]string) ([]Record, error) {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		record, err := mapRow(spec, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func mapRow(spec DatasetSpec, row []string) (Record, error) {
	cells := htmlutil.DropColumns(row, spec.Drop)
	if len(cells) != len(spec.Columns) {
		if !spec.Ragged {
			return nil, fmt.Errorf(
				"%w: %d cells for %d columns",
				ErrSchemaMismatch, len(cells), len(spec.Columns),
			)
		}
		fitted := make([]string, len(spec.Columns))
		copy(fitted, cells)
		cells = fitted
	}

	sentinels := spec.sentinels()
	record := make(Record, len(spec.Columns)+len(spec.Derived))
	for i, column := range spec.Columns {
		cell := strings.TrimSpace(cells[i])
		if slices.Contains(sentinels, cell) || (cell == "" && (spec.NullOnEmpty || spec.Ragged)) {
			record[column.Name] = NullValue()
			continue
		}

		value, err := coerce(column, cell)
		if err != nil {
			if column.Optional {
				record[column.Name] = NullValue()
				continue
			}
			return nil, fmt.Errorf("%w: column %s: %w", ErrSchemaMismatch, column.Name, err)
		}
		record[column.Name] = value
	}

	for _, derived := range spec.Derived {
		value, err := derived.Compute(record)
		if err != nil {
			value = NullValue()
		}
		record[derived.Name] = value
	}
	return record, nil
}

func strip(cell, chars string) string {
	if chars == "" {
		return cell
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(chars, r) {
			return -1
		}
		return r
	}, cell)
}

func coerce(column Column, cell string) (Value, error) {
	if column.Extract != nil {
		match := column.Extract.FindStringSubmatch(cell)
		if len(match) > 1 {
			cell = strings.TrimSpace(match[1])
		}
	}
	switch column.Kind {
	case KindString:
		return StringValue(cell), nil
	case KindFloat:
		return coerceFloat(column, strip(cell, column.Strip))
	case KindDate:
		return coerceDate(column, strip(cell, column.Strip))
	case KindCode:
		return coerceCode(column, strip(cell, column.Strip))
	}
	return Value{}, fmt.Errorf("unknown %s", column.Kind)
}

func coerceFloat(column Column, cell string) (Value, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return Value{}, fmt.Errorf("%q is not a number", cell)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%q is not a finite number", cell)
	}
	if column.Multiply != 0 {
		f *= column.Multiply
	}
	if column.Divide != 0 {
		f /= column.Divide
	}
	return FloatValue(f), nil
}

func coerceDate(column Column, cell string) (Value, error) {
	layouts := column.Layouts
	if len(layouts) == 0 {
		layouts = []string{DateLayout}
	}
	cell = strings.TrimSpace(cell)
	for _, layout := range layouts {
		date, err := time.Parse(layout, cell)
		if err == nil {
			return DateValue(date), nil
		}
	}
	return Value{}, fmt.Errorf("%q matches none of %v", cell, layouts)
}

// coerceCode drops an exchange prefix like "sh", then left pads the
// remaining digits.
func coerceCode(column Column, cell string) (Value, error) {
	digits := strings.TrimLeftFunc(strings.TrimSpace(cell), unicode.IsLetter)
	if digits == "" {
		return Value{}, fmt.Errorf("%q is not a code", cell)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Value{}, fmt.Errorf("%q is not a code", cell)
		}
	}
	if len(digits) < column.Width {
		digits = strings.Repeat("0", column.Width-len(digits)) + digits
	}
	return StringValue(digits), nil
}
