package extract

import (
	"encoding/json"
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

type ValueKind int

const (
	Null ValueKind = iota
	String
	Float
	Date
)

// Value is one typed cell of a Record. The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	date time.Time
}

func NullValue() Value               { return Value{} }
func StringValue(s string) Value     { return Value{kind: String, str: s} }
func FloatValue(f float64) Value     { return Value{kind: Float, num: f} }
func DateValue(date time.Time) Value { return Value{kind: Date, date: date} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == Null }

func (v Value) Str() (string, bool) {
	return v.str, v.kind == String
}

func (v Value) Float() (float64, bool) {
	return v.num, v.kind == Float
}

func (v Value) Time() (time.Time, bool) {
	return v.date, v.kind == Date
}

// String formats the value for display, null is the empty string.
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.str
	case Float:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case Date:
		return v.date.Format(DateLayout)
	}
	return ""
}

// Any returns the value as a plain go value: nil, string or float64. Dates
// are formatted.
func (v Value) Any() any {
	switch v.kind {
	case String:
		return v.str
	case Float:
		return v.num
	case Date:
		return v.date.Format(DateLayout)
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// Record is one canonical row keyed by column name. Every record of a
// table has the same keys.
type Record map[string]Value

type ResultTable struct {
	Columns []string
	Records []Record
}

func (t ResultTable) Len() int {
	return len(t.Records)
}

// Rows returns the display strings of every record in column order.
func (t ResultTable) Rows() [][]string {
	rows := make([][]string, len(t.Records))
	for i, record := range t.Records {
		row := make([]string, len(t.Columns))
		for j, column := range t.Columns {
			row[j] = record[column].String()
		}
		rows[i] = row
	}
	return rows
}

// Column returns every value of one column in record order.
func (t ResultTable) Column(name string) []Value {
	values := make([]Value, len(t.Records))
	for i, record := range t.Records {
		values[i] = record[name]
	}
	return values
}
