package extract

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var valueComparer = cmp.Comparer(func(a, b Value) bool {
	return a.Kind() == b.Kind() && a.String() == b.String()
})

func TestMapRowsSentinels(t *testing.T) {
	spec := DatasetSpec{
		Columns: []Column{
			{Name: "code", Kind: KindCode, Width: 6},
			{Name: "rate", Kind: KindFloat, Optional: true},
			{Name: "price", Kind: KindFloat},
		},
	}
	records, err := MapRows(spec, [][]string{{"600000", "-", "12.3"}})
	require.NoError(t, err)

	expected := []Record{{
		"code":  StringValue("600000"),
		"rate":  NullValue(),
		"price": FloatValue(12.3),
	}}
	if diff := cmp.Diff(expected, records, valueComparer); diff != "" {
		t.Fatal(diff)
	}
}

func TestMapRowsZeroPadding(t *testing.T) {
	spec := DatasetSpec{
		Columns: []Column{{Name: "code", Kind: KindCode, Width: 6}},
	}
	cases := []struct {
		cell     string
		expected string
	}{
		{cell: "600", expected: "000600"},
		{cell: "600000", expected: "600000"},
		{cell: "sh600036", expected: "600036"},
		{cell: " 2415 ", expected: "002415"},
	}
	for _, test := range cases {
		records, err := MapRows(spec, [][]string{{test.cell}})
		require.NoError(t, err, test.cell)
		code, ok := records[0]["code"].Str()
		require.True(t, ok)
		require.Equal(t, test.expected, code)
	}
}

func TestMapRowsDropBeforeNaming(t *testing.T) {
	spec := DatasetSpec{
		Columns: []Column{
			{Name: "code", Kind: KindCode, Width: 6},
			{Name: "name"},
			{Name: "count", Kind: KindFloat},
		},
		Drop: []int{2, 3},
	}
	records, err := MapRows(spec, [][]string{{"600000", "浦发银行", "x", "y", "4"}})
	require.NoError(t, err)
	require.Equal(t, "浦发银行", records[0]["name"].String())
	require.Equal(t, "4", records[0]["count"].String())
}

func TestMapRowsCountMismatch(t *testing.T) {
	spec := DatasetSpec{
		Columns: []Column{{Name: "a"}, {Name: "b"}},
	}
	_, err := MapRows(spec, [][]string{{"1", "2", "3"}})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	spec.Ragged = true
	records, err := MapRows(spec, [][]string{{"1", "2", "3"}, {"1"}})
	require.NoError(t, err)
	require.Equal(t, "2", records[0]["b"].String())
	require.True(t, records[1]["b"].IsNull())
}

func TestMapRowsCoercionFailure(t *testing.T) {
	spec := DatasetSpec{
		Columns: []Column{{Name: "price", Kind: KindFloat}},
	}
	_, err := MapRows(spec, [][]string{{"abc"}})
	require.ErrorIs(t, err, ErrSchemaMismatch)
	require.ErrorContains(t, err, "price")

	spec.Columns[0].Optional = true
	records, err := MapRows(spec, [][]string{{"abc"}})
	require.NoError(t, err)
	require.True(t, records[0]["price"].IsNull())
}

func TestMapRowsRejectsNonFiniteFloats(t *testing.T) {
	for _, cell := range []string{"NaN", "nan", "Inf", "+Inf", "-Infinity"} {
		spec := DatasetSpec{
			Columns: []Column{{Name: "price", Kind: KindFloat}},
		}
		_, err := MapRows(spec, [][]string{{cell}})
		require.ErrorIs(t, err, ErrSchemaMismatch, cell)

		spec.Columns[0].Optional = true
		records, err := MapRows(spec, [][]string{{cell}})
		require.NoError(t, err, cell)
		require.True(t, records[0]["price"].IsNull(), cell)
	}
}

func TestMapRowsNullOnEmpty(t *testing.T) {
	spec := DatasetSpec{
		Columns: []Column{{Name: "price", Kind: KindFloat}},
	}
	_, err := MapRows(spec, [][]string{{""}})
	require.True(t, errors.Is(err, ErrSchemaMismatch))

	spec.NullOnEmpty = true
	records, err := MapRows(spec, [][]string{{""}})
	require.NoError(t, err)
	require.True(t, records[0]["price"].IsNull())
}

func TestMapRowsScaling(t *testing.T) {
	spec := DatasetSpec{
		Columns: []Column{
			{Name: "count", Kind: KindFloat, Divide: 10000},
			{Name: "ratio", Kind: KindFloat, Multiply: 100},
			{Name: "change", Kind: KindFloat, Strip: "%,"},
		},
	}
	records, err := MapRows(spec, [][]string{{"125000", "0.0125", "1,234.5%"}})
	require.NoError(t, err)

	count, _ := records[0]["count"].Float()
	ratio, _ := records[0]["ratio"].Float()
	change, _ := records[0]["change"].Float()
	require.InDelta(t, 12.5, count, 1e-9)
	require.InDelta(t, 1.25, ratio, 1e-9)
	require.InDelta(t, 1234.5, change, 1e-9)
}

func TestMapRowsDates(t *testing.T) {
	spec := DatasetSpec{
		Columns: []Column{
			{Name: "date", Kind: KindDate, Layouts: []string{DateLayout, "2006-01-02T15:04:05"}},
		},
	}
	records, err := MapRows(spec, [][]string{{"2019-01-10T00:00:00"}, {"2019-01-11"}})
	require.NoError(t, err)

	first, ok := records[0]["date"].Time()
	require.True(t, ok)
	require.Equal(t, time.Date(2019, 1, 10, 0, 0, 0, 0, time.UTC), first)
	require.Equal(t, "2019-01-11", records[1]["date"].String())
}

func TestMapRowsDerived(t *testing.T) {
	spec := DatasetSpec{
		Columns: []Column{
			{Name: "buy", Kind: KindFloat},
			{Name: "turnover", Kind: KindFloat, Optional: true},
		},
		Derived: []DerivedColumn{{
			Name: "bratio",
			Compute: func(r Record) (Value, error) {
				buy, _ := r["buy"].Float()
				turnover, ok := r["turnover"].Float()
				if !ok || turnover == 0 {
					return Value{}, errors.New("no turnover")
				}
				return FloatValue(buy / turnover), nil
			},
		}},
	}
	records, err := MapRows(spec, [][]string{{"50", "200"}, {"50", "-"}})
	require.NoError(t, err)
	require.Equal(t, "0.25", records[0]["bratio"].String())
	require.True(t, records[1]["bratio"].IsNull())
}

func TestMapRowsExtract(t *testing.T) {
	spec := DatasetSpec{
		Columns: []Column{{
			Name:     "next_recalc_dt",
			Kind:     KindDate,
			Extract:  regexp.MustCompile(`<span[^>]*>(\d{4}-\d{2}-\d{2})</span>`),
			Optional: true,
		}},
	}
	records, err := MapRows(spec, [][]string{
		{`<span style="color:#3e9">2019-01-15</span>`},
		{"2019-02-01"},
		{"<span>soon</span>"},
	})
	require.NoError(t, err)
	require.Equal(t, "2019-01-15", records[0]["next_recalc_dt"].String())
	require.Equal(t, "2019-02-01", records[1]["next_recalc_dt"].String())
	require.True(t, records[2]["next_recalc_dt"].IsNull())
}
