package store

import (
	"context"
	"gugu/internal/extract"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) Store {
	db, err := Config{File: filepath.Join(t.TempDir(), "gugu.db")}.Open()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func ticks(prices ...float64) extract.ResultTable {
	result := extract.ResultTable{Columns: []string{"time", "price", "type"}}
	for _, p := range prices {
		result.Records = append(result.Records, extract.Record{
			"time":  extract.StringValue("09:30:00"),
			"price": extract.FloatValue(p),
			"type":  extract.NullValue(),
		})
	}
	return result
}

func TestTableName(t *testing.T) {
	require.Equal(t, "top_list", TableName("top-list"))
	require.Equal(t, "gdp_year", TableName("GDP-Year"))
}

func TestOpenRequiresTarget(t *testing.T) {
	require.True(t, Config{}.Empty())
	_, err := Config{}.Open()
	require.Error(t, err)
}

func TestWriteTable(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.WriteTable(ctx, "history-ticks", ticks(10.5, 10.6), Replace))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM history_ticks`).Scan(&count))
	require.Equal(t, 2, count)

	var sum float64
	require.NoError(t, s.db.QueryRow(`SELECT sum(price) FROM history_ticks`).Scan(&sum))
	require.InDelta(t, 21.1, sum, 1e-9)

	var nulls int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM history_ticks WHERE type IS NULL`).Scan(&nulls))
	require.Equal(t, 2, nulls)

	var declared string
	require.NoError(t, s.db.QueryRow(
		`SELECT type FROM pragma_table_info('history_ticks') WHERE name = 'price'`,
	).Scan(&declared))
	require.Equal(t, "REAL", declared)
}

func TestWriteModes(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.WriteTable(ctx, "latest", ticks(1), Replace))
	require.NoError(t, s.WriteTable(ctx, "latest", ticks(2, 3), Append))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM latest`).Scan(&count))
	require.Equal(t, 3, count)

	require.NoError(t, s.WriteTable(ctx, "latest", ticks(4), Replace))
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM latest`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestWriteTableWithoutColumns(t *testing.T) {
	s := openTest(t)
	err := s.WriteTable(context.Background(), "empty", extract.ResultTable{}, Replace)
	require.ErrorIs(t, err, extract.ErrInvalidParameter)
}
