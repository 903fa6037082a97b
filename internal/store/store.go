// Package store persists result tables into sqlite, either a local file
// or a remote libsql database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"gugu/internal/extract"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("gugu.internal.store")

type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (c Config) Empty() bool {
	return c.File == "" && c.Url == ""
}

// Open opens a remote libsql database when Url is set and a local sqlite
// file otherwise, the file is created when missing.
func (c Config) Open() (*sql.DB, error) {
	if c.Url != "" {
		values := url.Values{}
		if c.AuthToken != "" {
			values.Add("authToken", c.AuthToken)
		}
		dsn := c.Url
		if len(values) > 0 {
			dsn += "?" + values.Encode()
		}
		return sql.Open("libsql", dsn)
	}
	if c.File == "" {
		return nil, fmt.Errorf("a database file or url was not specified")
	}

	path, err := filepath.Abs(c.File)
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type Mode int

const (
	// Replace drops the table before writing.
	Replace Mode = iota
	Append
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) Store {
	return Store{db: db}
}

// TableName turns a dataset name into a sql identifier, "top-list" is
// stored as top_list.
func TableName(dataset string) string {
	return strings.ReplaceAll(strings.ToLower(dataset), "-", "_")
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// columnType is REAL when every non null value of the column is a number.
func columnType(result extract.ResultTable, column string) string {
	numeric := false
	for _, record := range result.Records {
		switch record[column].Kind() {
		case extract.Float:
			numeric = true
		case extract.Null:
		default:
			return "TEXT"
		}
	}
	if numeric {
		return "REAL"
	}
	return "TEXT"
}

// WriteTable writes every record of result into the table named after
// dataset in a single transaction.
func (s Store) WriteTable(ctx context.Context, dataset string, result extract.ResultTable, mode Mode) error {
	ctx, span := tracer.Start(ctx, "WriteTable")
	defer span.End()
	table := TableName(dataset)
	span.SetAttributes(
		attribute.String("table", table),
		attribute.Int("records", result.Len()),
	)

	err := s.write(ctx, table, result, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write table")
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}

func (s Store) write(ctx context.Context, table string, result extract.ResultTable, mode Mode) error {
	if len(result.Columns) == 0 {
		return fmt.Errorf("%w: table has no columns", extract.ErrInvalidParameter)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if mode == Replace {
		_, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table))
		if err != nil {
			return err
		}
	}

	definitions := make([]string, len(result.Columns))
	placeholders := make([]string, len(result.Columns))
	names := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		definitions[i] = quote(c) + " " + columnType(result, c)
		placeholders[i] = "?"
		names[i] = quote(c)
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		quote(table), strings.Join(definitions, ", "),
	))
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(names, ", "), strings.Join(placeholders, ", "),
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(result.Columns))
	for _, record := range result.Records {
		for i, c := range result.Columns {
			args[i] = record[c].Any()
		}
		_, err = stmt.ExecContext(ctx, args...)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
