package extract

import (
	"context"
	"fmt"
	"gugu/internal/components/telemetry"
	"strconv"
	"strings"
	"time"

	random "github.com/mazen160/go-random"
	"github.com/tidwall/gjson"
	"github.com/yosida95/uritemplate/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultRetry = 3
	DefaultPause = time.Millisecond
)

// Params are the per call inputs of a run.
type Params struct {
	// Vars fill the url template of the dataset.
	Vars map[string]string
	// MaxRecords truncates the table, whole pages are still fetched.
	MaxRecords int
	// Retry and Pause override the dataset's values when set.
	Retry int
	Pause time.Duration
	// Sink observes the walk, nil is silent.
	Sink Sink
}

type Pipeline struct {
	fetcher *Fetcher
	tel     telemetry.API
}

func NewPipeline(fetcher *Fetcher, tel telemetry.API) Pipeline {
	if tel == nil {
		tel = telemetry.NoopAPI{}
	}
	return Pipeline{
		fetcher: fetcher,
		tel:     telemetry.NewScopedAPI("extract", tel),
	}
}

func retryAndPause(spec DatasetSpec, params Params) (int, time.Duration) {
	retry := DefaultRetry
	if spec.Retry > 0 {
		retry = spec.Retry
	}
	if params.Retry > 0 {
		retry = params.Retry
	}
	pause := DefaultPause
	if spec.Pause > 0 {
		pause = spec.Pause
	}
	if params.Pause > 0 {
		pause = params.Pause
	}
	return retry, pause
}

// expand fills the url template for one page of a walk.
func expand(tmpl *uritemplate.Template, vars map[string]string, state PaginationState) (string, error) {
	values := uritemplate.Values{}
	for name, value := range vars {
		values.Set(name, uritemplate.String(value))
	}
	values.Set("page", uritemplate.String(strconv.Itoa(state.Page)))
	values.Set("cursor", uritemplate.String(state.Cursor))
	rand, err := random.String(13)
	if err != nil {
		return "", err
	}
	values.Set("rand", uritemplate.String(rand))
	return tmpl.Expand(values)
}

// fillPath replaces {name} references to url variables in a gjson path.
func fillPath(path string, vars map[string]string) string {
	if !strings.Contains(path, "{") {
		return path
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", gjson.Escape(value))
	}
	return strings.NewReplacer(pairs...).Replace(path)
}

// Run fetches every page of spec and returns the mapped table. It either
// returns the complete table or a *StageError, never both.
func (p Pipeline) Run(ctx context.Context, spec DatasetSpec, params Params) (ResultTable, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.String("dataset", spec.Name))

	table, err := p.run(ctx, spec, params)
	if err != nil {
		stageErr := &StageError{Dataset: spec.Name, Stage: stageOf(err), Err: err}
		p.tel.ReportBroken(report_pipeline_run, stageErr)
		span.RecordError(stageErr)
		span.SetStatus(codes.Error, string(stageErr.Stage))
		return ResultTable{}, stageErr
	}

	p.tel.ReportCount(report_pipeline_rows, int64(table.Len()))
	recordCounter.Add(ctx, int64(table.Len()))
	return table, nil
}

func (p Pipeline) run(ctx context.Context, spec DatasetSpec, params Params) (ResultTable, error) {
	err := spec.Validate()
	if err != nil {
		return ResultTable{}, err
	}
	if params.MaxRecords < 0 {
		return ResultTable{}, fmt.Errorf("%w: max records must not be negative", ErrInvalidParameter)
	}
	spec.QuasiJSON.RowsPath = fillPath(spec.QuasiJSON.RowsPath, params.Vars)
	tmpl, err := uritemplate.New(spec.URL)
	if err != nil {
		return ResultTable{}, fmt.Errorf("%w: url template: %w", ErrInvalidParameter, err)
	}
	retry, pause := retryAndPause(spec, params)

	decode := func(ctx context.Context) DecodeFunc {
		return func(body []byte) (Page, error) {
			page, err := Decode(ctx, spec, body)
			if err != nil {
				return Page{}, err
			}
			page.Records, err = MapRows(spec, page.Rows)
			if err != nil {
				return Page{}, err
			}
			return page, nil
		}
	}

	w := walker{spec: spec, tel: p.tel, sink: params.Sink, limit: params.MaxRecords}
	records, err := w.walk(ctx, func(ctx context.Context, state PaginationState) (Page, error) {
		url, err := expand(tmpl, params.Vars, state)
		if err != nil {
			return Page{}, fmt.Errorf("%w: url template: %w", ErrInvalidParameter, err)
		}
		p.tel.ReportDebug(report_pipeline_run, spec.Name, url)
		return p.fetcher.Fetch(ctx, url, decode(ctx), retry, pause)
	})
	if err != nil {
		return ResultTable{}, err
	}

	if spec.DedupeBy != "" {
		records = dedupe(records, spec.DedupeBy)
	}
	if params.MaxRecords > 0 && len(records) > params.MaxRecords {
		records = records[:params.MaxRecords]
	}
	if records == nil {
		records = []Record{}
	}
	return ResultTable{Columns: spec.ColumnNames(), Records: records}, nil
}

func dedupe(records []Record, column string) []Record {
	seen := map[string]bool{}
	out := records[:0:0]
	for _, record := range records {
		key := record[column].String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, record)
	}
	return out
}
