// Package datasets holds the declarative description of every supported
// source and validates the arguments each one takes.
package datasets

import (
	"context"
	"fmt"
	"gugu/internal/components/chrono"
	"gugu/internal/extract"
	"gugu/lib/textutil"
	"maps"
	"slices"
	"strings"
)

// Args are the raw string arguments of a dataset call, "days" or "year"
// for example.
type Args map[string]string

// Request is what a dataset's Prepare turns Args into.
type Request struct {
	Vars       map[string]string
	MaxRecords int
	// Constants are columns with the same value in every record, like the
	// date a daily list was requested for.
	Constants []Constant
	// Batches split one call into several runs, every batch's vars are laid
	// over Vars. The records of all runs are concatenated in order.
	Batches []map[string]string
}

type Constant struct {
	Name  string
	Value string
}

type Env struct {
	Calendar chrono.Calendar
}

type Dataset struct {
	Name        string
	Group       string
	Description string
	// ArgNames documents the arguments Prepare reads.
	ArgNames []string
	Spec     extract.DatasetSpec
	// Prepare validates args before any request is made.
	Prepare func(env Env, args Args) (Request, error)
	// FanOut, when set, runs Spec once for every record of a list.
	FanOut *FanOut
}

// FanOut lists keys first, a category list for example, then fetches the
// dataset once per listed record.
type FanOut struct {
	List extract.DatasetSpec
	// Vars fill url variables of the dataset from columns of the list.
	Vars []Binding
	// Carry copies columns of the list into every record fetched for it.
	Carry []Binding
}

// Binding reads column From of a list record and names it To.
type Binding struct {
	From string
	To   string
}

// Columns returns the output columns of the dataset for a request.
func (d Dataset) Columns(req Request) []string {
	if d.FanOut != nil {
		req.Constants = slices.Clone(req.Constants)
		for _, b := range d.FanOut.Carry {
			req.Constants = append(req.Constants, Constant{Name: b.To})
		}
	}
	return d.specFor(req).ColumnNames()
}

func (d Dataset) specFor(req Request) extract.DatasetSpec {
	spec := d.Spec
	if len(req.Constants) == 0 {
		return spec
	}
	spec.Derived = slices.Clone(spec.Derived)
	for _, c := range req.Constants {
		value := extract.StringValue(c.Value)
		spec.Derived = append(spec.Derived, extract.DerivedColumn{
			Name: c.Name,
			Compute: func(extract.Record) (extract.Value, error) {
				return value, nil
			},
		})
	}
	return spec
}

func (f FanOut) validate() error {
	err := f.List.Validate()
	if err != nil {
		return err
	}
	columns := f.List.ColumnNames()
	for _, b := range slices.Concat(f.Vars, f.Carry) {
		if !slices.Contains(columns, b.From) {
			return fmt.Errorf("%w: list %s has no column %q", extract.ErrInvalidParameter, f.List.Name, b.From)
		}
	}
	return nil
}

// Runner is satisfied by extract.Pipeline.
type Runner interface {
	Run(ctx context.Context, spec extract.DatasetSpec, params extract.Params) (extract.ResultTable, error)
}

// Run validates args and runs the dataset through runner. params carries
// the per call retry, pause and sink, its Vars and MaxRecords are filled
// from the request.
func (d Dataset) Run(ctx context.Context, runner Runner, env Env, args Args, params extract.Params) (extract.ResultTable, error) {
	req := Request{Vars: map[string]string{}}
	if d.Prepare != nil {
		var err error
		req, err = d.Prepare(env, args)
		if err != nil {
			return extract.ResultTable{}, &extract.StageError{
				Dataset: d.Name,
				Stage:   extract.StageValidate,
				Err:     err,
			}
		}
	}
	params.Vars = req.Vars
	if params.MaxRecords == 0 {
		params.MaxRecords = req.MaxRecords
	}
	switch {
	case d.FanOut != nil:
		return d.runFanOut(ctx, runner, req, params)
	case len(req.Batches) > 0:
		reqs := make([]Request, len(req.Batches))
		for i, batch := range req.Batches {
			vars := maps.Clone(req.Vars)
			if vars == nil {
				vars = map[string]string{}
			}
			maps.Copy(vars, batch)
			reqs[i] = Request{Vars: vars, Constants: req.Constants}
		}
		return d.runEach(ctx, runner, d.Columns(req), reqs, params)
	}
	return runner.Run(ctx, d.specFor(req), params)
}

func (d Dataset) runFanOut(ctx context.Context, runner Runner, req Request, params extract.Params) (extract.ResultTable, error) {
	listParams := params
	listParams.MaxRecords = 0
	list, err := runner.Run(ctx, d.FanOut.List, listParams)
	if err != nil {
		return extract.ResultTable{}, err
	}

	reqs := make([]Request, len(list.Records))
	for i, item := range list.Records {
		itemReq := Request{
			Vars:      maps.Clone(req.Vars),
			Constants: slices.Clone(req.Constants),
		}
		if itemReq.Vars == nil {
			itemReq.Vars = map[string]string{}
		}
		for _, b := range d.FanOut.Vars {
			itemReq.Vars[b.To] = item[b.From].String()
		}
		for _, b := range d.FanOut.Carry {
			itemReq.Constants = append(itemReq.Constants, Constant{Name: b.To, Value: item[b.From].String()})
		}
		reqs[i] = itemReq
	}
	return d.runEach(ctx, runner, d.Columns(req), reqs, params)
}

// runEach runs the dataset once per request and returns every record or
// the first error, like a single run. MaxRecords stops it once enough
// records are collected.
func (d Dataset) runEach(ctx context.Context, runner Runner, columns []string, reqs []Request, params extract.Params) (extract.ResultTable, error) {
	limit := params.MaxRecords
	out := extract.ResultTable{Columns: columns, Records: []extract.Record{}}
	for _, req := range reqs {
		itemParams := params
		itemParams.Vars = req.Vars
		itemParams.MaxRecords = 0
		table, err := runner.Run(ctx, d.specFor(req), itemParams)
		if err != nil {
			return extract.ResultTable{}, err
		}
		out.Records = append(out.Records, table.Records...)
		if limit > 0 && len(out.Records) >= limit {
			out.Records = out.Records[:limit]
			break
		}
	}
	return out, nil
}

type Registry struct {
	datasets map[string]Dataset
	names    []string
}

func NewRegistry(datasets ...Dataset) (Registry, error) {
	r := Registry{datasets: map[string]Dataset{}}
	for _, d := range datasets {
		name := textutil.NormalizeName(d.Name)
		if _, exists := r.datasets[name]; exists {
			return Registry{}, fmt.Errorf("duplicate dataset %q", d.Name)
		}
		if d.Spec.Name != d.Name {
			return Registry{}, fmt.Errorf("dataset %q has spec named %q", d.Name, d.Spec.Name)
		}
		err := d.Spec.Validate()
		if err != nil {
			return Registry{}, err
		}
		if d.FanOut != nil {
			err = d.FanOut.validate()
			if err != nil {
				return Registry{}, fmt.Errorf("dataset %q: %w", d.Name, err)
			}
		}
		r.datasets[name] = d
		r.names = append(r.names, d.Name)
	}
	return r, nil
}

// Builtin returns the registry of every dataset this package ships.
func Builtin() Registry {
	var all []Dataset
	all = append(all, billboard()...)
	all = append(all, reference()...)
	all = append(all, stockdata()...)
	all = append(all, marketdata()...)
	all = append(all, stockinfo()...)
	all = append(all, macro()...)
	all = append(all, classify()...)
	all = append(all, arbitrage()...)

	r, err := NewRegistry(all...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Registry) Names() []string {
	return slices.Clone(r.names)
}

// Match returns the datasets whose name or group contains any of the
// filters, every dataset when there are none.
func (r Registry) Match(filters ...string) []Dataset {
	matchers := make([]string, len(filters))
	for i, f := range filters {
		matchers[i] = textutil.NormalizeName(f)
	}
	var out []Dataset
	for _, name := range r.names {
		d := r.datasets[textutil.NormalizeName(name)]
		if len(matchers) > 0 && !textutil.MatchName(d.Name, matchers) && !textutil.MatchName(d.Group, matchers) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (r Registry) Get(name string) (Dataset, bool) {
	d, ok := r.datasets[textutil.NormalizeName(name)]
	return d, ok
}

// Lookup is Get with an error that suggests similar names.
func (r Registry) Lookup(name string) (Dataset, error) {
	d, ok := r.Get(name)
	if ok {
		return d, nil
	}
	err := fmt.Errorf("%w: unknown dataset %q", extract.ErrInvalidParameter, name)
	suggestions := textutil.Suggest(name, r.names, 3)
	if len(suggestions) > 0 {
		err = fmt.Errorf("%w, did you mean %s?", err, strings.Join(suggestions, ", "))
	}
	return Dataset{}, err
}
