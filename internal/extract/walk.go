package extract

import (
	"context"
	"gugu/internal/components/telemetry"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// PaginationState belongs to exactly one walk.
type PaginationState struct {
	// Page is the index of the page about to be fetched.
	Page   int
	Cursor string
	// Fetched counts the pages fetched so far.
	Fetched    int
	TotalPages int
	Done       bool

	visited map[string]bool
}

func (s *PaginationState) visit(key string) bool {
	if s.visited == nil {
		s.visited = map[string]bool{}
	}
	if s.visited[key] {
		return false
	}
	s.visited[key] = true
	return true
}

type pageFunc func(ctx context.Context, state PaginationState) (Page, error)

type walker struct {
	spec  DatasetSpec
	tel   telemetry.API
	sink  Sink
	limit int
}

// walk fetches pages in order until the pagination style says it is done.
// An empty page always ends the walk. Any error ends it too and nothing
// accumulated so far is returned.
func (w walker) walk(ctx context.Context, fetch pageFunc) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "walk")
	defer span.End()

	sink := w.sink
	if sink == nil {
		sink = noopSink{}
	}

	state := PaginationState{Page: w.spec.Pagination.First}
	state.visit(pageKey(state.Page))

	var records []Record
	sink.Begin(w.spec.Name)
	for !state.Done {
		sink.Page(w.spec.Name, state.Page)
		page, err := fetch(ctx, state)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		state.Fetched++

		if page.Empty() {
			break
		}
		if page.HasEcho && page.Echo < state.Page {
			w.tel.ReportDebug(report_walk_repeat, w.spec.Name, state.Page, page.Echo)
			break
		}
		records = append(records, page.Records...)
		if w.limit > 0 && len(records) >= w.limit {
			break
		}
		if state.Fetched >= w.spec.maxPages() {
			w.tel.ReportWarning(report_walk_max_pages, w.spec.Name, state.Fetched)
			break
		}
		w.advance(&state, page)
	}

	span.SetAttributes(
		attribute.Int("pages", state.Fetched),
		attribute.Int("records", len(records)),
	)
	return records, nil
}

func pageKey(page int) string {
	return "page:" + strconv.Itoa(page)
}

func (w walker) advance(state *PaginationState, page Page) {
	switch w.spec.Pagination.Style {
	case PaginateNone:
		state.Done = true
	case PaginateCounted:
		w.advanceCounted(state, page)
	case PaginateTokenized:
		switch {
		case page.Cursor != "":
			if !state.visit("cursor:" + page.Cursor) {
				w.tel.ReportWarning(report_walk_repeat, w.spec.Name, page.Cursor)
				state.Done = true
				return
			}
			state.Cursor = page.Cursor
			state.Page++
		case page.TotalPages > 0 || state.TotalPages > 0:
			w.advanceCounted(state, page)
		case page.HasMore:
			state.Page++
		default:
			state.Done = true
		}
	case PaginateNextLink:
		next := state.Page + 1
		switch {
		case page.HasNext:
			next = page.NextPage
		case !page.HasMore:
			state.Done = true
			return
		}
		if !state.visit(pageKey(next)) {
			w.tel.ReportDebug(report_walk_repeat, w.spec.Name, next)
			state.Done = true
			return
		}
		state.Page = next
	case PaginateExhaust:
		state.Page++
	default:
		state.Done = true
	}
}

func (w walker) advanceCounted(state *PaginationState, page Page) {
	if state.TotalPages == 0 {
		state.TotalPages = page.TotalPages
	}
	if state.Fetched >= state.TotalPages {
		state.Done = true
		return
	}
	state.Page++
}
