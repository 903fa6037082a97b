package telemetry

import (
	"slices"
	"sync"
)

type Report struct {
	Level  string
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory, tests use it to
// check what a component reported.
type Recorder struct {
	mutex   sync.Mutex
	Reports []Report
}

func (r *Recorder) add(level, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Reports = append(r.Reports, Report{Level: level, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// IDs returns the ids reported at the given level, in order.
func (r *Recorder) IDs(level string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var ids []string
	for _, report := range r.Reports {
		if report.Level == level {
			ids = append(ids, report.ID)
		}
	}
	return ids
}

// Has reports whether id was reported at the given level.
func (r *Recorder) Has(level, id string) bool {
	return slices.Contains(r.IDs(level), id)
}
