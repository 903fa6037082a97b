package datasets

import (
	"context"
	"errors"
	"fmt"
	"gugu/internal/components/chrono"
	"gugu/internal/extract"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeCalendar struct {
	today time.Time
	hour  int
}

func (c fakeCalendar) Today() time.Time { return c.today }
func (c fakeCalendar) Hour() int        { return c.hour }

func (c fakeCalendar) IsTradeDay(date time.Time) bool {
	return date.Weekday() != time.Saturday && date.Weekday() != time.Sunday
}

func (c fakeCalendar) LastTradeDate() time.Time {
	date := c.today.AddDate(0, 0, -1)
	for !c.IsTradeDay(date) {
		date = date.AddDate(0, 0, -1)
	}
	return date
}

func day(s string) time.Time {
	t, err := time.ParseInLocation(chrono.DateLayout, s, chrono.Shanghai())
	if err != nil {
		panic(err)
	}
	return t
}

// recordingRunner captures what a dataset hands to the pipeline.
type recordingRunner struct {
	calls  int
	spec   extract.DatasetSpec
	params extract.Params
}

func (r *recordingRunner) Run(_ context.Context, spec extract.DatasetSpec, params extract.Params) (extract.ResultTable, error) {
	r.calls++
	r.spec = spec
	r.params = params
	return extract.ResultTable{Columns: spec.ColumnNames(), Records: []extract.Record{}}, nil
}

func testEnv() Env {
	// a thursday
	return Env{Calendar: fakeCalendar{today: day("2019-01-10"), hour: 10}}
}

func testPipeline(t *testing.T) extract.Pipeline {
	t.Helper()
	fetcher, err := extract.NewFetcher(extract.FetcherOptions{AttemptTimeout: 2 * time.Second}, nil)
	require.NoError(t, err)
	return extract.NewPipeline(fetcher, nil)
}

func TestBuiltin(t *testing.T) {
	registry := Builtin()
	names := registry.Names()
	require.Len(t, names, 54)

	for _, name := range names {
		d, ok := registry.Get(name)
		require.True(t, ok, name)
		require.NoError(t, d.Spec.Validate(), name)
		require.NotEmpty(t, d.Group, name)
		require.NotEmpty(t, d.Description, name)
	}

	_, ok := registry.Get("Inst_Tops")
	require.True(t, ok)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	d := marketdata()[0]
	_, err := NewRegistry(d, d)
	require.ErrorContains(t, err, "duplicate dataset")

	renamed := d
	renamed.Name = "renamed"
	_, err = NewRegistry(renamed)
	require.ErrorContains(t, err, "spec named")
}

func TestLookupSuggests(t *testing.T) {
	registry := Builtin()

	_, err := registry.Lookup("inst-top")
	require.ErrorIs(t, err, extract.ErrInvalidParameter)
	require.ErrorContains(t, err, "did you mean")
	require.ErrorContains(t, err, "inst-tops")

	_, err = registry.Lookup("zzzzzz")
	require.ErrorIs(t, err, extract.ErrInvalidParameter)
	require.NotContains(t, err.Error(), "did you mean")
}

func TestInvalidArgumentsMakeNoRequest(t *testing.T) {
	table := []struct {
		dataset string
		args    Args
	}{
		{dataset: "count-tops", args: Args{"days": "7"}},
		{dataset: "broker-tops", args: Args{"days": "ten"}},
		{dataset: "forecast", args: Args{"year": "2018", "quarter": "5"}},
		{dataset: "forecast", args: Args{"year": "1988", "quarter": "1"}},
		{dataset: "report", args: Args{"year": "2018"}},
		{dataset: "distri-plan", args: Args{"top": "-1"}},
		{dataset: "history-ticks", args: Args{}},
		{dataset: "history-ticks", args: Args{"code": "60000"}},
		{dataset: "big-deal", args: Args{"code": "600000", "vol": "0"}},
		{dataset: "top-list", args: Args{"date": "2019-01-12"}},
		{dataset: "top-list", args: Args{"date": "20190110"}},
		{dataset: "restricted-lift", args: Args{"month": "13"}},
		{dataset: "history", args: Args{"code": "600036", "ktype": "5"}},
		{dataset: "history", args: Args{"code": "600036", "autype": "xfq"}},
		{dataset: "history", args: Args{"code": "600036", "start": "2019-01-08", "end": "2018-01-08"}},
		{dataset: "xrxd", args: Args{"code": "600036", "date": "2019/07/11"}},
		{dataset: "industries", args: Args{"std": "csrc"}},
		{dataset: "by-industry", args: Args{"std": "csrc"}},
	}

	registry := Builtin()
	for _, test := range table {
		t.Run(fmt.Sprintf("%s %v", test.dataset, test.args), func(t *testing.T) {
			d, err := registry.Lookup(test.dataset)
			require.NoError(t, err)

			runner := &recordingRunner{}
			_, err = d.Run(context.Background(), runner, testEnv(), test.args, extract.Params{})
			require.ErrorIs(t, err, extract.ErrInvalidParameter)

			var stageErr *extract.StageError
			require.True(t, errors.As(err, &stageErr))
			require.Equal(t, extract.StageValidate, stageErr.Stage)
			require.Equal(t, test.dataset, stageErr.Dataset)
			require.Zero(t, runner.calls)
		})
	}
}

func TestTopListDate(t *testing.T) {
	registry := Builtin()
	d, ok := registry.Get("top-list")
	require.True(t, ok)

	table := []struct {
		name     string
		env      Env
		args     Args
		expected string
	}{
		{
			name:     "morning uses the last trade day",
			env:      testEnv(),
			expected: "2019-01-09",
		},
		{
			name:     "evening uses today",
			env:      Env{Calendar: fakeCalendar{today: day("2019-01-10"), hour: 19}},
			expected: "2019-01-10",
		},
		{
			name:     "monday morning goes back to friday",
			env:      Env{Calendar: fakeCalendar{today: day("2019-01-14"), hour: 9}},
			expected: "2019-01-11",
		},
		{
			name:     "explicit date",
			env:      testEnv(),
			args:     Args{"date": "2019-01-02"},
			expected: "2019-01-02",
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			runner := &recordingRunner{}
			result, err := d.Run(context.Background(), runner, test.env, test.args, extract.Params{})
			require.NoError(t, err)
			require.Equal(t, 1, runner.calls)
			require.Equal(t, test.expected, runner.params.Vars["date"])
			require.Contains(t, result.Columns, "date")
		})
	}
}

func TestPrepareVars(t *testing.T) {
	registry := Builtin()

	table := []struct {
		dataset string
		args    Args
		vars    map[string]string
		max     int
	}{
		{
			dataset: "count-tops",
			vars:    map[string]string{"kind": "ggtj", "days": "5"},
		},
		{
			dataset: "inst-detail",
			args:    Args{"days": "30"},
			vars:    map[string]string{"kind": "jgmx", "days": ""},
		},
		{
			dataset: "fund-holdings",
			args:    Args{"year": "2018", "quarter": "1"},
			vars:    map[string]string{"start": "2017-12-31", "end": "2018-03-31"},
		},
		{
			dataset: "report",
			args:    Args{"year": "2018", "quarter": "3"},
			vars:    map[string]string{"kind": "mainindex", "year": "2018", "quarter": "3"},
		},
		{
			dataset: "distri-plan",
			vars:    map[string]string{"year": "2015"},
			max:     25,
		},
		{
			dataset: "distri-plan",
			args:    Args{"year": "2018", "top": "all"},
			vars:    map[string]string{"year": "2018"},
		},
		{
			dataset: "big-deal",
			args:    Args{"code": "600000"},
			vars:    map[string]string{"symbol": "sh600000", "date": "2019-01-09", "volume": "40000"},
		},
		{
			dataset: "history-ticks",
			args:    Args{"code": "000001", "date": "2019-01-08"},
			vars:    map[string]string{"symbol": "sz000001", "date": "2019-01-08"},
		},
		{
			dataset: "restricted-lift",
			args:    Args{"year": "2019"},
			vars:    map[string]string{"year": "2019", "month": "1"},
		},
		{
			dataset: "sz-margins",
			vars:    map[string]string{"market": "SZ"},
		},
		{
			dataset: "history",
			args:    Args{"code": "600036"},
			vars: map[string]string{
				"symbol": "sh600036", "ktype": "day", "fq": "qfq", "flag": "qfqday", "start": "", "end": "",
			},
		},
		{
			dataset: "history",
			args:    Args{"code": "510050", "ktype": "w", "autype": "hfq"},
			vars: map[string]string{
				"symbol": "sh510050", "ktype": "week", "fq": "", "flag": "week", "start": "", "end": "",
			},
		},
		{
			dataset: "xrxd",
			args:    Args{"code": "600036", "date": "2019-07-11"},
			vars: map[string]string{
				"symbol": "sh600036", "ktype": "day", "fq": "qfq", "flag": "qfqday", "start": "2019-07-11", "end": "2019-07-11",
			},
		},
		{
			dataset: "today-ticks",
			args:    Args{"code": "000001"},
			vars:    map[string]string{"symbol": "sz000001", "date": "2019-01-10"},
		},
		{
			dataset: "industries",
			vars:    map[string]string{"file": "newSinaHy.php"},
		},
		{
			dataset: "stock-profiles",
			vars:    map[string]string{"year": "2019"},
		},
		{
			dataset: "industries",
			args:    Args{"std": "sw"},
			vars:    map[string]string{"file": "SwHy.php"},
		},
	}

	for _, test := range table {
		t.Run(test.dataset, func(t *testing.T) {
			d, ok := registry.Get(test.dataset)
			require.True(t, ok)

			runner := &recordingRunner{}
			_, err := d.Run(context.Background(), runner, testEnv(), test.args, extract.Params{})
			require.NoError(t, err)
			require.Equal(t, test.vars, runner.params.Vars)
			require.Equal(t, test.max, runner.params.MaxRecords)
		})
	}
}

func TestExplicitMaxRecordsWins(t *testing.T) {
	d, ok := Builtin().Get("distri-plan")
	require.True(t, ok)

	runner := &recordingRunner{}
	_, err := d.Run(context.Background(), runner, testEnv(), Args{"top": "10"}, extract.Params{MaxRecords: 3})
	require.NoError(t, err)
	require.Equal(t, 3, runner.params.MaxRecords)
}

const distriPlanPage = `<html><body>
<table class="fn_cm_table">
<tr><th>序号</th><th>代码</th><th>名称</th><th>年度</th><th>方案</th><th>公告日</th></tr>
<tr><td>1</td><td>600036</td><td>招商银行</td><td>2018</td><td>10送3股转增2股分红1.5元</td><td>2019-03-23</td></tr>
<tr><td>2</td><td>1</td><td>平安银行</td><td>2018</td><td>10分红1.45元</td><td>--</td></tr>
</table>
<div class="mod_pages"><a>1</a></div>
</body></html>`

func TestDistriPlanAgainstServer(t *testing.T) {
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.RawQuery)
		fmt.Fprint(w, distriPlanPage)
	}))
	defer server.Close()

	d, ok := Builtin().Get("distri-plan")
	require.True(t, ok)
	d.Spec.URL = server.URL + "/fpyg.html?reportdate={year}&page={page}"

	result, err := d.Run(context.Background(), testPipeline(t), testEnv(), Args{"year": "2018"}, extract.Params{})
	require.NoError(t, err)
	require.Equal(t, []string{"reportdate=2018&page=0"}, requested)

	require.Equal(t, []string{"code", "name", "year", "plan", "report_date", "divi", "shares"}, result.Columns)
	require.Equal(t, [][]string{
		{"600036", "招商银行", "2018", "10送3股转增2股分红1.5元", "2019-03-23", "1.5", "5"},
		{"000001", "平安银行", "2018", "10分红1.45元", "", "1.45", "0"},
	}, result.Rows())
}

func TestDistriPlanAmounts(t *testing.T) {
	d, ok := Builtin().Get("distri-plan")
	require.True(t, ok)

	derive := func(plan string) map[string]string {
		record := extract.Record{"plan": extract.StringValue(plan)}
		out := map[string]string{}
		for _, derived := range d.Spec.Derived {
			value, err := derived.Compute(record)
			require.NoError(t, err, plan)
			out[derived.Name] = value.String()
		}
		return out
	}

	tests := []struct {
		plan   string
		divi   string
		shares string
	}{
		{plan: "10送3股转增2股分红1.5元", divi: "1.5", shares: "5"},
		{plan: "10送5股", divi: "0", shares: "5"},
		{plan: "10送0.5股分红2元", divi: "2", shares: "0.5"},
		{plan: "10转增4股", divi: "0", shares: "4"},
		{plan: "10分红3.25元(含税)", divi: "3.25", shares: "0"},
		{plan: "不分配不转增", divi: "0", shares: "0"},
	}
	for _, tt := range tests {
		got := derive(tt.plan)
		require.Equal(t, tt.divi, got["divi"], tt.plan)
		require.Equal(t, tt.shares, got["shares"], tt.plan)
	}
}

func TestRegistryMatch(t *testing.T) {
	registry := Builtin()
	require.Len(t, registry.Match(), len(registry.Names()))

	names := func(ds []Dataset) []string {
		var out []string
		for _, d := range ds {
			out = append(out, d.Name)
		}
		return out
	}
	require.Equal(t, []string{"sh-margins", "sz-margins", "margin-total"}, names(registry.Match("Margin")))
	require.Equal(t, []string{"gdp-year"}, names(registry.Match("gdp_year")))
	require.Contains(t, names(registry.Match("billboard")), "inst-detail")
	require.Empty(t, registry.Match("nothing-like-this"))
}
