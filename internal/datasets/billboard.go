package datasets

import (
	"errors"
	"gugu/internal/components/chrono"
	"gugu/internal/extract"
	"strconv"
)

func code(name string) extract.Column {
	return extract.Column{Name: name, Kind: extract.KindCode, Width: 6}
}

func text(name string) extract.Column {
	return extract.Column{Name: name}
}

func float(name string) extract.Column {
	return extract.Column{Name: name, Kind: extract.KindFloat}
}

func optionalFloat(name string) extract.Column {
	return extract.Column{Name: name, Kind: extract.KindFloat, Optional: true}
}

func date(name string) extract.Column {
	return extract.Column{Name: name, Kind: extract.KindDate}
}

func scaled(name string, multiply, divide float64) extract.Column {
	return extract.Column{Name: name, Kind: extract.KindFloat, Multiply: multiply, Divide: divide, Optional: true}
}

// ratio derives numerator / denominator, both must be present.
func ratio(name, numerator, denominator string) extract.DerivedColumn {
	return extract.DerivedColumn{
		Name: name,
		Compute: func(r extract.Record) (extract.Value, error) {
			n, ok := r[numerator].Float()
			if !ok {
				return extract.Value{}, errors.New("no numerator")
			}
			d, ok := r[denominator].Float()
			if !ok || d == 0 {
				return extract.Value{}, errors.New("no denominator")
			}
			return extract.FloatValue(n / d), nil
		},
	}
}

const sinaLHB = "http://vip.stock.finance.sina.com.cn/q/go.php/vLHBData/kind/{kind}/index.phtml?last={days}&p={page}"

// sinaTable is the markup shared by the sina list pages: a #dataTable with
// one header row and a page bar whose last link holds the next page.
func sinaTable(name, url, selector string, columns []extract.Column, drop []int) extract.DatasetSpec {
	return extract.DatasetSpec{
		Name:     name,
		URL:      url,
		Encoding: extract.EncodingGBK,
		Shape:    extract.ShapeHTMLTable,
		HTML: extract.HTMLOptions{
			Selector:     selector,
			SkipRows:     1,
			NextSelector: "div.pages a",
			NextAttr:     "onclick",
		},
		Columns:     columns,
		Drop:        drop,
		NullOnEmpty: true,
		Pagination:  extract.Pagination{Style: extract.PaginateNextLink, First: 1},
	}
}

func lhbPrepare(kind string, takesDays bool) func(Env, Args) (Request, error) {
	return func(_ Env, args Args) (Request, error) {
		vars := map[string]string{"kind": kind, "days": ""}
		if takesDays {
			days, err := args.intOr("days", 5)
			if err != nil {
				return Request{}, err
			}
			err = checkDays(days)
			if err != nil {
				return Request{}, err
			}
			vars["days"] = strconv.Itoa(days)
		}
		return Request{Vars: vars}, nil
	}
}

func prepareTopList(env Env, args Args) (Request, error) {
	var day string
	raw, given := args.str("date")
	if given {
		date, err := args.dateOr("date", env.Calendar.Today())
		if err != nil {
			return Request{}, err
		}
		if !env.Calendar.IsTradeDay(date) {
			return Request{}, invalid("%s is not a trade day", raw)
		}
		day = date.Format(chrono.DateLayout)
	} else {
		// the list of the day is published in the evening
		date := env.Calendar.LastTradeDate()
		if env.Calendar.Hour() >= 18 && env.Calendar.IsTradeDay(env.Calendar.Today()) {
			date = env.Calendar.Today()
		}
		day = date.Format(chrono.DateLayout)
	}
	return Request{
		Vars:      map[string]string{"date": day},
		Constants: []Constant{{Name: "date", Value: day}},
	}, nil
}

func billboard() []Dataset {
	return []Dataset{
		{
			Name:        "top-list",
			Group:       "billboard",
			Description: "daily dragon-tiger list (amounts in 10k yuan)",
			ArgNames:    []string{"date"},
			Spec: extract.DatasetSpec{
				Name:     "top-list",
				URL:      "http://data.eastmoney.com/DataCenter_V3/stock2016/TradeDetail/pagesize=200,page=1,sortRule=-1,sortType=,startDate={date},endDate={date},gpfw=0,js=var%20data_tab_1.html",
				Encoding: extract.EncodingGBK,
				Shape:    extract.ShapeQuasiJSON,
				QuasiJSON: extract.QuasiJSONOptions{
					Split:    "_1=",
					RowsPath: "data",
					Fields:   []string{"SCode", "SName", "Chgradio", "ZeMoney", "Bmoney", "Smoney", "Ctypedes", "JD", "Turnover"},
				},
				Columns: []extract.Column{
					code("code"),
					text("name"),
					optionalFloat("pchange"),
					scaled("amount", 0, 10000),
					scaled("buy", 0, 10000),
					scaled("sell", 0, 10000),
					text("reason"),
					text("unscramble"),
					scaled("turnover", 0, 10000),
				},
				NullOnEmpty: true,
				Derived: []extract.DerivedColumn{
					ratio("bratio", "buy", "turnover"),
					ratio("sratio", "sell", "turnover"),
				},
			},
			Prepare: prepareTopList,
		},
		{
			Name:        "count-tops",
			Group:       "billboard",
			Description: "times each stock made the list in the last n days",
			ArgNames:    []string{"days"},
			Spec: func() extract.DatasetSpec {
				spec := sinaTable("count-tops", sinaLHB, "table#dataTable", []extract.Column{
					code("code"),
					text("name"),
					optionalFloat("count"),
					optionalFloat("bamount"),
					optionalFloat("samount"),
					optionalFloat("net"),
					optionalFloat("bcount"),
					optionalFloat("scount"),
				}, nil)
				spec.DedupeBy = "code"
				return spec
			}(),
			Prepare: lhbPrepare("ggtj", true),
		},
		{
			Name:        "broker-tops",
			Group:       "billboard",
			Description: "brokerage branches on the list in the last n days",
			ArgNames:    []string{"days"},
			Spec: sinaTable("broker-tops", sinaLHB, "table#dataTable", []extract.Column{
				text("broker"),
				optionalFloat("count"),
				optionalFloat("bamount"),
				optionalFloat("bcount"),
				optionalFloat("samount"),
				optionalFloat("scount"),
				text("top3"),
			}, nil),
			Prepare: lhbPrepare("yytj", true),
		},
		{
			Name:        "inst-tops",
			Group:       "billboard",
			Description: "institutional seat totals in the last n days",
			ArgNames:    []string{"days"},
			Spec: sinaTable("inst-tops", sinaLHB, "table#dataTable", []extract.Column{
				code("code"),
				text("name"),
				optionalFloat("bamount"),
				optionalFloat("bcount"),
				optionalFloat("samount"),
				optionalFloat("scount"),
				optionalFloat("net"),
			}, []int{2, 3}),
			Prepare: lhbPrepare("jgzz", true),
		},
		{
			Name:        "inst-detail",
			Group:       "billboard",
			Description: "institutional seat deals of the last trade day",
			Spec: func() extract.DatasetSpec {
				spec := sinaTable("inst-detail", sinaLHB, "table#dataTable", []extract.Column{
					code("code"),
					text("name"),
					date("date"),
					optionalFloat("bamount"),
					optionalFloat("samount"),
					text("type"),
				}, nil)
				spec.Columns[2].Optional = true
				return spec
			}(),
			Prepare: lhbPrepare("jgmx", false),
		},
	}
}
