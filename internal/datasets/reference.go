package datasets

import (
	"errors"
	"fmt"
	"gugu/internal/extract"
	"regexp"
	"strconv"
)

var (
	bonusRegex = regexp.MustCompile(`分红(\d+(?:\.\d+)?)元`)
	giftRegex  = regexp.MustCompile(`转增(\d+(?:\.\d+)?)股`)
	sendRegex  = regexp.MustCompile(`送(\d+(?:\.\d+)?)股`)
)

func firstFloat(re *regexp.Regexp, s string) float64 {
	match := re.FindStringSubmatch(s)
	if len(match) < 2 {
		return 0
	}
	f, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	return f
}

// planColumn derives a per 10 shares amount out of the free text
// distribution plan, like "10送3股转增2股派1.5元(含税)".
func planColumn(name string, parse func(plan string) float64) extract.DerivedColumn {
	return extract.DerivedColumn{
		Name: name,
		Compute: func(r extract.Record) (extract.Value, error) {
			plan, ok := r["plan"].Str()
			if !ok {
				return extract.Value{}, errors.New("no plan")
			}
			return extract.FloatValue(parse(plan)), nil
		},
	}
}

func prepareDistriPlan(_ Env, args Args) (Request, error) {
	year, err := args.intOr("year", 2015)
	if err != nil {
		return Request{}, err
	}
	if year < 1989 {
		return Request{}, invalid("year must be 1989 or later, got %d", year)
	}
	top, err := args.top(25)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Vars:       map[string]string{"year": strconv.Itoa(year)},
		MaxRecords: top,
	}, nil
}

func prepareYearQuarter(_ Env, args Args) (Request, error) {
	year, quarter, err := args.yearQuarter()
	if err != nil {
		return Request{}, err
	}
	return Request{Vars: map[string]string{
		"year":    strconv.Itoa(year),
		"quarter": strconv.Itoa(quarter),
	}}, nil
}

// quarterRange returns the report dates bounding a quarter, the first
// quarter starts at the end of the previous year.
func quarterRange(year, quarter int) (string, string) {
	switch quarter {
	case 1:
		return fmt.Sprintf("%d-12-31", year-1), fmt.Sprintf("%d-03-31", year)
	case 2:
		return fmt.Sprintf("%d-03-31", year), fmt.Sprintf("%d-06-30", year)
	case 3:
		return fmt.Sprintf("%d-06-30", year), fmt.Sprintf("%d-09-30", year)
	}
	return fmt.Sprintf("%d-09-30", year), fmt.Sprintf("%d-12-31", year)
}

func prepareFundHoldings(_ Env, args Args) (Request, error) {
	year, quarter, err := args.yearQuarter()
	if err != nil {
		return Request{}, err
	}
	start, end := quarterRange(year, quarter)
	return Request{Vars: map[string]string{"start": start, "end": end}}, nil
}

func prepareMonth(env Env, args Args) (Request, error) {
	today := env.Calendar.Today()
	year, err := args.intOr("year", today.Year())
	if err != nil {
		return Request{}, err
	}
	month, err := args.intOr("month", int(today.Month()))
	if err != nil {
		return Request{}, err
	}
	if year < 1989 {
		return Request{}, invalid("year must be 1989 or later, got %d", year)
	}
	if month < 1 || month > 12 {
		return Request{}, invalid("month must be between 1 and 12, got %d", month)
	}
	return Request{Vars: map[string]string{
		"year":  strconv.Itoa(year),
		"month": strconv.Itoa(month),
	}}, nil
}

var marginColumns = []extract.Column{
	{Name: "date", Kind: extract.KindDate, Layouts: []string{"2006-01-02T15:04:05", extract.DateLayout}},
	optionalFloat("close"),
	optionalFloat("zdf"),
	optionalFloat("rzye"),
	optionalFloat("rzyezb"),
	optionalFloat("rzmre"),
	optionalFloat("rzche"),
	optionalFloat("rzjmre"),
	optionalFloat("rqye"),
	optionalFloat("rqyl"),
	optionalFloat("rqmcl"),
	optionalFloat("rqchl"),
	optionalFloat("rqjmcl"),
	optionalFloat("rzrqye"),
	optionalFloat("rzrqyecz"),
}

var marginFields = []string{
	"tdate", "close", "zdf", "rzye", "rzyezb", "rzmre", "rzche", "rzjmre",
	"rqye", "rqyl", "rqmcl", "rqchl", "rqjmcl", "rzrqye", "rzrqyecz",
}

func margins(name, url string) extract.DatasetSpec {
	return extract.DatasetSpec{
		Name:  name,
		URL:   url,
		Shape: extract.ShapeQuasiJSON,
		QuasiJSON: extract.QuasiJSONOptions{
			Split:          "=",
			RowsPath:       "data",
			Fields:         marginFields,
			TotalPagesPath: "pages",
		},
		Columns:     marginColumns,
		NullOnEmpty: true,
		Pagination:  extract.Pagination{Style: extract.PaginateCounted, First: 1},
	}
}

const marginURL = "http://dcfm.eastmoney.com/em_mutisvcexpandinterface/api/js/get?type=FD01&token=70f12f2f4f091e459a279469fe49eca5&filter=(mkt={market})&st=tdate&sr=-1&p={page}&ps=50&js=var%20{rand}=%7Bpages:(tp),data:(x)%7D&rt={rand}"

func reference() []Dataset {
	return []Dataset{
		{
			Name:        "forecast",
			Group:       "reference",
			Description: "earnings forecasts of a report quarter",
			ArgNames:    []string{"year", "quarter"},
			Spec: sinaTable(
				"forecast",
				"http://vip.stock.finance.sina.com.cn/q/go.php/vFinanceAnalyze/kind/performance/index.phtml?s_i=&s_a=&s_c=&s_type=&reportdate={year}&quarter={quarter}&p={page}&num=60",
				"table.list_table",
				[]extract.Column{
					code("code"),
					text("name"),
					text("type"),
					{Name: "report_date", Kind: extract.KindDate, Optional: true},
					optionalFloat("pre_eps"),
					text("range"),
				},
				[]int{4, 5, 8},
			),
			Prepare: prepareYearQuarter,
		},
		{
			Name:        "distri-plan",
			Group:       "reference",
			Description: "dividend and share distribution plans, per 10 shares",
			ArgNames:    []string{"year", "top"},
			Spec: extract.DatasetSpec{
				Name:  "distri-plan",
				URL:   "http://quotes.money.163.com/data/caibao/fpyg.html?reportdate={year}&sort=declaredate&order=desc&page={page}",
				Shape: extract.ShapeHTMLTable,
				HTML: extract.HTMLOptions{
					Selector:          "table.fn_cm_table",
					SkipRows:          1,
					PageCountSelector: "div.mod_pages a",
				},
				Columns: []extract.Column{
					code("code"),
					text("name"),
					text("year"),
					text("plan"),
					{Name: "report_date", Kind: extract.KindDate, Optional: true},
				},
				Drop:        []int{0},
				NullOnEmpty: true,
				Derived: []extract.DerivedColumn{
					planColumn("divi", func(plan string) float64 {
						return firstFloat(bonusRegex, plan)
					}),
					planColumn("shares", func(plan string) float64 {
						return firstFloat(giftRegex, plan) + firstFloat(sendRegex, plan)
					}),
				},
				Pagination: extract.Pagination{Style: extract.PaginateCounted, First: 0},
			},
			Prepare: prepareDistriPlan,
		},
		{
			Name:        "fund-holdings",
			Group:       "reference",
			Description: "fund holdings of a report quarter (shares and value in 10k)",
			ArgNames:    []string{"year", "quarter"},
			Spec: extract.DatasetSpec{
				Name:  "fund-holdings",
				URL:   "http://quotes.money.163.com/hs/marketdata/service/jjcgph.php?host=/hs/marketdata/service/jjcgph.php&page={page}&query=start:{start};end:{end}&order=desc&count=60&type=query&req={rand}",
				Shape: extract.ShapeQuasiJSON,
				QuasiJSON: extract.QuasiJSONOptions{
					RowsPath:       "list",
					Fields:         []string{"SYMBOL", "SNAME", "PUBLISHDATE", "JJSL", "JJSLBIJIAO", "GUSHU", "GUSHUBIJIAO", "SHIZHI", "SCSTC27"},
					TotalPagesPath: "pagecount",
				},
				Columns: []extract.Column{
					code("code"),
					text("name"),
					{Name: "date", Kind: extract.KindDate, Optional: true},
					optionalFloat("nums"),
					optionalFloat("nlast"),
					scaled("count", 0, 10000),
					scaled("clast", 0, 10000),
					scaled("amount", 0, 10000),
					scaled("ratio", 100, 0),
				},
				NullOnEmpty: true,
				Pagination:  extract.Pagination{Style: extract.PaginateTokenized, First: 0},
			},
			Prepare: prepareFundHoldings,
		},
		{
			Name:        "ipo",
			Group:       "reference",
			Description: "new share issues",
			Spec: extract.DatasetSpec{
				Name:     "ipo",
				URL:      "http://vip.stock.finance.sina.com.cn/corp/view/vRPD_NewStockIssue.php?page={page}&cngem=0&orderBy=NetDate&orderType=desc",
				Encoding: extract.EncodingGBK,
				Shape:    extract.ShapeHTMLTable,
				HTML: extract.HTMLOptions{
					Selector:         "table#NewStockTable",
					SkipRows:         2,
					Strip:            []string{`<font color="red">*</font>`},
					NextText:         "下一页",
					NextTextSelector: "table.table2",
				},
				Columns: []extract.Column{
					code("code"),
					code("xcode"),
					text("name"),
					{Name: "ipo_date", Kind: extract.KindDate, Optional: true},
					{Name: "issue_date", Kind: extract.KindDate, Optional: true},
					optionalFloat("amount"),
					optionalFloat("markets"),
					optionalFloat("price"),
					optionalFloat("pe"),
					optionalFloat("limit"),
					optionalFloat("funds"),
					optionalFloat("ballot"),
				},
				Drop:        []int{12, 13, 14},
				NullOnEmpty: true,
				Pagination:  extract.Pagination{Style: extract.PaginateNextLink, First: 1},
			},
		},
		{
			Name:        "sh-margins",
			Group:       "reference",
			Description: "shanghai margin trading history",
			Spec:        margins("sh-margins", marginURL),
			Prepare:     marketPrepare("SH"),
		},
		{
			Name:        "sz-margins",
			Group:       "reference",
			Description: "shenzhen margin trading history",
			Spec:        margins("sz-margins", marginURL),
			Prepare:     marketPrepare("SZ"),
		},
		{
			Name:        "margin-total",
			Group:       "reference",
			Description: "margin trading history of both exchanges",
			Spec: margins(
				"margin-total",
				"http://dcfm.eastmoney.com/em_mutisvcexpandinterface/api/js/get?type=FD01&token=70f12f2f4f091e459a279469fe49eca5&filter=(mkt=0)&st=tdate&sr=-1&p={page}&ps=50&js=var%20{rand}=%7Bpages:(tp),data:(x)%7D&rt={rand}",
			),
		},
		{
			Name:        "restricted-lift",
			Group:       "reference",
			Description: "restricted shares lifted in a month (count in 10k shares)",
			ArgNames:    []string{"year", "month"},
			Spec: extract.DatasetSpec{
				Name:  "restricted-lift",
				URL:   "http://datainterface.eastmoney.com/EM_DataCenter/JS.aspx?type=FD&sty=BST&st=3&sr=true&fd={year}&stat={month}",
				Shape: extract.ShapeDelimited,
				Delimited: extract.DelimitedOptions{
					Trim:   3,
					RowSep: `","`,
				},
				Columns: []extract.Column{
					code("code"),
					text("name"),
					{Name: "date", Kind: extract.KindDate, Optional: true},
					scaled("count", 0, 10000),
					scaled("ratio", 100, 0),
				},
				Drop:   []int{0, 2},
				Ragged: true,
			},
			Prepare: prepareMonth,
		},
	}
}

func marketPrepare(market string) func(Env, Args) (Request, error) {
	return func(Env, Args) (Request, error) {
		return Request{Vars: map[string]string{"market": market}}, nil
	}
}

