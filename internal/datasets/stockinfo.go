package datasets

import (
	"gugu/internal/extract"
	"strconv"
)

const sinaFinance = "http://vip.stock.finance.sina.com.cn/q/go.php/vFinanceAnalyze/kind/{kind}/index.phtml?s_i=&s_a=&s_c=&reportdate={year}&quarter={quarter}&p={page}&num=60"

func financePrepare(kind string) func(Env, Args) (Request, error) {
	return func(env Env, args Args) (Request, error) {
		req, err := prepareYearQuarter(env, args)
		if err != nil {
			return Request{}, err
		}
		req.Vars["kind"] = kind
		return req, nil
	}
}

// prepareProfiles asks askci for the profiles as of the end of the current
// year.
func prepareProfiles(env Env, _ Args) (Request, error) {
	return Request{Vars: map[string]string{"year": strconv.Itoa(env.Calendar.Today().Year())}}, nil
}

func stockinfo() []Dataset {
	return []Dataset{
		{
			Name:        "report",
			Group:       "stockinfo",
			Description: "main financial indicators of a report quarter",
			ArgNames:    []string{"year", "quarter"},
			Spec: sinaTable("report", sinaFinance, "table.list_table", []extract.Column{
				code("code"),
				text("name"),
				optionalFloat("eps"),
				optionalFloat("eps_yoy"),
				optionalFloat("bvps"),
				optionalFloat("roe"),
				optionalFloat("epcf"),
				optionalFloat("net_profits"),
				optionalFloat("profits_yoy"),
				text("distrib"),
				{Name: "report_date", Kind: extract.KindDate, Optional: true},
			}, []int{11}),
			Prepare: financePrepare("mainindex"),
		},
		{
			Name:        "profit",
			Group:       "stockinfo",
			Description: "profitability of a report quarter",
			ArgNames:    []string{"year", "quarter"},
			Spec: sinaTable("profit", sinaFinance, "table.list_table", []extract.Column{
				code("code"),
				text("name"),
				optionalFloat("roe"),
				optionalFloat("net_profit_ratio"),
				optionalFloat("gross_profit_rate"),
				optionalFloat("net_profits"),
				optionalFloat("eps"),
				optionalFloat("business_income"),
				optionalFloat("bips"),
			}, nil),
			Prepare: financePrepare("profit"),
		},
		{
			Name:        "operation",
			Group:       "stockinfo",
			Description: "operating capability (turnover rates and days) of a report quarter",
			ArgNames:    []string{"year", "quarter"},
			Spec: sinaTable("operation", sinaFinance, "table.list_table", []extract.Column{
				code("code"),
				text("name"),
				optionalFloat("arturnover"),
				optionalFloat("arturndays"),
				optionalFloat("inventory_turnover"),
				optionalFloat("inventory_days"),
				optionalFloat("currentasset_turnover"),
				optionalFloat("currentasset_days"),
			}, nil),
			Prepare: financePrepare("operation"),
		},
		{
			Name:        "growth",
			Group:       "stockinfo",
			Description: "growth rates of a report quarter",
			ArgNames:    []string{"year", "quarter"},
			Spec: sinaTable("growth", sinaFinance, "table.list_table", []extract.Column{
				code("code"),
				text("name"),
				optionalFloat("mbrg"),
				optionalFloat("nprg"),
				optionalFloat("nav"),
				optionalFloat("targ"),
				optionalFloat("epsg"),
				optionalFloat("seg"),
			}, nil),
			Prepare: financePrepare("grow"),
		},
		{
			Name:        "debt-paying",
			Group:       "stockinfo",
			Description: "solvency ratios of a report quarter",
			ArgNames:    []string{"year", "quarter"},
			Spec: sinaTable("debt-paying", sinaFinance, "table.list_table", []extract.Column{
				code("code"),
				text("name"),
				optionalFloat("currentratio"),
				optionalFloat("quickratio"),
				optionalFloat("cashratio"),
				optionalFloat("icratio"),
				optionalFloat("sheqratio"),
				optionalFloat("adratio"),
			}, nil),
			Prepare: financePrepare("debtpaying"),
		},
		{
			Name:        "cash-flow",
			Group:       "stockinfo",
			Description: "cash flow ratios of a report quarter",
			ArgNames:    []string{"year", "quarter"},
			Spec: sinaTable("cash-flow", sinaFinance, "table.list_table", []extract.Column{
				code("code"),
				text("name"),
				optionalFloat("cf_sales"),
				optionalFloat("rateofreturn"),
				optionalFloat("cf_nm"),
				optionalFloat("cf_liabilities"),
				optionalFloat("cashflowratio"),
			}, nil),
			Prepare: financePrepare("cashflow"),
		},
		{
			Name:        "stock-profiles",
			Group:       "stockinfo",
			Description: "city, staff, listing date, industry and main business of every listed company",
			Spec: extract.DatasetSpec{
				Name:  "stock-profiles",
				URL:   "http://s.askci.com/stock/a/?reportTime={year}-12-31&pageNum={page}",
				Shape: extract.ShapeHTMLTable,
				HTML: extract.HTMLOptions{
					Selector: "table#myTable04 tbody",
				},
				Columns: []extract.Column{
					code("code"),
					text("name"),
					text("city"),
					{Name: "staff", Kind: extract.KindFloat, Strip: ",", Optional: true},
					{Name: "date", Kind: extract.KindDate, Optional: true},
					text("industry"),
					text("pro_type"),
					text("main"),
				},
				Drop:        []int{0, 3, 5, 6, 7, 10, 11},
				NullOnEmpty: true,
				Pagination:  extract.Pagination{Style: extract.PaginateExhaust, First: 1},
			},
			Prepare: prepareProfiles,
		},
	}
}
