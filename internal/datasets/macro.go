package datasets

import (
	"fmt"
	"gugu/internal/extract"
	"regexp"
)

var macroData = regexp.MustCompile(`(?s)data:(\[.*\])\s*\}`)

// sinaMacro is one table of the sina macro economy service, rows are
// positional arrays selected by category and event.
func sinaMacro(name, cate string, event, num int, columns ...extract.Column) extract.DatasetSpec {
	return extract.DatasetSpec{
		Name: name,
		URL: fmt.Sprintf(
			"http://money.finance.sina.com.cn/mac/api/jsonp.php/SINAREMOTECALLCALLBACK{rand}/MacPage_Service.get_pagedata?cate=%s&event=%d&from=0&num=%d&condition=&_={rand}",
			cate, event, num,
		),
		Encoding:    extract.EncodingGBK,
		Shape:       extract.ShapeQuasiJSON,
		QuasiJSON:   extract.QuasiJSONOptions{Envelope: macroData},
		Columns:     columns,
		NullOnEmpty: true,
	}
}

func optionalFloats(names ...string) []extract.Column {
	columns := make([]extract.Column, len(names))
	for i, name := range names {
		columns[i] = optionalFloat(name)
	}
	return columns
}

func macroDataset(name, description string, spec extract.DatasetSpec) Dataset {
	return Dataset{Name: name, Group: "macro", Description: description, Spec: spec}
}

func macro() []Dataset {
	return []Dataset{
		macroDataset("gdp-year", "yearly gross domestic product (100m yuan)", sinaMacro("gdp-year", "nation", 0, 70,
			append([]extract.Column{text("year")}, optionalFloats(
				"gdp", "pc_gdp", "gnp", "pi", "si", "industry", "cons_industry", "ti", "trans_industry", "lbdy",
			)...)...,
		)),
		macroDataset("gdp-quarter", "quarterly gross domestic product and growth (100m yuan, %)", sinaMacro("gdp-quarter", "nation", 1, 250,
			append([]extract.Column{text("quarter")}, optionalFloats(
				"gdp", "gdp_yoy", "pi", "pi_yoy", "si", "si_yoy", "ti", "ti_yoy",
			)...)...,
		)),
		macroDataset("gdp-demands", "contribution of the three demands to gdp (%)", sinaMacro("gdp-demands", "nation", 4, 80,
			append([]extract.Column{text("year")}, optionalFloats(
				"cons_to", "cons_rate", "asset_to", "asset_rate", "goods_to", "goods_rate",
			)...)...,
		)),
		macroDataset("gdp-pull", "pull of the three industries on gdp growth (%)", sinaMacro("gdp-pull", "nation", 5, 60,
			append([]extract.Column{text("year")}, optionalFloats(
				"gdp_yoy", "pi", "si", "industry", "ti",
			)...)...,
		)),
		macroDataset("gdp-contrib", "contribution of the three industries to gdp growth (%)", sinaMacro("gdp-contrib", "nation", 6, 60,
			append([]extract.Column{text("year")}, optionalFloats(
				"gdp_yoy", "pi", "si", "industry", "ti",
			)...)...,
		)),
		macroDataset("cpi", "monthly consumer price index", sinaMacro("cpi", "price", 0, 600,
			text("month"), optionalFloat("cpi"),
		)),
		macroDataset("ppi", "monthly producer price indexes", sinaMacro("ppi", "price", 3, 600,
			append([]extract.Column{text("month")}, optionalFloats(
				"ppiip", "ppi", "qm", "rmi", "pi", "cg", "food", "clothing", "roeu", "dcg",
			)...)...,
		)),
		macroDataset("deposit-rate", "benchmark deposit rates by deposit type (%)", sinaMacro("deposit-rate", "fininfo", 2, 600,
			text("date"), text("deposit_type"), optionalFloat("rate"),
		)),
		macroDataset("loan-rate", "benchmark loan rates by loan type (%)", sinaMacro("loan-rate", "fininfo", 3, 800,
			text("date"), text("loan_type"), optionalFloat("rate"),
		)),
		macroDataset("rrr", "required reserve ratio changes (%)", sinaMacro("rrr", "fininfo", 4, 100,
			text("date"), optionalFloat("before"), optionalFloat("now"), optionalFloat("changed"),
		)),
		macroDataset("money-supply", "monthly money supply (100m yuan) and growth (%)", sinaMacro("money-supply", "fininfo", 1, 600,
			append([]extract.Column{text("month")}, optionalFloats(
				"m2", "m2_yoy", "m1", "m1_yoy", "m0", "m0_yoy", "cd", "cd_yoy",
				"qm", "qm_yoy", "ftd", "ftd_yoy", "sd", "sd_yoy", "rests", "rests_yoy",
			)...)...,
		)),
		macroDataset("money-supply-bal", "year end money supply balances (100m yuan)", sinaMacro("money-supply-bal", "fininfo", 0, 200,
			append([]extract.Column{text("year")}, optionalFloats(
				"m2", "m1", "m0", "cd", "qm", "ftd", "sd", "rests",
			)...)...,
		)),
	}
}
