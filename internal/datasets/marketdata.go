package datasets

import (
	"errors"
	"gugu/internal/extract"
	"strings"
)

var indexSymbols = []string{
	"sh000001", "sh000002", "sh000003", "sh000008", "sh000009", "sh000010", "sh000011", "sh000012",
	"sh000016", "sh000017", "sh000300", "sh000905", "sz399001", "sz399002", "sz399003", "sz399004",
	"sz399005", "sz399006", "sz399008", "sz399100", "sz399101", "sz399106", "sz399107", "sz399108",
	"sz399333", "sz399606",
}

// indexChange is the percent change of close over preclose.
var indexChange = extract.DerivedColumn{
	Name: "change",
	Compute: func(r extract.Record) (extract.Value, error) {
		closing, ok := r["close"].Float()
		if !ok {
			return extract.Value{}, errors.New("no close")
		}
		preclose, ok := r["preclose"].Float()
		if !ok || preclose == 0 {
			return extract.Value{}, errors.New("no preclose")
		}
		return extract.FloatValue((closing/preclose - 1) * 100), nil
	},
}

func marketdata() []Dataset {
	return []Dataset{
		{
			Name:        "index",
			Group:       "marketdata",
			Description: "real time quotes of the main sh and sz indexes (amount in 100m yuan)",
			Spec: extract.DatasetSpec{
				Name:     "index",
				URL:      "http://hq.sinajs.cn/rn={rand}&list=" + strings.Join(indexSymbols, ","),
				Encoding: extract.EncodingGBK,
				Shape:    extract.ShapeDelimited,
				Delimited: extract.DelimitedOptions{
					Replace: []string{"var hq_str_", "", `="`, ",", `";`, "", `"`, ""},
				},
				Columns: []extract.Column{
					text("code"),
					text("name"),
					float("open"),
					float("preclose"),
					float("close"),
					float("high"),
					float("low"),
					float("volume"),
					{Name: "amount", Kind: extract.KindFloat, Divide: 1e8},
				},
				// bid and ask
				Drop:    []int{7, 8},
				Derived: []extract.DerivedColumn{indexChange},
				// the date, time and order book follow amount
				Ragged: true,
			},
		},
		{
			Name:        "latest",
			Group:       "marketdata",
			Description: "real time quotes of every a-share",
			Spec: extract.DatasetSpec{
				Name:     "latest",
				URL:      "http://vip.stock.finance.sina.com.cn/quotes_service/api/json_v2.php/Market_Center.getHQNodeData?num=80&sort=code&asc=0&node=hs_a&symbol=&_s_r_a=page&page={page}",
				Encoding: extract.EncodingGBK,
				Shape:    extract.ShapeQuasiJSON,
				QuasiJSON: extract.QuasiJSONOptions{
					EndSentinel: "null",
					Fields: []string{
						"symbol", "code", "name", "changepercent", "trade", "open", "high", "low",
						"settlement", "volume", "turnoverratio", "amount", "per", "pb", "mktcap", "nmc",
					},
				},
				Columns: []extract.Column{
					code("code"),
					text("name"),
					optionalFloat("changepercent"),
					optionalFloat("trade"),
					optionalFloat("open"),
					optionalFloat("high"),
					optionalFloat("low"),
					optionalFloat("settlement"),
					optionalFloat("volume"),
					optionalFloat("turnoverratio"),
					optionalFloat("amount"),
					optionalFloat("per"),
					optionalFloat("pb"),
					optionalFloat("mktcap"),
					optionalFloat("nmc"),
				},
				Drop:        []int{0},
				NullOnEmpty: true,
				Pagination:  extract.Pagination{Style: extract.PaginateExhaust, First: 1},
			},
		},
	}
}
