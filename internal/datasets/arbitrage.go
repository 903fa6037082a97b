package datasets

import (
	"gugu/internal/extract"
	"regexp"
)

var recalcDate = regexp.MustCompile(`<span[^>]*>(\d{4}-\d{2}-\d{2})</span>`)

// jslFloat is a jisilu number, percentages carry a trailing "%".
func jslFloat(name string) extract.Column {
	return extract.Column{Name: name, Kind: extract.KindFloat, Strip: "%,", Optional: true}
}

// jslDate is a date that may be wrapped in a highlighting span.
func jslDate(name string) extract.Column {
	return extract.Column{Name: name, Kind: extract.KindDate, Extract: recalcDate, Optional: true}
}

// jisiluList describes the jisilu data tables: {"page": n, "rows": [{"id":
// .., "cell": {..}}]}. Past the last page the server answers with the last
// page again, its echoed page index is what ends the walk.
func jisiluList(name, path string, columns ...extract.Column) extract.DatasetSpec {
	fields := make([]string, len(columns))
	for i, c := range columns {
		fields[i] = c.Name
	}
	return extract.DatasetSpec{
		Name:  name,
		URL:   "https://www.jisilu.cn/data/" + path + "/?___jsl=LST___t={rand}&rp=50&page={page}",
		Shape: extract.ShapeQuasiJSON,
		QuasiJSON: extract.QuasiJSONOptions{
			RowsPath: "rows",
			CellPath: "cell",
			Fields:   fields,
			PagePath: "page",
		},
		Columns:     columns,
		NullOnEmpty: true,
		Pagination:  extract.Pagination{Style: extract.PaginateExhaust, First: 1},
	}
}

func arbitrage() []Dataset {
	return []Dataset{
		{
			Name:        "rating-fund-a",
			Group:       "arbitrage",
			Description: "rating fund a shares with coupons and down conversion margins",
			Spec: jisiluList("rating-fund-a", "sfnew/funda_list",
				code("funda_id"),
				text("funda_name"),
				jslFloat("funda_current_price"),
				jslFloat("funda_increase_rt"),
				jslFloat("funda_volume"),
				jslFloat("funda_value"),
				jslFloat("funda_discount_rt"),
				jslFloat("funda_coupon"),
				jslFloat("funda_coupon_next"),
				jslFloat("funda_profit_rt_next"),
				text("funda_index_id"),
				text("funda_index_name"),
				jslFloat("funda_index_increase_rt"),
				jslFloat("funda_lower_recalc_rt"),
				jslFloat("lower_recalc_profit_rt"),
				jslFloat("fundb_upper_recalc_rt"),
				jslFloat("funda_base_est_dis_rt_t1"),
				jslFloat("funda_base_est_dis_rt_t2"),
				text("funda_amount"),
				jslFloat("funda_amount_increase"),
				text("abrate"),
				jslDate("next_recalc_dt"),
			),
		},
		{
			Name:        "rating-fund-b",
			Group:       "arbitrage",
			Description: "rating fund b shares with leverage and conversion margins",
			Spec: jisiluList("rating-fund-b", "sfnew/fundb_list",
				code("fundb_id"),
				text("fundb_name"),
				text("fundb_base_fund_id"),
				text("funda_id"),
				text("funda_name"),
				jslFloat("coupon"),
				jslFloat("manage_fee"),
				jslFloat("funda_current_price"),
				jslFloat("funda_upper_price"),
				jslFloat("funda_lower_price"),
				jslFloat("funda_increase_rt"),
				jslFloat("fundb_current_price"),
				jslFloat("fundb_upper_price"),
				jslFloat("fundb_lower_price"),
				jslFloat("fundb_increase_rt"),
				jslFloat("fundb_volume"),
				jslFloat("fundb_value"),
				jslFloat("fundm_value"),
				jslFloat("fundb_discount_rt"),
				jslFloat("fundb_price_leverage_rt"),
				jslFloat("fundb_net_leverage_rt"),
				jslFloat("fundb_capital_rasising_rt"),
				jslFloat("fundb_lower_recalc_rt"),
				jslFloat("fundb_upper_recalc_rt"),
				jslFloat("b_est_val"),
				text("fundb_index_id"),
				text("fundb_index_name"),
				jslFloat("fundb_index_increase_rt"),
				text("funda_ratio"),
				text("fundb_ratio"),
				jslFloat("fundb_base_price"),
				jslFloat("fundB_amount"),
				jslFloat("fundB_amount_increase"),
				text("abrate"),
			),
		},
		{
			Name:        "rating-fund-m",
			Group:       "arbitrage",
			Description: "rating fund parents with their a and b shares",
			Spec: jisiluList("rating-fund-m", "sfnew/fundm_list",
				code("base_fund_id"),
				text("base_fund_nm"),
				text("market"),
				text("issue_dt"),
				jslFloat("manage_fee"),
				text("index_id"),
				text("index_nm"),
				jslFloat("lower_recalc_price"),
				jslFloat("a_ratio"),
				jslFloat("b_ratio"),
				jslDate("next_recalc_dt"),
				text("fundA_id"),
				text("fundA_nm"),
				jslFloat("coupon"),
				jslFloat("coupon_next"),
				text("fundB_id"),
				text("fundB_nm"),
				jslFloat("price"),
				jslFloat("base_lower_recalc_rt"),
				text("abrate"),
			),
		},
		{
			Name:        "con-bonds",
			Group:       "arbitrage",
			Description: "convertible bonds with conversion value and premium",
			Spec: jisiluList("con-bonds", "cbnew/cb_list",
				code("bond_id"),
				text("bond_nm"),
				text("stock_id"),
				text("stock_nm"),
				text("market"),
				jslFloat("convert_price"),
				text("convert_dt"),
				text("issue_dt"),
				text("maturity_dt"),
				text("next_put_dt"),
				jslFloat("put_price"),
				text("put_count_days"),
				text("put_total_days"),
				jslFloat("redeem_price"),
				jslFloat("redeem_price_ratio"),
				text("redeem_count_days"),
				text("redeem_total_days"),
				jslFloat("orig_iss_amt"),
				jslFloat("curr_iss_amt"),
				text("rating_cd"),
				text("issuer_rating_cd"),
				text("guarantor"),
				text("active_fl"),
				jslFloat("ration_rt"),
				jslFloat("pb"),
				jslFloat("sprice"),
				jslFloat("sincrease_rt"),
				text("last_time"),
				jslFloat("convert_value"),
				jslFloat("premium_rt"),
				jslFloat("year_left"),
				jslFloat("ytm_rt"),
				jslFloat("ytm_rt_tax"),
				jslFloat("price"),
				jslFloat("increase_rt"),
				jslFloat("volume"),
				jslFloat("force_redeem_price"),
				jslFloat("put_convert_price"),
				jslFloat("convert_amt_ratio"),
				text("stock_cd"),
				text("pre_bond_id"),
			),
		},
		{
			Name:        "closed-stock-fund",
			Group:       "arbitrage",
			Description: "closed end stock funds with annualized discount",
			Spec: jisiluList("closed-stock-fund", "cf/cf_list",
				code("fund_id"),
				text("fund_nm"),
				text("issue_dt"),
				text("duration"),
				text("last_time"),
				jslFloat("price"),
				jslFloat("increase_rt"),
				jslFloat("volume"),
				jslFloat("net_value"),
				text("nav_dt"),
				jslFloat("realtime_estimate_value"),
				jslFloat("discount_rt"),
				jslFloat("left_year"),
				jslFloat("annualize_dscnt_rt"),
				jslFloat("quote_incr_rt"),
				jslFloat("nav_incr_rt"),
				jslFloat("spread"),
				jslFloat("stock_ratio"),
				text("report_dt"),
				jslFloat("daily_nav_incr_rt"),
				jslFloat("daily_spread"),
			),
		},
		{
			Name:        "closed-bond-fund",
			Group:       "arbitrage",
			Description: "closed end bond funds with annualized discount",
			Spec: jisiluList("closed-bond-fund", "cf/cbf_list",
				code("fund_id"),
				text("fund_nm"),
				text("maturity_dt"),
				jslFloat("left_year"),
				jslFloat("est_val"),
				jslFloat("discount_rt"),
				jslFloat("annual_discount_rt"),
				jslFloat("trade_price"),
				jslFloat("increase_rt"),
				jslFloat("volume"),
				text("last_time"),
				jslFloat("fund_nav"),
				text("last_chg_dt"),
				jslFloat("price_incr_rt"),
				jslFloat("stock_ratio"),
				jslFloat("bond_ratio"),
				text("report_dt"),
				text("is_outdate"),
			),
		},
		{
			Name:        "ah-ratio",
			Group:       "arbitrage",
			Description: "dual listed a and h shares with the h/a price ratio",
			Spec: jisiluList("ah-ratio", "ha/index2list",
				code("a_code"),
				text("stock_name"),
				jslFloat("a_price"),
				jslFloat("a_increase_rt"),
				text("h_code"),
				jslFloat("h_price"),
				jslFloat("h_increase_rt"),
				text("last_time"),
				jslFloat("rmb_price"),
				jslFloat("hk_currency"),
				jslFloat("ha_ratio"),
				jslFloat("h_free_shares"),
				jslFloat("a_free_shares"),
			),
		},
		{
			Name:        "dividend-rate",
			Group:       "arbitrage",
			Description: "dividend yields with valuation and quality averages",
			Spec: jisiluList("dividend-rate", "stock/dividend_rate_list",
				code("stock_id"),
				text("stock_nm"),
				jslFloat("dividend_rate"),
				jslFloat("dividend_rate2"),
				text("ipo_date"),
				jslFloat("price"),
				jslFloat("volume"),
				jslFloat("increase_rt"),
				jslFloat("pe"),
				jslFloat("pb"),
				jslFloat("total_value"),
				jslFloat("eps_growth_ttm"),
				jslFloat("roe"),
				jslFloat("revenue_average"),
				jslFloat("profit_average"),
				jslFloat("roe_average"),
				jslFloat("pb_temperature"),
				jslFloat("pe_temperature"),
				jslFloat("int_debt_rate"),
				jslFloat("cashflow_average"),
				jslFloat("dividend_rate_average"),
				jslFloat("dividend_rate5"),
				text("industry_nm"),
				text("active_flg"),
				text("last_time"),
			),
		},
		{
			Name:        "stock-lof",
			Group:       "arbitrage",
			Description: "stock lof funds with estimated value and discount",
			Spec: jisiluList("stock-lof", "lof/stock_lof_list",
				code("fund_id"),
				text("fund_nm"),
				jslFloat("price"),
				jslFloat("increase_rt"),
				jslFloat("volume"),
				jslFloat("amount"),
				jslFloat("fund_nav"),
				text("nav_dt"),
				jslFloat("estimate_value"),
				jslFloat("discount_rt"),
				jslFloat("stock_ratio"),
				jslFloat("stock_increase_rt"),
				jslFloat("apply_fee"),
				jslFloat("redeem_fee"),
				text("apply_redeem_status"),
			),
		},
		{
			Name:        "index-lof",
			Group:       "arbitrage",
			Description: "index lof funds with estimated value and discount",
			Spec: jisiluList("index-lof", "lof/index_lof_list",
				code("fund_id"),
				text("fund_nm"),
				jslFloat("price"),
				jslFloat("increase_rt"),
				jslFloat("volume"),
				jslFloat("amount"),
				jslFloat("fund_nav"),
				text("nav_dt"),
				jslFloat("estimate_value"),
				jslFloat("discount_rt"),
				text("index_id"),
				text("index_nm"),
				jslFloat("index_increase_rt"),
				jslFloat("apply_fee"),
				jslFloat("redeem_fee"),
				text("apply_redeem_status"),
			),
		},
		{
			Name:        "index-etf",
			Group:       "marketdata",
			Description: "index etfs with size, discount and index valuation",
			Spec: jisiluList("index-etf", "etf/etf_list",
				code("fund_id"),
				text("fund_nm"),
				text("index_id"),
				jslFloat("creation_unit"),
				jslFloat("amount"),
				jslFloat("unit_total"),
				jslFloat("unit_incr"),
				jslFloat("price"),
				jslFloat("volume"),
				jslFloat("increase_rt"),
				jslFloat("estimate_value"),
				jslFloat("discount_rt"),
				jslFloat("fund_nav"),
				text("nav_dt"),
				text("index_nm"),
				jslFloat("index_increase_rt"),
				jslFloat("pe"),
				jslFloat("pb"),
			),
		},
	}
}
