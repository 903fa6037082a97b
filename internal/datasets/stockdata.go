package datasets

import (
	"gugu/internal/components/chrono"
	"gugu/internal/extract"
	"slices"
	"strconv"
	"strings"
	"time"
)

// tradeDate reads "date", defaulting to the last trade day, and rejects
// days the exchanges were closed.
func tradeDate(env Env, args Args) (string, error) {
	raw, given := args.str("date")
	if !given {
		return env.Calendar.LastTradeDate().Format(chrono.DateLayout), nil
	}
	date, err := args.dateOr("date", env.Calendar.Today())
	if err != nil {
		return "", err
	}
	if !env.Calendar.IsTradeDay(date) {
		return "", invalid("%s is not a trade day", raw)
	}
	return date.Format(chrono.DateLayout), nil
}

func prepareHistoryTicks(env Env, args Args) (Request, error) {
	symbol, err := args.symbol()
	if err != nil {
		return Request{}, err
	}
	day, err := tradeDate(env, args)
	if err != nil {
		return Request{}, err
	}
	return Request{Vars: map[string]string{"symbol": symbol, "date": day}}, nil
}

func prepareBigDeal(env Env, args Args) (Request, error) {
	symbol, err := args.symbol()
	if err != nil {
		return Request{}, err
	}
	day, err := tradeDate(env, args)
	if err != nil {
		return Request{}, err
	}
	vol, err := args.intOr("vol", 400)
	if err != nil {
		return Request{}, err
	}
	if vol <= 0 {
		return Request{}, invalid("vol must be positive, got %d", vol)
	}
	return Request{Vars: map[string]string{
		"symbol": symbol,
		"date":   day,
		// lots of 100 shares
		"volume": strconv.Itoa(vol * 100),
	}}, nil
}

var klineTypes = map[string]string{"D": "day", "W": "week", "M": "month"}

var adjustments = []string{"qfq", "hfq", "none"}

// tencentKline is the qq kline endpoint, one request returns at most 640
// bars.
const tencentKline = "http://web.ifzq.gtimg.cn/appstock/app/fqkline/get?_var=kline_{flag}&param={symbol},{ktype},{start},{end},640,{fq}&r={rand}"

func prepareHistory(env Env, args Args) (Request, error) {
	symbol, err := args.symbol()
	if err != nil {
		return Request{}, err
	}
	code, _ := args.str("code")

	raw, ok := args.str("ktype")
	if !ok {
		raw = "D"
	}
	ktype, ok := klineTypes[strings.ToUpper(raw)]
	if !ok {
		return Request{}, invalid("ktype must be D, W or M, got %q", raw)
	}
	fq, ok := args.str("autype")
	if !ok {
		fq = "qfq"
	}
	if !slices.Contains(adjustments, fq) {
		return Request{}, invalid("autype must be one of %v, got %q", adjustments, fq)
	}
	// funds and index aliases like "hs300" have no adjusted prices
	if fq == "none" || strings.HasPrefix(code, "1") || strings.HasPrefix(code, "5") || len(code) != 6 {
		fq = ""
	}

	req := Request{
		Vars: map[string]string{
			"symbol": symbol,
			"ktype":  ktype,
			"fq":     fq,
			"flag":   fq + ktype,
			"start":  "",
			"end":    "",
		},
		Constants: []Constant{{Name: "code", Value: code}},
	}

	_, hasStart := args.str("start")
	_, hasEnd := args.str("end")
	if !hasStart && !hasEnd {
		return req, nil
	}
	start, err := args.dateOr("start", time.Date(1990, 12, 19, 0, 0, 0, 0, chrono.Shanghai()))
	if err != nil {
		return Request{}, err
	}
	end, err := args.dateOr("end", env.Calendar.Today())
	if err != nil {
		return Request{}, err
	}
	if end.Before(start) {
		return Request{}, invalid("end %s is before start %s", end.Format(chrono.DateLayout), start.Format(chrono.DateLayout))
	}
	req.Batches = yearWindows(start, end)
	return req, nil
}

// yearWindows splits [start, end] at year boundaries, a year of daily bars
// fits in one kline request.
func yearWindows(start, end time.Time) []map[string]string {
	var windows []map[string]string
	for from := start; !from.After(end); {
		to := time.Date(from.Year(), 12, 31, 0, 0, 0, 0, from.Location())
		if to.After(end) {
			to = end
		}
		windows = append(windows, map[string]string{
			"start": from.Format(chrono.DateLayout),
			"end":   to.Format(chrono.DateLayout),
		})
		from = time.Date(from.Year()+1, 1, 1, 0, 0, 0, 0, from.Location())
	}
	return windows
}

func prepareXRXD(env Env, args Args) (Request, error) {
	symbol, err := args.symbol()
	if err != nil {
		return Request{}, err
	}
	date, err := args.dateOr("date", env.Calendar.Today())
	if err != nil {
		return Request{}, err
	}
	day := date.Format(chrono.DateLayout)
	return Request{Vars: map[string]string{
		"symbol": symbol,
		"ktype":  "day",
		"fq":     "qfq",
		"flag":   "qfqday",
		"start":  day,
		"end":    day,
	}}, nil
}

func prepareTodayTicks(env Env, args Args) (Request, error) {
	symbol, err := args.symbol()
	if err != nil {
		return Request{}, err
	}
	today := env.Calendar.Today()
	if !env.Calendar.IsTradeDay(today) {
		return Request{}, invalid("today is not a trade day")
	}
	if env.Calendar.Hour() < 9 {
		return Request{}, invalid("trading has not started yet")
	}
	return Request{Vars: map[string]string{"symbol": symbol, "date": today.Format(chrono.DateLayout)}}, nil
}

func tickColumns() []extract.Column {
	return []extract.Column{
		text("time"),
		float("price"),
		{Name: "pchange", Kind: extract.KindFloat, Strip: "%", Optional: true},
		optionalFloat("change"),
		float("volume"),
		float("amount"),
		text("type"),
	}
}

func stockdata() []Dataset {
	return []Dataset{
		{
			Name:        "history-ticks",
			Group:       "stockdata",
			Description: "tick by tick trades of one security on a trade day",
			ArgNames:    []string{"code", "date"},
			Spec: extract.DatasetSpec{
				Name:     "history-ticks",
				URL:      "http://market.finance.sina.com.cn/transHis.php?date={date}&symbol={symbol}&page={page}",
				Encoding: extract.EncodingGBK,
				Shape:    extract.ShapeHTMLTable,
				HTML: extract.HTMLOptions{
					Selector: "table#datatbl tbody",
				},
				Columns:     tickColumns(),
				NullOnEmpty: true,
				Pagination:  extract.Pagination{Style: extract.PaginateExhaust, First: 1},
			},
			Prepare: prepareHistoryTicks,
		},
		{
			Name:        "big-deal",
			Group:       "stockdata",
			Description: "block trades of one security at or above vol lots",
			ArgNames:    []string{"code", "date", "vol"},
			Spec: extract.DatasetSpec{
				Name:     "big-deal",
				URL:      "http://vip.stock.finance.sina.com.cn/quotes_service/view/cn_bill_download.php?symbol={symbol}&num=60000&page=1&sort=ticktime&asc=0&volume={volume}&amount=0&type=0&day={date}",
				Encoding: extract.EncodingGBK,
				Shape:    extract.ShapeDelimited,
				Delimited: extract.DelimitedOptions{
					SkipRows:   1,
					MinBodyLen: 100,
				},
				Columns: []extract.Column{
					code("code"),
					text("name"),
					text("time"),
					float("price"),
					float("volume"),
					optionalFloat("preprice"),
					text("type"),
				},
			},
			Prepare: prepareBigDeal,
		},
		{
			Name:        "today-ticks",
			Group:       "stockdata",
			Description: "tick by tick trades of one security so far today",
			ArgNames:    []string{"code"},
			Spec: extract.DatasetSpec{
				Name:     "today-ticks",
				URL:      "http://vip.stock.finance.sina.com.cn/quotes_service/view/vMS_tradedetail.php?symbol={symbol}&date={date}&page={page}",
				Encoding: extract.EncodingGBK,
				Shape:    extract.ShapeHTMLTable,
				HTML: extract.HTMLOptions{
					Selector: "table#datatbl tbody",
				},
				Columns:     tickColumns(),
				NullOnEmpty: true,
				Pagination:  extract.Pagination{Style: extract.PaginateExhaust, First: 1},
			},
			Prepare: prepareTodayTicks,
		},
		{
			Name:        "history",
			Group:       "stockdata",
			Description: "daily, weekly or monthly bars of a security or index, start and end split by year",
			ArgNames:    []string{"code", "start", "end", "ktype", "autype"},
			Spec: extract.DatasetSpec{
				Name:  "history",
				URL:   tencentKline,
				Shape: extract.ShapeQuasiJSON,
				QuasiJSON: extract.QuasiJSONOptions{
					Split:    "=",
					RowsPath: "data.{symbol}.{flag}",
				},
				Columns: []extract.Column{
					date("date"),
					float("open"),
					float("close"),
					float("high"),
					float("low"),
					float("volume"),
				},
				// a bar on an ex-dividend day carries the distribution as a
				// seventh element
				Ragged: true,
			},
			Prepare: prepareHistory,
		},
		{
			Name:        "xrxd",
			Group:       "stockdata",
			Description: "ex-rights and ex-dividend details of a security on a date",
			ArgNames:    []string{"code", "date"},
			Spec: extract.DatasetSpec{
				Name:  "xrxd",
				URL:   tencentKline,
				Shape: extract.ShapeQuasiJSON,
				QuasiJSON: extract.QuasiJSONOptions{
					Split:    "=",
					RowsPath: "data.{symbol}.{flag}.#.6",
					Fields:   []string{"nd", "fh_sh", "djr", "cqr", "FHcontent"},
				},
				Columns: []extract.Column{
					text("nd"),
					optionalFloat("fh_sh"),
					{Name: "djr", Kind: extract.KindDate, Optional: true},
					{Name: "cqr", Kind: extract.KindDate, Optional: true},
					text("FHcontent"),
				},
				NullOnEmpty: true,
			},
			Prepare: prepareXRXD,
		},
	}
}
