// Package symbol formats raw security codes into the prefixed symbols quote
// sites expect.
package symbol

import "strings"

// indexes whose 6 digit code collides with a stock code on the other exchange.
var indexes = map[string]string{
	"sh":    "sh000001",
	"sz":    "sz399001",
	"hs300": "sh000300",
	"sz50":  "sh000016",
	"zxb":   "sz399005",
	"cyb":   "sz399006",
	"zz500": "sh000905",
	"zz100": "sz399903",
}

// For returns the exchange prefixed symbol of a 6 digit code (sh600000,
// sz000001) or of a named index. Anything else yields an empty string.
func For(code string) string {
	code = strings.TrimSpace(code)
	if symbol, ok := indexes[code]; ok {
		return symbol
	}
	if len(code) != 6 {
		return ""
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return ""
		}
	}
	switch code[0] {
	case '5', '6', '9':
		return "sh" + code
	}
	return "sz" + code
}
