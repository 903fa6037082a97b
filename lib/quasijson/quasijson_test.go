package quasijson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "margin page",
			input:    `{pages:3,data:[["2019-01-02",2465.29]]}`,
			expected: `{"pages":3,"data":[["2019-01-02",2465.29]]}`,
		},
		{
			name:     "market node rows",
			input:    `[{symbol:"sh600000",code:"600000",trade:"10.070"},{symbol:"sh600004",code:"600004",trade:"16.500"}]`,
			expected: `[{"symbol":"sh600000","code":"600000","trade":"10.070"},{"symbol":"sh600004","code":"600004","trade":"16.500"}]`,
		},
		{
			name:     "nested leading key",
			input:    `{config:{all:1, page:2},data:[]}`,
			expected: `{"config":{"all":1, "page":2},"data":[]}`,
		},
		{
			name:     "whitespace around key",
			input:    "{ pages : 1 ,\n data : [] }",
			expected: "{ \"pages\" : 1 ,\n \"data\" : [] }",
		},
		{
			name:     "strings are left alone",
			input:    `{time:"09:30,open:1",note:"{a:b}"}`,
			expected: `{"time":"09:30,open:1","note":"{a:b}"}`,
		},
		{
			name:     "escaped quote inside string",
			input:    `{name:"a \",b:\" c",v:1}`,
			expected: `{"name":"a \",b:\" c","v":1}`,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			result, err := Normalize(test.input)
			require.NoError(t, err)
			require.Equal(t, test.expected, result)
		})
	}
}

func TestNormalizeValidJsonUnchanged(t *testing.T) {
	inputs := []string{
		`{"pages":3,"data":[]}`,
		`[1,2,3]`,
		`{"a":{"b":{"c":null}},"d":"e,f:g"}`,
		`"just a string"`,
		`  {"spaced" : true }  `,
	}
	for _, input := range inputs {
		result, err := Normalize(input)
		require.NoError(t, err)
		require.Equal(t, input, result)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"rzye", "123.5"},
		{"rqye", "0"},
		{"tdate", `"2019-01-02"`},
		{"name", `"浦发银行"`},
		{"flag", "true"},
	}

	var sb strings.Builder
	sb.WriteString("{first:1")
	for _, p := range pairs {
		sb.WriteString(fmt.Sprintf(",%s:%s", p[0], p[1]))
	}
	sb.WriteString("}")

	normalized, err := Normalize(sb.String())
	require.NoError(t, err)

	var parsed map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(normalized), &parsed))
	require.Len(t, parsed, len(pairs)+1)
	for _, p := range pairs {
		require.Equal(t, p[1], string(parsed[p[0]]))
	}
}

func TestNormalizeFailsClosed(t *testing.T) {
	inputs := []string{
		`{pages:3,data:[}`,
		`{'single':1}`,
		`{a:undefined}`,
		`{1:2}`,
		``,
	}
	for _, input := range inputs {
		_, err := Normalize(input)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrMalformed))

		var malformed *MalformedError
		require.True(t, errors.As(err, &malformed))
		require.Equal(t, input, malformed.Original)
	}
}
