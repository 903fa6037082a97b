// Package quasijson turns the javascript object literals some quote
// endpoints return into valid JSON.
//
// It only quotes bare object keys that follow a `{` or a `,`. Anything else
// that is not JSON is left alone and fails validation.
package quasijson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when the text is not valid JSON even after the
// bare keys have been quoted.
var ErrMalformed = errors.New("malformed quasi-json")

// MalformedError carries the text that failed to normalize.
type MalformedError struct {
	Original string
	Err      error
}

func (e *MalformedError) Error() string {
	original := e.Original
	if len(original) > 128 {
		original = original[:128] + "..."
	}
	return fmt.Sprintf("%s: %v (input: %q)", ErrMalformed.Error(), e.Err, original)
}

func (e *MalformedError) Unwrap() []error {
	return []error{ErrMalformed, e.Err}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// quoteKeys rewrites `,key:` and `{key:` outside of string literals.
// it returns the input untouched (and false) if nothing matched.
func quoteKeys(text string) (string, bool) {
	var out strings.Builder
	out.Grow(len(text) + 16)

	changed := false
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		out.WriteByte(c)

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		if c != ',' && c != '{' {
			continue
		}

		// look ahead for <ws>* ident <ws>* ':'
		j := i + 1
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		if j >= len(text) || !isIdentStart(text[j]) {
			continue
		}
		start := j
		for j < len(text) && isIdentPart(text[j]) {
			j++
		}
		end := j
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		if j >= len(text) || text[j] != ':' {
			continue
		}

		out.WriteString(text[i+1 : start])
		out.WriteByte('"')
		out.WriteString(text[start:end])
		out.WriteByte('"')
		out.WriteString(text[end:j])
		i = j - 1
		changed = true
	}

	if !changed {
		return text, false
	}
	return out.String(), true
}

// Normalize quotes the bare keys in text and checks that the result is
// valid JSON. Valid JSON input is returned unchanged.
func Normalize(text string) (string, error) {
	normalized, _ := quoteKeys(text)
	if !json.Valid([]byte(normalized)) {
		var decoded any
		err := json.Unmarshal([]byte(normalized), &decoded)
		if err == nil {
			err = errors.New("invalid json")
		}
		return "", &MalformedError{Original: text, Err: err}
	}
	return normalized, nil
}
