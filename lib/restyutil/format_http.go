package restyutil

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

// MaxDumpBody caps the response body written into a message dump, quote
// sites happily return megabytes of markup per page.
const MaxDumpBody = 256 << 10

func formatHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

// dumpBody returns the body as utf-8 text, the charset from the
// content-type header is honored so gbk pages stay readable.
func dumpBody(contentType string, body []byte) string {
	truncated := len(body) > MaxDumpBody
	if truncated {
		body = body[:MaxDumpBody]
	}

	text := string(body)
	_, params, err := mime.ParseMediaType(contentType)
	if err == nil && params["charset"] != "" {
		reader, err := charset.NewReaderLabel(params["charset"], bytes.NewReader(body))
		if err == nil {
			decoded, err := io.ReadAll(reader)
			if err == nil {
				text = string(decoded)
			}
		}
	}
	if truncated {
		text += fmt.Sprintf("\n<TRUNCATED AT %d BYTES>", MaxDumpBody)
	}
	return text
}

func formatHttpMessage(res *resty.Response) string {
	var out strings.Builder

	out.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&out, "%s %s\n\n", res.Request.Method, res.Request.URL)
	if res.Request.RawRequest != nil {
		formatHeaders(&out, res.Request.RawRequest.Header)
	}

	out.WriteString("\n---- RESPONSE ----\n\n")
	location := res.Request.URL
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			location = redirected.String()
		}
	}
	fmt.Fprintf(&out, "%d %s (%s)\n\n", res.StatusCode(), location, res.Time())
	formatHeaders(&out, res.Header())
	out.WriteString("\n")
	out.WriteString(dumpBody(res.Header().Get("content-type"), res.Body()))

	return out.String()
}
