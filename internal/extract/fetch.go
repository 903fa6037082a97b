package extract

import (
	"context"
	"errors"
	"fmt"
	"gugu/internal/components/telemetry"
	"gugu/lib/restyutil"
	"net/http"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("gugu.internal.extract")
var meter = otel.Meter("gugu.internal.extract")
var attemptCounter, _ = meter.Int64Counter("gugu.fetch.attempts")
var recordCounter, _ = meter.Int64Counter("gugu.pipeline.records")

const (
	report_fetch_attempt   = "fetcher.attempt"
	report_fetch_exhausted = "fetcher.exhausted"
	report_walk_max_pages  = "walker.max-pages"
	report_walk_repeat     = "walker.repeated-page"
	report_pipeline_run    = "pipeline.run"
	report_pipeline_rows   = "pipeline.records"
)

const DefaultAttemptTimeout = 10 * time.Second

type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeTransport Outcome = "transport"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeStatus    Outcome = "status"
	OutcomeMalformed Outcome = "malformed"
	OutcomeSchema    Outcome = "schema"
)

// Attempt describes one request made by the fetcher, it is only reported.
type Attempt struct {
	URL     string
	Index   int
	Outcome Outcome
	Err     error
}

type DecodeFunc func(body []byte) (Page, error)

type FetcherOptions struct {
	UserAgent string
	// RequestsPerSecond limits every request made through the fetcher, 0
	// means no limit.
	RequestsPerSecond float64
	// AttemptTimeout defaults to DefaultAttemptTimeout.
	AttemptTimeout time.Duration
	// CloudflareBypass swaps the transport for one that passes cloudflare's
	// browser checks.
	CloudflareBypass bool
	// Transport replaces the default http transport.
	Transport http.RoundTripper
	// Dump receives full request and response messages while debug logging
	// is enabled.
	Dump restyutil.InstrumentOutput
}

// Fetcher owns the shared http client. It keeps no state between calls so
// one Fetcher can serve every pipeline run of a process.
type Fetcher struct {
	http    *resty.Client
	tel     telemetry.API
	timeout time.Duration
}

func NewFetcher(opts FetcherOptions, tel telemetry.API) (*Fetcher, error) {
	if tel == nil {
		tel = telemetry.NoopAPI{}
	}
	tel = telemetry.NewScopedAPI("extract", tel)

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	}
	client.SetHeader("user-agent", userAgent)

	if opts.RequestsPerSecond > 0 {
		burst := max(int(opts.RequestsPerSecond), 1)
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	restyutil.InstrumentClient(client, tracer, opts.Dump)
	telemetry.InstrumentResty(client, tel)

	timeout := opts.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	return &Fetcher{http: client, tel: tel, timeout: timeout}, nil
}

func metricOutcome(outcome Outcome) metric.AddOption {
	return metric.WithAttributes(attribute.String("outcome", string(outcome)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetch requests url until decode succeeds, at most retry times (the first
// attempt included, values below 1 mean 1), sleeping pause before every
// attempt after the first. Transport errors, non 2xx statuses, timeouts and
// decode errors all use up an attempt. ErrSchemaMismatch from decode is
// returned at once. Cancelling ctx ends the loop with an *ExhaustedError
// that also wraps the context error.
func (f *Fetcher) Fetch(ctx context.Context, url string, decode DecodeFunc, retry int, pause time.Duration) (Page, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	if retry < 1 {
		retry = 1
	}

	var last error
	attempts := 0
	for attempts < retry {
		if attempts > 0 {
			err := sleep(ctx, pause)
			if err != nil {
				last = errors.Join(last, err)
				break
			}
		}
		attempts++

		page, attempt := f.attempt(ctx, url, attempts, decode)
		attemptCounter.Add(ctx, 1, metricOutcome(attempt.Outcome))
		if attempt.Err == nil {
			span.SetAttributes(attribute.Int("attempts", attempts))
			return page, nil
		}
		if attempt.Outcome == OutcomeSchema {
			span.RecordError(attempt.Err)
			span.SetStatus(codes.Error, "schema mismatch")
			return Page{}, attempt.Err
		}

		f.tel.ReportWarning(report_fetch_attempt, attempt.URL, attempt.Index, string(attempt.Outcome), attempt.Err)
		last = attempt.Err
		if ctx.Err() != nil {
			break
		}
	}

	// Attempts counts the requests actually made, a cancelled context cuts
	// the loop short.
	err := &ExhaustedError{URL: url, Attempts: attempts, Last: last}
	f.tel.ReportBroken(report_fetch_exhausted, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, "retries exhausted")
	return Page{}, err
}

func (f *Fetcher) attempt(ctx context.Context, url string, index int, decode DecodeFunc) (Page, Attempt) {
	attempt := Attempt{URL: url, Index: index}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	res, err := f.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		attempt.Outcome = OutcomeTransport
		if errors.Is(err, context.DeadlineExceeded) {
			attempt.Outcome = OutcomeTimeout
		}
		attempt.Err = fmt.Errorf("request: %w", err)
		return Page{}, attempt
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		attempt.Outcome = OutcomeStatus
		attempt.Err = fmt.Errorf("unexpected status: %s", res.Status())
		return Page{}, attempt
	}

	page, err := decode(res.Body())
	if err != nil {
		attempt.Outcome = OutcomeMalformed
		if errors.Is(err, ErrSchemaMismatch) {
			attempt.Outcome = OutcomeSchema
		}
		attempt.Err = err
		return Page{}, attempt
	}
	attempt.Outcome = OutcomeSuccess
	return page, attempt
}
