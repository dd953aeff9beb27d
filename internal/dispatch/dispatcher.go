package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pybill/pbdash/internal/envelope"
	"github.com/pybill/pbdash/internal/notify"
)

// Notifier receives user-facing outcome messages. *notify.Controller implements it.
type Notifier interface {
	Show(text string, category notify.Category)
}

var _ Notifier = (*notify.Controller)(nil)

// Scheduler runs continuations. The TUI supplies one that posts work onto its
// event loop so callbacks never race the renderer.
type Scheduler func(func())

// Request describes one API exchange. It is consumed by a single Dispatch call.
type Request struct {
	Verb      string
	URL       string
	Body      any
	OnSuccess func(value json.RawMessage)
	// OnValue replaces OnSuccess when set. A non-nil error means the value
	// had an unexpected shape and is surfaced as a *ValueError.
	OnValue func(value json.RawMessage) error
}

// Outcome is the resolved result of a dispatched request.
type Outcome struct {
	RequestID string
	Envelope  envelope.Envelope
	// Called reports whether OnSuccess or OnValue ran.
	Called bool
	// Ignored is set when the response had no success field at all.
	Ignored bool
	Err     error
}

// Pending is a handle to an in-flight request. Most callers drop it.
type Pending struct {
	done    chan struct{}
	outcome Outcome
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(out Outcome) {
	p.outcome = out
	close(p.done)
}

// Done is closed once the continuation and any notification have run.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request resolves or ctx ends.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

const (
	defaultBaseURL   = "127.0.0.1:8000"
	defaultUserAgent = "pbdash/0.1"
	defaultTimeout   = 10 * time.Second
	maxBodyBytes     = 8 << 20
)

// Options configure a Dispatcher.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Codec      envelope.Codec
	// RateLimit caps outbound requests per second. Zero disables limiting.
	RateLimit float64
	Burst     int
	Scheduler Scheduler
	Logger    *zap.Logger
	UserAgent string
}

// Dispatcher issues API requests and routes their outcomes.
type Dispatcher struct {
	baseURL   *url.URL
	http      *http.Client
	codec     envelope.Codec
	notifier  Notifier
	limiter   *rate.Limiter
	logger    *zap.Logger
	userAgent string

	mu       sync.RWMutex
	schedule Scheduler

	inflight sync.WaitGroup
}

// New builds a Dispatcher that reports outcomes to notifier.
func New(notifier Notifier, opts Options) (*Dispatcher, error) {
	if notifier == nil {
		return nil, fmt.Errorf("dispatcher requires a notifier")
	}
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	d := &Dispatcher{
		baseURL:   base,
		http:      client,
		codec:     opts.Codec,
		notifier:  notifier,
		logger:    opts.Logger,
		userAgent: opts.UserAgent,
		schedule:  opts.Scheduler,
	}
	if d.codec.ErrorField == "" {
		d.codec = envelope.NewCodec(envelope.FieldMessage)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.userAgent == "" {
		d.userAgent = defaultUserAgent
	}
	if d.schedule == nil {
		d.schedule = runInline
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return d, nil
}

func runInline(fn func()) { fn() }

// SetScheduler swaps the continuation scheduler, e.g. once the UI loop exists.
// Nil restores inline execution.
func (d *Dispatcher) SetScheduler(s Scheduler) {
	if s == nil {
		s = runInline
	}
	d.mu.Lock()
	d.schedule = s
	d.mu.Unlock()
}

// BaseURL returns the API root requests are resolved against.
func (d *Dispatcher) BaseURL() string {
	return d.baseURL.String()
}

// Dispatch starts the exchange and returns immediately. On success:true the
// request's OnSuccess runs with the envelope value, followed by a success
// notification when the envelope carries a message. Every failure ends in a
// danger notification; nothing is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Pending {
	if ctx == nil {
		ctx = context.Background()
	}
	p := newPending()
	id := uuid.NewString()

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		out := d.exchange(ctx, id, req)
		d.route(req, out, p)
	}()
	return p
}

// Drain waits for every in-flight exchange to finish its transport phase.
func (d *Dispatcher) Drain() {
	d.inflight.Wait()
}

func (d *Dispatcher) exchange(ctx context.Context, id string, req Request) Outcome {
	out := Outcome{RequestID: id}
	verb := strings.ToUpper(strings.TrimSpace(req.Verb))
	log := d.logger.With(
		zap.String("request_id", id),
		zap.String("verb", verb),
		zap.String("url", req.URL),
	)
	started := time.Now()

	fail := func(status int, err error) Outcome {
		out.Err = &TransportError{Verb: verb, URL: req.URL, Status: status, Err: err}
		log.Warn("request failed", zap.Int("status", status), zap.Error(err))
		return out
	}

	if !validVerb(verb) {
		return fail(0, fmt.Errorf("%w %q", ErrInvalidVerb, req.Verb))
	}

	payload, err := json.Marshal(req.Body)
	if err != nil {
		return fail(0, fmt.Errorf("encode body: %w", err))
	}

	rel, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil {
		return fail(0, fmt.Errorf("parse url: %w", err))
	}
	reqURL := d.baseURL.ResolveReference(rel)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fail(0, fmt.Errorf("rate limit: %w", err))
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, verb, reqURL.String(), bytes.NewReader(payload))
	if err != nil {
		return fail(0, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", d.userAgent)
	httpReq.Header.Set("X-Request-ID", id)

	resp, err := d.http.Do(httpReq)
	if err != nil {
		return fail(0, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if len(raw) > maxBodyBytes {
		return fail(resp.StatusCode, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, maxBodyBytes))
	}

	statusOK := resp.StatusCode >= 200 && resp.StatusCode <= 299
	env, err := d.codec.Decode(raw)
	if err != nil {
		if !statusOK {
			return fail(resp.StatusCode, err)
		}
		out.Err = err
		log.Warn("response decode failed", zap.Int("status", resp.StatusCode), zap.Error(err))
		return out
	}
	// A failed status only keeps an explicit success:false envelope.
	if !statusOK && env.State() != envelope.StateFailure {
		return fail(resp.StatusCode, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	out.Envelope = env
	log.Debug("request completed",
		zap.Int("status", resp.StatusCode),
		zap.Stringer("state", env.State()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return out
}

func (d *Dispatcher) route(req Request, out Outcome, p *Pending) {
	verb := strings.ToUpper(strings.TrimSpace(req.Verb))

	var work func()
	switch {
	case out.Err != nil:
		msg := failureText(verb, req.URL, out.Err)
		work = func() {
			d.notifier.Show(msg, notify.CategoryDanger)
		}
	case out.Envelope.State() == envelope.StateSuccess:
		env := out.Envelope
		work = func() {
			switch {
			case req.OnValue != nil:
				out.Called = true
				if err := req.OnValue(env.Value); err != nil {
					valErr := &ValueError{Verb: verb, URL: req.URL, Err: err}
					out.Err = valErr
					d.logger.Warn("unexpected value shape",
						zap.String("request_id", out.RequestID),
						zap.String("verb", verb),
						zap.String("url", req.URL),
						zap.Error(err),
					)
					d.notifier.Show(valueText(valErr), notify.CategoryDanger)
					return
				}
			case req.OnSuccess != nil:
				req.OnSuccess(env.Value)
				out.Called = true
			}
			if msg := strings.TrimSpace(env.Message); msg != "" {
				d.notifier.Show(msg, notify.CategorySuccess)
			}
		}
	case out.Envelope.State() == envelope.StateFailure:
		appErr := &ApplicationError{Verb: verb, URL: req.URL, Message: out.Envelope.Text()}
		out.Err = appErr
		work = func() {
			d.notifier.Show(applicationText(appErr), notify.CategoryDanger)
		}
	default:
		// No success field: neither callback nor notification.
		out.Ignored = true
		d.logger.Warn("response without success field ignored",
			zap.String("request_id", out.RequestID),
			zap.String("verb", verb),
			zap.String("url", req.URL),
		)
		work = func() {}
	}

	d.mu.RLock()
	schedule := d.schedule
	d.mu.RUnlock()

	schedule(func() {
		work()
		p.resolve(out)
	})
}

func failureText(verb, rawURL string, err error) string {
	detail := err.Error()
	var te *TransportError
	if errors.As(err, &te) {
		detail = te.Err.Error()
		if te.Status > 0 {
			detail = fmt.Sprintf("HTTP(%d) %s", te.Status, detail)
		}
	}
	return fmt.Sprintf("Failed(1): %s %s: %s", verb, rawURL, detail)
}

func applicationText(e *ApplicationError) string {
	return fmt.Sprintf("URL@%s: %s Error: %s", e.Verb, e.URL, e.Message)
}

func valueText(e *ValueError) string {
	return fmt.Sprintf("URL@%s: %s Error: unexpected value: %v", e.Verb, e.URL, e.Err)
}

func validVerb(verb string) bool {
	switch verb {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func parseBaseURL(base string) (*url.URL, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", base, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
