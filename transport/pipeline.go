package transport

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
	"time"

	"github.com/MrEthical07/qmsauth/apierr"
	"github.com/MrEthical07/qmsauth/diag"
	"github.com/MrEthical07/qmsauth/notify"
	"github.com/MrEthical07/qmsauth/retry"
	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	DefaultTimeout = 30 * time.Second
	maxErrorBody   = 1 << 20
)

var (
	// ErrMalformedResponse wraps decode failures of successful responses.
	ErrMalformedResponse = errors.New("malformed response body")
	// ErrInvalidBaseURL is returned by New for an unusable base URL.
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// TokenSource yields the current access token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, bool)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, bool)

func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, bool) {
	return f(ctx)
}

// Hooks observe the pipeline, typically for metrics. All are optional.
type Hooks struct {
	OnRequest  func(meta RequestMeta)
	OnResponse func(meta RequestMeta, status int, elapsed time.Duration)
	OnError    func(meta RequestMeta, d apierr.Descriptor, elapsed time.Duration)
	OnRetry    func(meta RequestMeta, delay time.Duration)
}

// Config holds the pipeline's static settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Deps wires the pipeline's collaborators. Only Retry may be shared with
// other callers; everything else is owned by the session client.
type Deps struct {
	HTTPClient *http.Client
	Tokens     TokenSource
	Retry      *retry.Coordinator
	Notifier   *notify.Notifier
	ErrorLog   *diag.ErrorLog
	Clock      clock.Clock
	Logger     logr.Logger
	Hooks      Hooks
	// OnUnauthorized ends the session after a non-retried 401.
	OnUnauthorized func(ctx context.Context, d apierr.Descriptor)
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg            Config
	base           *url.URL
	client         *http.Client
	tokens         TokenSource
	classifier     *apierr.Classifier
	retry          *retry.Coordinator
	notifier       *notify.Notifier
	errorLog       *diag.ErrorLog
	clock          clock.Clock
	log            logr.Logger
	hooks          Hooks
	onUnauthorized func(ctx context.Context, d apierr.Descriptor)
}

// New builds a pipeline. A nil Deps.Retry disables retries.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	var base *url.URL
	if cfg.BaseURL != "" {
		parsed, err := url.Parse(cfg.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
		}
		base = parsed
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if client.Timeout == 0 {
		c := *client
		c.Timeout = cfg.Timeout
		client = &c
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger.GetSink() == nil {
		deps.Logger = logr.Discard()
	}
	if deps.Tokens == nil {
		deps.Tokens = TokenSourceFunc(func(context.Context) (string, bool) { return "", false })
	}

	classifier := apierr.NewClassifier(apierr.DefaultGate(), apierr.WithNow(deps.Clock.Now))
	if deps.Retry != nil {
		classifier = apierr.NewClassifier(deps.Retry.Policy().Gate(), apierr.WithNow(deps.Clock.Now))
	}

	return &Pipeline{
		cfg:            cfg,
		base:           base,
		client:         client,
		tokens:         deps.Tokens,
		classifier:     classifier,
		retry:          deps.Retry,
		notifier:       deps.Notifier,
		errorLog:       deps.ErrorLog,
		clock:          deps.Clock,
		log:            deps.Logger,
		hooks:          deps.Hooks,
		onUnauthorized: deps.OnUnauthorized,
	}, nil
}

// Classifier returns the classifier the pipeline uses.
func (p *Pipeline) Classifier() *apierr.Classifier {
	return p.classifier
}

// ResolveURL resolves path against the base URL.
func (p *Pipeline) ResolveURL(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse request path %q: %w", path, err)
	}
	if p.base == nil || ref.IsAbs() {
		return ref.String(), nil
	}
	return p.base.ResolveReference(ref).String(), nil
}

// NewRequest builds a request for path with body JSON-encoded when non-nil.
func (p *Pipeline) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	target, err := p.ResolveURL(path)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}
	return req, nil
}

// JSON sends in as the JSON body of method path and decodes the response
// into out when out is non-nil.
func (p *Pipeline) JSON(ctx context.Context, method, path string, in, out any) error {
	req, err := p.NewRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	resp, err := p.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, req.Method, req.URL.Redacted(), err)
	}
	return nil
}

// Do runs req through the pipeline. On success the response is returned
// with its body unread. On failure the response body has been consumed and
// the error is the *apierr.HTTPError or transport error of the last attempt.
func (p *Pipeline) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	opts := optionsFromContext(ctx)

	body, err := drainBody(req)
	if err != nil {
		return nil, err
	}

	meta := RequestMeta{
		ID:     uuid.NewString(),
		Method: req.Method,
		URL:    req.URL.Redacted(),
		Start:  p.clock.Now(),
	}

	for {
		attempt := p.prepare(ctx, req, body, meta, opts)
		p.log.V(1).Info("outgoing request", "request_id", meta.ID, "method", meta.Method, "url", meta.URL, "retry", meta.RetryCount)
		if p.hooks.OnRequest != nil {
			p.hooks.OnRequest(meta)
		}

		resp, err := p.client.Do(attempt)
		elapsed := p.clock.Since(meta.Start)

		if err == nil && resp.StatusCode < http.StatusBadRequest {
			p.logSuccess(meta, resp, elapsed)
			if p.hooks.OnResponse != nil {
				p.hooks.OnResponse(meta, resp.StatusCode, elapsed)
			}
			return resp, nil
		}

		if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, err
		}

		exchange, failure := p.failure(meta, resp, err)
		d := p.classifier.Classify(exchange)

		p.log.Info("request failed",
			"request_id", meta.ID,
			"method", meta.Method,
			"url", meta.URL,
			"kind", d.Kind,
			"status", d.StatusCode,
			"duration", elapsed,
			"retry", meta.RetryCount,
		)
		p.errorLog.Record(diag.Entry{
			Descriptor: d,
			RequestID:  meta.ID,
			DurationMS: elapsed.Milliseconds(),
			RetryCount: meta.RetryCount,
		})
		if p.hooks.OnError != nil {
			p.hooks.OnError(meta, d, elapsed)
		}

		if p.notifier != nil && !(d.Kind == apierr.KindAuthentication && opts.skipTeardown) {
			p.notifier.Dispatch(ctx, d)
		}

		if p.retry != nil && !opts.noRetry {
			if delay, ok := p.retry.Decide(meta.RetryCount, d); ok {
				if p.hooks.OnRetry != nil {
					p.hooks.OnRetry(meta, delay)
				}
				if waitErr := p.retry.Wait(ctx, meta.RetryCount, delay, d); waitErr != nil {
					return nil, errors.Join(failure, waitErr)
				}
				meta.RetryCount++
				continue
			}
		}

		if d.IsUnauthorized() && !opts.skipTeardown && p.onUnauthorized != nil {
			p.onUnauthorized(ctx, d)
		}

		if !opts.silent && p.notifier != nil {
			p.notifier.Notify(ctx, d)
		}

		return nil, failure
	}
}

func (p *Pipeline) prepare(ctx context.Context, req *http.Request, body []byte, meta RequestMeta, opts requestOptions) *http.Request {
	attempt := req.Clone(withMeta(ctx, meta))
	if body != nil {
		attempt.Body = io.NopCloser(bytes.NewReader(body))
		attempt.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		attempt.ContentLength = int64(len(body))
	}

	attempt.Header.Del("Authorization")
	if !opts.skipAuth {
		if access, ok := p.tokens.AccessToken(ctx); ok && access != "" {
			(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(attempt)
		}
	}
	return attempt
}

func (p *Pipeline) failure(meta RequestMeta, resp *http.Response, err error) (apierr.Exchange, error) {
	if err != nil {
		return apierr.Exchange{
			Method:  meta.Method,
			URL:     meta.URL,
			Err:     err,
			Timeout: apierr.IsTimeout(err),
		}, err
	}

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	if readErr != nil {
		p.log.V(1).Info("error body read failed", "request_id", meta.ID, "error", readErr.Error())
	}

	httpErr := &apierr.HTTPError{
		Method:     meta.Method,
		URL:        meta.URL,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header.Clone(),
		Body:       data,
	}
	return apierr.Exchange{
		Method:     meta.Method,
		URL:        meta.URL,
		StatusCode: resp.StatusCode,
		Body:       data,
	}, httpErr
}

func (p *Pipeline) logSuccess(meta RequestMeta, resp *http.Response, elapsed time.Duration) {
	p.log.V(1).Info("response received",
		"request_id", meta.ID,
		"method", meta.Method,
		"url", meta.URL,
		"status", resp.StatusCode,
		"duration", elapsed,
		"retry", meta.RetryCount,
	)
	if !p.log.V(2).Enabled() || resp.Body == nil {
		return
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	rest := resp.Body
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(data), rest), rest}
	if err != nil {
		return
	}
	p.log.V(2).Info("response body", "request_id", meta.ID, "body", strings.TrimSpace(string(data)))
}

func drainBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}
