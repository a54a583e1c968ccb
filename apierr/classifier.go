package apierr

import (
	"fmt"
	"net/http"
	"time"
)

// Gate narrows table retryability to the configured kinds and status codes.
type Gate struct {
	kinds       map[Kind]struct{}
	statusCodes map[int]struct{}
}

// DefaultRetryableKinds are the kinds retried when no gate is configured.
var DefaultRetryableKinds = []Kind{KindNetwork, KindTimeout, KindServer, KindClient}

// DefaultRetryableStatusCodes are the status codes retried when no gate is configured.
var DefaultRetryableStatusCodes = []int{408, 429, 500, 502, 503, 504}

// NewGate builds a Gate from kind and status lists.
func NewGate(kinds []Kind, statusCodes []int) Gate {
	g := Gate{
		kinds:       make(map[Kind]struct{}, len(kinds)),
		statusCodes: make(map[int]struct{}, len(statusCodes)),
	}
	for _, k := range kinds {
		g.kinds[k] = struct{}{}
	}
	for _, code := range statusCodes {
		g.statusCodes[code] = struct{}{}
	}
	return g
}

// DefaultGate returns the gate built from the default kind and status sets.
func DefaultGate() Gate {
	return NewGate(DefaultRetryableKinds, DefaultRetryableStatusCodes)
}

// Allows reports whether kind is retryable and, for HTTP failures, whether
// status is. A zero status means no response was received.
func (g Gate) Allows(kind Kind, status int) bool {
	if _, ok := g.kinds[kind]; !ok {
		return false
	}
	if status == 0 {
		return true
	}
	_, ok := g.statusCodes[status]
	return ok
}

// Exchange describes a failed request/response pair. StatusCode is zero when
// no response arrived, in which case Err holds the transport failure.
type Exchange struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Err        error
	Timeout    bool
}

// ExchangeFromError builds an Exchange from an error returned by the
// pipeline or any HTTP client.
func ExchangeFromError(err error, method, url string) Exchange {
	if httpErr, ok := AsHTTPError(err); ok {
		x := Exchange{
			Method:     httpErr.Method,
			URL:        httpErr.URL,
			StatusCode: httpErr.StatusCode,
			Body:       httpErr.Body,
		}
		if x.Method == "" {
			x.Method = method
		}
		if x.URL == "" {
			x.URL = url
		}
		return x
	}
	return Exchange{Method: method, URL: url, Err: err, Timeout: IsTimeout(err)}
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithNow overrides the timestamp source.
func WithNow(now func() time.Time) Option {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// Classifier maps failed exchanges to descriptors. It is safe for
// concurrent use.
type Classifier struct {
	gate Gate
	now  func() time.Time
}

// NewClassifier returns a Classifier using gate for retryability.
func NewClassifier(gate Gate, opts ...Option) *Classifier {
	c := &Classifier{gate: gate, now: time.Now}
	if gate.kinds == nil {
		c.gate = DefaultGate()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Gate returns the retry gate in use.
func (c *Classifier) Gate() Gate {
	return c.gate
}

// ClassifyError is a convenience for Classify(ExchangeFromError(err, method, url)).
func (c *Classifier) ClassifyError(err error, method, url string) Descriptor {
	return c.Classify(ExchangeFromError(err, method, url))
}

// Classify returns the descriptor for x. It is total: every input yields a
// descriptor whose Kind is one of Kinds.
func (c *Classifier) Classify(x Exchange) (d Descriptor) {
	d = Descriptor{
		Method:     x.Method,
		URL:        x.URL,
		StatusCode: x.StatusCode,
		Timestamp:  c.now(),
	}

	defer func() {
		if r := recover(); r != nil {
			d.Kind = KindUnknown
			d.Severity = SeverityMedium
			d.Message = fmt.Sprintf("classification failed: %v", r)
			d.UserMessage = msgUnknown
			d.Code = "UNKNOWN_ERROR"
			d.Retryable = false
		}
	}()

	if x.StatusCode >= 400 {
		if rule, ok := lookupStatus(x.StatusCode); ok {
			c.fromStatus(&d, x, rule)
			return d
		}
	}

	if x.StatusCode == 0 && (x.Err != nil || x.Timeout) {
		c.fromTransport(&d, x)
		return d
	}

	d.Kind = KindUnknown
	d.Severity = SeverityMedium
	d.UserMessage = msgUnknown
	d.Code = "UNKNOWN_ERROR"
	switch {
	case x.Err != nil:
		d.Message = x.Err.Error()
	case x.StatusCode > 0:
		d.Message = fmt.Sprintf("%s %s: unexpected status %d", x.Method, x.URL, x.StatusCode)
	default:
		d.Message = "unknown failure"
	}
	return d
}

func (c *Classifier) fromStatus(d *Descriptor, x Exchange, rule statusRule) {
	d.Kind = rule.kind
	d.Severity = rule.severity
	d.UserMessage = rule.userMessage
	d.Message = fmt.Sprintf("%s %s: %d %s", x.Method, x.URL, x.StatusCode, http.StatusText(x.StatusCode))
	d.Code = fmt.Sprintf("HTTP_%d", x.StatusCode)

	body := ParseBody(x.Body)
	if body.Code != "" {
		d.Code = body.Code
	}
	if rule.kind == KindValidation {
		if msg, ok := body.ValidationMessage(); ok {
			d.UserMessage = msg
		}
	}

	d.Retryable = rule.retryable && c.gate.Allows(rule.kind, x.StatusCode)
}

func (c *Classifier) fromTransport(d *Descriptor, x Exchange) {
	if x.Timeout || IsTimeout(x.Err) {
		d.Kind = KindTimeout
		d.Severity = SeverityMedium
		d.UserMessage = msgTimeout
		d.Code = "TIMEOUT"
	} else {
		d.Kind = KindNetwork
		d.Severity = SeverityHigh
		d.UserMessage = msgNetwork
		d.Code = "NETWORK_ERROR"
	}
	if x.Err != nil {
		d.Message = x.Err.Error()
	} else {
		d.Message = "request timed out"
	}
	d.Retryable = c.gate.Allows(d.Kind, 0)
}
