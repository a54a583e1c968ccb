package transport

import (
	"context"
	"time"
)

// RequestMeta is local bookkeeping for one logical request across retries.
type RequestMeta struct {
	ID         string
	Method     string
	URL        string
	Start      time.Time
	RetryCount int
}

type requestMetaContextKey struct{}
type requestOptionsContextKey struct{}

type requestOptions struct {
	silent       bool
	skipAuth     bool
	noRetry      bool
	skipTeardown bool
}

// MetaFromContext returns the metadata stamped on an outgoing request.
func MetaFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestMetaContextKey{}).(RequestMeta)
	return meta, ok
}

func withMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaContextKey{}, meta)
}

func optionsFromContext(ctx context.Context) requestOptions {
	if ctx == nil {
		return requestOptions{}
	}
	opts, _ := ctx.Value(requestOptionsContextKey{}).(requestOptions)
	return opts
}

func withOption(ctx context.Context, apply func(*requestOptions)) context.Context {
	opts := optionsFromContext(ctx)
	apply(&opts)
	return context.WithValue(ctx, requestOptionsContextKey{}, opts)
}

// WithSilent suppresses the user notification for failures of this request.
// Failures are still logged and side effects still fire.
func WithSilent(ctx context.Context) context.Context {
	return withOption(ctx, func(o *requestOptions) { o.silent = true })
}

// WithoutAuth sends the request without a bearer token.
func WithoutAuth(ctx context.Context) context.Context {
	return withOption(ctx, func(o *requestOptions) { o.skipAuth = true })
}

// WithoutRetry disables pipeline retries for this request.
func WithoutRetry(ctx context.Context) context.Context {
	return withOption(ctx, func(o *requestOptions) { o.noRetry = true })
}

// WithoutAuthTeardown keeps a 401 from ending the session. Auth endpoints
// use it so a wrong password or a rejected refresh token is reported to the
// caller instead of logging everyone out.
func WithoutAuthTeardown(ctx context.Context) context.Context {
	return withOption(ctx, func(o *requestOptions) { o.skipTeardown = true })
}
