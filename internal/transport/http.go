package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/manifest"
	"github.com/printbeast/rngp-patcher/sigv4"
)

// Defaults for HTTPTransport.
const (
	DefaultTimeout       = 5 * time.Minute
	DefaultRetryCount    = 3
	DefaultRetryInterval = time.Second
	DefaultUserAgent     = "rngp-patcher"
)

// HTTPOptions configures an HTTPTransport.
type HTTPOptions struct {
	// Signer signs object key requests. Nil means unsigned.
	Signer *sigv4.Signer

	// BaseURL resolves object keys when no Signer is set.
	BaseURL string

	// Insecure sends signed requests over plain http.
	Insecure bool

	// Timeout bounds each request including the body transfer.
	Timeout time.Duration

	RetryCount    int
	RetryInterval time.Duration
	UserAgent     string
	Logger        *slog.Logger
}

// HTTPTransport fetches over HTTP with imroc/req.
type HTTPTransport struct {
	client  *req.Client
	signer  *sigv4.Signer
	baseURL string
	scheme  string
	logger  *slog.Logger
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTP creates an HTTPTransport. Zero option values take the defaults;
// a negative RetryCount disables retries.
func NewHTTP(opts HTTPOptions) *HTTPTransport {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryCount == 0 {
		opts.RetryCount = DefaultRetryCount
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	scheme := "https"
	if opts.Insecure {
		scheme = "http"
	}

	client := req.C().
		SetTimeout(opts.Timeout).
		SetCommonRetryCount(opts.RetryCount).
		SetCommonRetryFixedInterval(opts.RetryInterval).
		SetUserAgent(opts.UserAgent)

	return &HTTPTransport{
		client:  client,
		signer:  opts.Signer,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		scheme:  scheme,
		logger:  opts.Logger,
	}
}

// Resolve maps a locator to the URL it is fetched from and reports whether
// the request will be signed. Direct URLs are never signed.
func (t *HTTPTransport) Resolve(locator string) (string, bool, error) {
	switch {
	case locator == "":
		return "", false, perrors.NewValidationError("empty locator")
	case manifest.IsURL(locator):
		return locator, false, nil
	case objectKey(locator) == "":
		return "", false, perrors.NewValidationError("empty object key")
	case t.signer != nil:
		return t.scheme + "://" + t.signer.Host() + sigv4.CanonicalURI(objectKey(locator)), true, nil
	case t.baseURL != "":
		return t.baseURL + escapeKey(locator), false, nil
	default:
		return "", false, perrors.NewPathError("resolve", locator, perrors.ErrInvalidInput,
			fmt.Errorf("object key needs credentials or a base URL"))
	}
}

// Fetch implements Transport.
func (t *HTTPTransport) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	target, signed, err := t.Resolve(locator)
	if err != nil {
		return nil, err
	}

	r := t.client.R().
		DisableAutoReadResponse().
		SetContext(ctx)

	if signed {
		h, err := t.signer.Sign(http.MethodGet, objectKey(locator))
		if err != nil {
			return nil, err
		}
		r.SetHeader("Authorization", h.Authorization).
			SetHeader("X-Amz-Date", h.AmzDate)
	}

	if t.logger != nil {
		t.logger.DebugContext(ctx, "fetching object", "locator", locator, "url", target, "signed", signed)
	}

	resp, err := r.Get(target)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}

	if resp.IsErrorState() || resp.GetStatusCode() >= http.StatusBadRequest {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, statusError(locator, resp.GetStatusCode(), resp.Status)
	}

	return resp.Body, nil
}

func statusError(locator string, code int, status string) error {
	switch code {
	case http.StatusNotFound:
		return perrors.NewPathError("fetch", locator, perrors.ErrObjectNotFound, fmt.Errorf("HTTP %s", status))
	case http.StatusForbidden, http.StatusUnauthorized:
		return perrors.NewPathError("fetch", locator, perrors.ErrAccessDenied, fmt.Errorf("HTTP %s", status))
	default:
		return perrors.NewPathError("fetch", locator, perrors.ErrDownloadFailed, fmt.Errorf("HTTP %s", status))
	}
}

// objectKey strips leading slashes, which are not part of an S3 key.
func objectKey(locator string) string {
	return strings.TrimLeft(locator, "/")
}

// escapeKey turns an object key into an escaped absolute URL path.
func escapeKey(key string) string {
	parts := strings.Split(objectKey(key), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "/" + strings.Join(parts, "/")
}
