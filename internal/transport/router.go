package transport

import (
	"context"
	"io"

	"github.com/printbeast/rngp-patcher/manifest"
)

// Router sends direct URLs and object keys to different transports, so a
// manifest may mix both while keys go through an SDK backend.
type Router struct {
	keys Transport
	urls Transport
}

var _ Transport = (*Router)(nil)

// NewRouter creates a Router.
func NewRouter(keys, urls Transport) *Router {
	return &Router{keys: keys, urls: urls}
}

// Fetch implements Transport.
func (r *Router) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	if manifest.IsURL(locator) {
		return r.urls.Fetch(ctx, locator)
	}
	return r.keys.Fetch(ctx, locator)
}
