// Package transport fetches manifests and patch files from storage.
//
// Three implementations exist. HTTPTransport issues plain or SigV4-signed GET
// requests and handles both direct URLs and object keys. S3Transport goes
// through the AWS SDK and MinioTransport through minio-go; both accept object
// keys only.
package transport

import (
	"context"
	"io"
)

// Transport opens the content behind a locator. The caller closes the body.
type Transport interface {
	Fetch(ctx context.Context, locator string) (io.ReadCloser, error)
}
