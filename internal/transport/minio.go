package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/printbeast/rngp-patcher/credentials"
	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/manifest"
)

// MinioOptions configures a MinioTransport.
type MinioOptions struct {
	Credentials credentials.Credentials

	// Insecure talks plain http to the endpoint.
	Insecure bool

	// PathStyle addresses the bucket in the path instead of the host.
	PathStyle bool

	Logger *slog.Logger
}

// MinioTransport fetches object keys with minio-go.
type MinioTransport struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

var _ Transport = (*MinioTransport)(nil)

// NewMinio creates a MinioTransport with static V4 credentials.
func NewMinio(opts MinioOptions) (*MinioTransport, error) {
	c := opts.Credentials.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	lookup := minio.BucketLookupDNS
	if opts.PathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:        miniocreds.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure:       !opts.Insecure,
		Region:       c.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioTransport{
		client: client,
		bucket: c.Bucket,
		logger: opts.Logger,
	}, nil
}

// Fetch implements Transport. Direct URLs are rejected.
func (t *MinioTransport) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	if objectKey(locator) == "" {
		return nil, perrors.NewValidationError("empty locator")
	}
	if manifest.IsURL(locator) {
		return nil, perrors.NewPathError("fetch", locator, perrors.ErrInvalidInput,
			fmt.Errorf("minio transport only fetches object keys"))
	}
	key := objectKey(locator)

	if t.logger != nil {
		t.logger.DebugContext(ctx, "getting object", "bucket", t.bucket, "key", key)
	}

	obj, err := t.client.GetObject(ctx, t.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(locator, err)
	}
	// GetObject is lazy; Stat issues the request so errors surface here.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapMinioError(locator, err)
	}
	return obj, nil
}

func mapMinioError(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound:
		return perrors.NewPathError("fetch", key, perrors.ErrObjectNotFound, err)
	case resp.Code == "AccessDenied" || resp.StatusCode == http.StatusForbidden:
		return perrors.NewPathError("fetch", key, perrors.ErrAccessDenied, err)
	default:
		return perrors.NewPathError("fetch", key, perrors.ErrDownloadFailed, err)
	}
}
