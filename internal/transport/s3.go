package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/printbeast/rngp-patcher/credentials"
	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/internal/s3api"
	"github.com/printbeast/rngp-patcher/manifest"
)

// S3Options configures an S3Transport.
type S3Options struct {
	Credentials credentials.Credentials

	// EndpointURL overrides https://<Credentials.Endpoint>, e.g. for LocalStack.
	EndpointURL string

	// PathStyle addresses the bucket in the path instead of the host.
	PathStyle bool

	Timeout    time.Duration
	MaxRetries int
	Logger     *slog.Logger
}

// S3Transport fetches object keys with the AWS SDK.
type S3Transport struct {
	api    s3api.S3API
	bucket string
	logger *slog.Logger
}

var _ Transport = (*S3Transport)(nil)

// NewS3 creates an S3Transport with static credentials.
func NewS3(ctx context.Context, opts S3Options) (*S3Transport, error) {
	c := opts.Credentials.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	}
	if opts.MaxRetries > 0 {
		loadOpts = append(loadOpts, config.WithRetryMaxAttempts(opts.MaxRetries))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := opts.EndpointURL
	if endpoint == "" {
		endpoint = "https://" + c.Endpoint
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = opts.PathStyle
		if opts.Timeout > 0 {
			o.HTTPClient = &http.Client{Timeout: opts.Timeout}
		}
	})

	return NewS3WithClient(client, c.Bucket, opts.Logger), nil
}

// NewS3WithClient creates an S3Transport over an existing client.
// This is primarily used for testing with mocked clients.
func NewS3WithClient(api s3api.S3API, bucket string, logger *slog.Logger) *S3Transport {
	return &S3Transport{
		api:    api,
		bucket: bucket,
		logger: logger,
	}
}

// Fetch implements Transport. Direct URLs are rejected.
func (t *S3Transport) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	if objectKey(locator) == "" {
		return nil, perrors.NewValidationError("empty locator")
	}
	if manifest.IsURL(locator) {
		return nil, perrors.NewPathError("fetch", locator, perrors.ErrInvalidInput,
			fmt.Errorf("s3 transport only fetches object keys"))
	}
	key := objectKey(locator)

	if t.logger != nil {
		t.logger.DebugContext(ctx, "getting object", "bucket", t.bucket, "key", key)
	}

	out, err := t.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapS3Error(locator, err)
	}
	if out.Body == nil {
		return io.NopCloser(http.NoBody), nil
	}
	return out.Body, nil
}

func mapS3Error(key string, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return perrors.NewPathError("fetch", key, perrors.ErrObjectNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return perrors.NewPathError("fetch", key, perrors.ErrObjectNotFound, err)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return perrors.NewPathError("fetch", key, perrors.ErrAccessDenied, err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return perrors.NewPathError("fetch", key, perrors.ErrObjectNotFound, err)
		case http.StatusForbidden:
			return perrors.NewPathError("fetch", key, perrors.ErrAccessDenied, err)
		}
	}

	return perrors.NewPathError("fetch", key, perrors.ErrDownloadFailed, err)
}
