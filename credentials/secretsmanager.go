package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/goccy/go-json"

	perrors "github.com/printbeast/rngp-patcher/errors"
)

// AWS error codes returned by Secrets Manager.
const (
	ResourceNotFoundException = "ResourceNotFoundException"
	AccessDeniedException     = "AccessDeniedException"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// secretDocument is the JSON layout of a stored credentials secret.
type secretDocument struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
}

// SecretsManagerSource loads credentials from a JSON secret.
type SecretsManagerSource struct {
	api      SecretsManagerAPI
	secretID string
	logger   *slog.Logger
}

// SourceOption configures a SecretsManagerSource.
type SourceOption func(*sourceOptions)

type sourceOptions struct {
	region   string
	endpoint string
	logger   *slog.Logger
}

// WithSourceRegion sets the AWS region of the secret.
func WithSourceRegion(region string) SourceOption {
	return func(o *sourceOptions) {
		o.region = region
	}
}

// WithSourceEndpoint points the client at a custom endpoint, e.g. LocalStack.
func WithSourceEndpoint(endpoint string) SourceOption {
	return func(o *sourceOptions) {
		o.endpoint = endpoint
	}
}

// WithSourceLogger sets the logger.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(o *sourceOptions) {
		o.logger = logger
	}
}

// NewSecretsManagerSource creates a source using the default AWS
// configuration chain.
func NewSecretsManagerSource(ctx context.Context, secretID string, opts ...SourceOption) (*SecretsManagerSource, error) {
	o := &sourceOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := secretsmanager.NewFromConfig(cfg, func(so *secretsmanager.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
		}
	})

	return NewSecretsManagerSourceWithAPI(api, secretID, o.logger), nil
}

// NewSecretsManagerSourceWithAPI creates a source over an existing client.
func NewSecretsManagerSourceWithAPI(api SecretsManagerAPI, secretID string, logger *slog.Logger) *SecretsManagerSource {
	return &SecretsManagerSource{
		api:      api,
		secretID: secretID,
		logger:   logger,
	}
}

// Load fetches and decodes the secret.
func (s *SecretsManagerSource) Load(ctx context.Context) (Credentials, error) {
	if s.secretID == "" {
		return Credentials{}, perrors.NewValidationError("secret id cannot be empty")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "retrieving credentials secret", "secret_id", s.secretID)
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to retrieve credentials secret",
				"secret_id", s.secretID,
				"error", err)
		}
		return Credentials{}, mapSecretsError(s.secretID, err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(*out.SecretString)
	case out.SecretBinary != nil:
		raw = out.SecretBinary
	default:
		return Credentials{}, perrors.NewPathError("credentials", s.secretID, perrors.ErrInvalidInput,
			errors.New("secret has no value"))
	}

	var doc secretDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		// The decode error may quote the secret, so it is not wrapped.
		return Credentials{}, perrors.NewPathError("credentials", s.secretID, perrors.ErrInvalidInput,
			errors.New("secret is not a JSON credentials document"))
	}

	c := Credentials{
		AccessKey: doc.AccessKey,
		SecretKey: doc.SecretKey,
		Region:    doc.Region,
		Endpoint:  doc.Endpoint,
		Bucket:    doc.Bucket,
	}.Normalize()
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "credentials secret retrieved", "secret_id", s.secretID, "credentials", c)
	}
	return c, nil
}

func mapSecretsError(secretID string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case ResourceNotFoundException:
			return perrors.NewPathError("credentials", secretID, perrors.ErrObjectNotFound, err)
		case AccessDeniedException:
			return perrors.NewPathError("credentials", secretID, perrors.ErrAccessDenied, err)
		}
	}
	return perrors.NewPathError("credentials", secretID, perrors.ErrSigning, err)
}
