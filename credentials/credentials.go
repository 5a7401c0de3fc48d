// Package credentials holds the object storage credentials a sync session
// signs its requests with.
//
// Credentials live in memory only. They are supplied per session by the
// caller from flags, the environment, a dotenv file or an AWS Secrets Manager
// secret. The secret key never appears in String, LogValue or any error.
package credentials

import (
	"fmt"
	"log/slog"
	"strings"

	perrors "github.com/printbeast/rngp-patcher/errors"
)

// Credentials identify a bucket on an S3-compatible endpoint and the key pair
// used to sign requests against it.
type Credentials struct {
	AccessKey string
	SecretKey string
	Region    string
	// Endpoint is the storage host without scheme, e.g. "s3.wasabisys.com".
	Endpoint string
	Bucket   string
}

// IsZero reports whether no credentials were configured.
func (c Credentials) IsZero() bool {
	return c == Credentials{}
}

// Normalize strips a scheme and trailing slashes from Endpoint and trims
// surrounding whitespace from every field.
func (c Credentials) Normalize() Credentials {
	c.AccessKey = strings.TrimSpace(c.AccessKey)
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.Region = strings.TrimSpace(c.Region)
	c.Bucket = strings.TrimSpace(c.Bucket)

	ep := strings.TrimSpace(c.Endpoint)
	ep = strings.TrimPrefix(ep, "https://")
	ep = strings.TrimPrefix(ep, "http://")
	c.Endpoint = strings.TrimRight(ep, "/")
	return c
}

// Validate checks that every field needed for signing is set.
func (c Credentials) Validate() error {
	var missing []string
	if c.AccessKey == "" {
		missing = append(missing, "access key")
	}
	if c.SecretKey == "" {
		missing = append(missing, "secret key")
	}
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if len(missing) > 0 {
		return perrors.New("credentials", perrors.ErrSigning,
			fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}
	if strings.ContainsAny(c.Endpoint, "/ ") {
		return perrors.New("credentials", perrors.ErrSigning,
			fmt.Errorf("endpoint %q must be a bare host name", c.Endpoint))
	}
	if strings.ContainsAny(c.Bucket, "/ ") {
		return perrors.New("credentials", perrors.ErrSigning,
			fmt.Errorf("bucket %q is not a valid bucket name", c.Bucket))
	}
	return nil
}

// Host returns the virtual-hosted bucket host, bucket.endpoint.
func (c Credentials) Host() string {
	return c.Bucket + "." + c.Endpoint
}

// String renders the credentials with the secret key masked.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessKey: %s, SecretKey: %s, Region: %s, Endpoint: %s, Bucket: %s}",
		c.AccessKey, MaskSecret(c.SecretKey), c.Region, c.Endpoint, c.Bucket)
}

// GoString keeps %#v from printing the secret.
func (c Credentials) GoString() string {
	return c.String()
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("access_key", c.AccessKey),
		slog.String("secret_key", MaskSecret(c.SecretKey)),
		slog.String("region", c.Region),
		slog.String("endpoint", c.Endpoint),
		slog.String("bucket", c.Bucket),
	)
}

// secretMask replaces a secret key in every rendering.
const secretMask = "*****"

// MaskSecret hides all of s. An empty secret renders empty so that a missing
// key is still visible in logs.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	return secretMask
}
