package patcher

import (
	"log/slog"
	"time"

	"github.com/printbeast/rngp-patcher/credentials"
	"github.com/printbeast/rngp-patcher/fs"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

// WithInstallDir sets the root of the local installation.
// Required unless WithFilesystem is used.
func WithInstallDir(dir string) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.InstallDir = dir
	}
}

// WithManifestLocation sets where the manifest is read from: an object key,
// an http(s) URL, or a local file prefixed with file://.
func WithManifestLocation(location string) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.ManifestLocation = location
	}
}

// WithCredentials sets the storage credentials. Without credentials object
// keys are fetched unsigned from the base URL.
func WithCredentials(creds credentials.Credentials) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.Credentials = creds
	}
}

// WithBackend selects how object keys are fetched.
// Default is BackendHTTP.
func WithBackend(backend patchtypes.Backend) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.Backend = backend
	}
}

// WithTransport overrides the storage transport entirely.
// This is primarily used for testing.
func WithTransport(t patchtypes.Transport) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.Transport = t
	}
}

// WithBaseURL sets the URL unsigned object keys are resolved against.
func WithBaseURL(baseURL string) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.BaseURL = baseURL
	}
}

// WithEndpointURL overrides the endpoint used by the S3 and MinIO backends,
// e.g. for LocalStack.
func WithEndpointURL(endpoint string) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.EndpointURL = endpoint
	}
}

// WithPathStyle addresses the bucket as a path segment.
// Default is false (virtual-hosted style). Ignored by the HTTP backend.
func WithPathStyle(pathStyle bool) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.PathStyle = pathStyle
	}
}

// WithInsecure talks plain http to the storage endpoint.
// Only use this for local testing.
func WithInsecure(insecure bool) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.Insecure = insecure
	}
}

// WithTimeout bounds every storage request, body transfer included.
// Default is 5 minutes.
func WithTimeout(timeout time.Duration) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithConcurrency sets the number of parallel downloads.
// Default is 1; values above 8 are clamped.
func WithConcurrency(concurrency int) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithVerifyRetries sets how many times a download failing verification is
// fetched again before it is kept with a warning. Default is 0.
func WithVerifyRetries(retries int) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		if retries >= 0 {
			c.VerifyRetries = retries
		}
	}
}

// WithDigestCacheSize sets how many file digests are remembered between a
// check and the following sync. Zero disables the cache.
func WithDigestCacheSize(size int) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		if size >= 0 {
			c.DigestCacheSize = size
		}
	}
}

// WithForce fetches every manifest file even when its digest matches.
func WithForce(force bool) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.Force = force
	}
}

// WithDeprecatedFiles replaces the built-in list of legacy files removed on
// every sync. An empty non-nil slice disables removal.
func WithDeprecatedFiles(files []string) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.DeprecatedFiles = append([]string{}, files...)
	}
}

// WithFilesystem sets a custom filesystem rooted at the install dir.
// This allows using in-memory filesystems for testing.
func WithFilesystem(filesystem fs.Filesystem) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithLogger sets the structured logger. Default discards all records.
func WithLogger(logger *slog.Logger) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithProgress sets the progress callback. It is invoked on the goroutine
// that called Sync or Apply.
func WithProgress(fn patchtypes.ProgressFunc) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		c.Progress = fn
	}
}

// WithClock sets the clock used for request signing.
func WithClock(now func() time.Time) patchtypes.Option {
	return func(c *patchtypes.ClientConfig) {
		if now != nil {
			c.Clock = now
		}
	}
}
