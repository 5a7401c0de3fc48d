package patcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/printbeast/rngp-patcher/digest"
	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/fs"
	"github.com/printbeast/rngp-patcher/fs/billy"
	"github.com/printbeast/rngp-patcher/internal/deprecated"
	"github.com/printbeast/rngp-patcher/internal/sync/comparator"
	"github.com/printbeast/rngp-patcher/internal/sync/executor"
	"github.com/printbeast/rngp-patcher/internal/sync/planner"
	"github.com/printbeast/rngp-patcher/internal/sync/scanner"
	"github.com/printbeast/rngp-patcher/internal/sync/sync"
	"github.com/printbeast/rngp-patcher/internal/transport"
	"github.com/printbeast/rngp-patcher/patchtypes"
	"github.com/printbeast/rngp-patcher/sigv4"
)

// Client runs sync sessions against one install dir and one manifest.
// A Client is safe for sequential sessions; the engine assumes exclusive
// access to the install dir, so sessions must not overlap.
type Client struct {
	// config is the resolved configuration
	config patchtypes.ClientConfig

	// fs is the filesystem rooted at the install dir
	fs fs.Filesystem

	// transport fetches manifests and files
	transport patchtypes.Transport

	// cache remembers digests of unchanged files between sessions
	cache *digest.Cache

	manager  *sync.Manager
	executor *executor.Executor
	logger   *slog.Logger
}

// New creates a patcher client with the provided options.
//
// Example:
//
//	client, err := patcher.New(
//	    patcher.WithInstallDir("/games/eq"),
//	    patcher.WithManifestLocation("https://cdn.example.com/manifest.json"),
//	    patcher.WithConcurrency(4),
//	)
func New(opts ...patchtypes.Option) (*Client, error) {
	cfg := patchtypes.ClientConfig{
		Backend:         patchtypes.BackendHTTP,
		Timeout:         transport.DefaultTimeout,
		Concurrency:     executor.DefaultConcurrency,
		DigestCacheSize: digest.DefaultCacheSize,
		Clock:           time.Now,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if !cfg.Credentials.IsZero() {
		cfg.Credentials = cfg.Credentials.Normalize()
		if err := cfg.Credentials.Validate(); err != nil {
			return nil, err
		}
	}

	filesystem := cfg.Filesystem
	if filesystem == nil {
		if cfg.InstallDir == "" {
			return nil, perrors.NewValidationError("install dir is required")
		}
		abs, err := fs.GetAbs(cfg.InstallDir)
		if err != nil {
			return nil, perrors.NewPathError("init", cfg.InstallDir, perrors.ErrFilesystem, err)
		}
		if !fs.IsDir(abs) {
			return nil, perrors.NewPathError("init", abs, perrors.ErrInvalidInput,
				fmt.Errorf("install dir does not exist or is not a directory"))
		}
		cfg.InstallDir = abs
		filesystem = billy.NewOSFS(abs)
	}

	tr := cfg.Transport
	if tr == nil {
		var err error
		tr, err = buildTransport(&cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	var cache *digest.Cache
	if cfg.DigestCacheSize > 0 {
		var err error
		cache, err = digest.NewCache(cfg.DigestCacheSize)
		if err != nil {
			return nil, perrors.New("init", perrors.ErrInvalidInput, err)
		}
	}
	hasher := digest.NewHasher(cache)

	deprecatedFiles := cfg.DeprecatedFiles
	if deprecatedFiles == nil {
		deprecatedFiles = deprecated.Files()
	}

	var comp comparator.Comparator = comparator.NewDigestComparator(filesystem, hasher)
	if cfg.Force {
		comp = comparator.NewForceComparator()
	}

	pl := planner.NewPlanner(scanner.NewScanner(filesystem), comp, deprecatedFiles, logger)
	ex := executor.NewExecutor(executor.Config{
		Filesystem:    filesystem,
		Transport:     tr,
		Hasher:        hasher,
		Concurrency:   cfg.Concurrency,
		VerifyRetries: cfg.VerifyRetries,
		Logger:        logger,
	})

	logger.Debug("patcher client created",
		"install_dir", cfg.InstallDir,
		"manifest", cfg.ManifestLocation,
		"backend", cfg.Backend,
		"credentials", cfg.Credentials,
		"concurrency", ex.Concurrency())

	return &Client{
		config:    cfg,
		fs:        filesystem,
		transport: tr,
		cache:     cache,
		manager:   sync.NewManager(tr, pl, ex, logger),
		executor:  ex,
		logger:    logger,
	}, nil
}

// buildTransport creates the transport for the configured backend. Direct
// URLs always go through plain HTTP.
func buildTransport(cfg *patchtypes.ClientConfig, logger *slog.Logger) (patchtypes.Transport, error) {
	switch cfg.Backend {
	case patchtypes.BackendHTTP, "":
		var signer *sigv4.Signer
		if !cfg.Credentials.IsZero() {
			var err error
			signer, err = sigv4.New(cfg.Credentials, sigv4.WithClock(cfg.Clock))
			if err != nil {
				return nil, err
			}
		}
		return transport.NewHTTP(transport.HTTPOptions{
			Signer:   signer,
			BaseURL:  cfg.BaseURL,
			Insecure: cfg.Insecure,
			Timeout:  cfg.Timeout,
			Logger:   logger,
		}), nil

	case patchtypes.BackendS3:
		if cfg.Credentials.IsZero() {
			return nil, perrors.NewValidationError("the s3 backend requires credentials")
		}
		endpoint := cfg.EndpointURL
		if endpoint == "" && cfg.Insecure {
			endpoint = "http://" + cfg.Credentials.Endpoint
		}
		keys, err := transport.NewS3(context.Background(), transport.S3Options{
			Credentials: cfg.Credentials,
			EndpointURL: endpoint,
			PathStyle:   cfg.PathStyle,
			Timeout:     cfg.Timeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return transport.NewRouter(keys, plainHTTP(cfg, logger)), nil

	case patchtypes.BackendMinio:
		if cfg.Credentials.IsZero() {
			return nil, perrors.NewValidationError("the minio backend requires credentials")
		}
		creds := cfg.Credentials
		insecure := cfg.Insecure
		if cfg.EndpointURL != "" {
			creds.Endpoint = cfg.EndpointURL
			creds = creds.Normalize()
			insecure = insecure || strings.HasPrefix(cfg.EndpointURL, "http://")
		}
		keys, err := transport.NewMinio(transport.MinioOptions{
			Credentials: creds,
			Insecure:    insecure,
			PathStyle:   cfg.PathStyle,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return transport.NewRouter(keys, plainHTTP(cfg, logger)), nil

	default:
		return nil, perrors.NewValidationError(fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
}

func plainHTTP(cfg *patchtypes.ClientConfig, logger *slog.Logger) *transport.HTTPTransport {
	return transport.NewHTTP(transport.HTTPOptions{
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
}

// Config returns a copy of the resolved configuration.
func (c *Client) Config() patchtypes.ClientConfig {
	return c.config
}

// Filesystem returns the filesystem rooted at the install dir.
func (c *Client) Filesystem() fs.Filesystem {
	return c.fs
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.cache.Purge()
	return nil
}
