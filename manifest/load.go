package manifest

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	perrors "github.com/printbeast/rngp-patcher/errors"
)

// MaxSize caps the manifest document size.
const MaxSize = 64 << 20

// FilePrefix marks a manifest location on the local disk.
const FilePrefix = "file://"

// Fetcher retrieves a document by locator. Transports satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (io.ReadCloser, error)
}

// IsLocal reports whether location names a file on the local disk.
func IsLocal(location string) bool {
	return strings.HasPrefix(location, FilePrefix)
}

// Load reads and parses the manifest at location. Locations with the file://
// prefix are read from disk; everything else goes through f.
// Read failures wrap errors.ErrManifestUnreachable, parse failures
// errors.ErrManifestInvalid.
func Load(ctx context.Context, f Fetcher, location string) (*Manifest, error) {
	if location == "" {
		return nil, perrors.New("load", perrors.ErrManifestUnreachable, fmt.Errorf("no manifest location configured"))
	}

	var (
		raw []byte
		err error
	)
	if IsLocal(location) {
		raw, err = readLocal(strings.TrimPrefix(location, FilePrefix))
	} else {
		raw, err = fetch(ctx, f, location)
	}
	if err != nil {
		return nil, perrors.NewPathError("load", location, perrors.ErrManifestUnreachable, err)
	}

	return Parse(raw)
}

func readLocal(path string) ([]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = fh.Close()
	}()
	return readAll(fh)
}

func fetch(ctx context.Context, f Fetcher, location string) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("no transport configured")
	}
	body, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = body.Close()
	}()
	return readAll(body)
}

func readAll(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(raw) > MaxSize {
		return nil, fmt.Errorf("manifest exceeds %d bytes", MaxSize)
	}
	return raw, nil
}
