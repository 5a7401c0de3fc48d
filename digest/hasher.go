package digest

import (
	"errors"
	"fmt"
	iofs "io/fs"

	"github.com/printbeast/rngp-patcher/fs"
)

// Hasher hashes files on a Filesystem, optionally through a Cache.
type Hasher struct {
	cache *Cache
}

// NewHasher returns a Hasher. A nil cache disables caching.
func NewHasher(cache *Cache) *Hasher {
	return &Hasher{cache: cache}
}

// File hashes the file at path. It returns Absent when the file does not
// exist and an error for every other failure, including path being a
// directory.
func (h *Hasher) File(fsys fs.Filesystem, path string, alg Algorithm) (Result, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return Absent(), nil
		}
		return Result{}, fmt.Errorf("digest: stat %q: %w", path, err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("digest: %q is a directory", path)
	}

	if sum, ok := h.cache.get(path, alg, info); ok {
		return Present(sum), nil
	}

	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return Absent(), nil
		}
		return Result{}, fmt.Errorf("digest: open %q: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sum, err := Reader(f, alg)
	if err != nil {
		return Result{}, fmt.Errorf("digest: hash %q: %w", path, err)
	}

	h.cache.put(path, alg, info, sum)
	return Present(sum), nil
}

// Forget drops any cached digest for path. Call it after replacing a file.
func (h *Hasher) Forget(path string) {
	h.cache.remove(path)
}
