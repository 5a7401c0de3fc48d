package digest

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of digests kept by NewCache(0).
const DefaultCacheSize = 4096

type cacheEntry struct {
	alg     Algorithm
	size    int64
	modTime time.Time
	sum     string
}

// Cache remembers digests of unchanged files between runs of the same process.
// An entry is only reused while the file's size and modification time match.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
}

// NewCache returns a cache holding up to size digests. A size of zero or less
// uses DefaultCacheSize.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("digest: create cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Len returns the number of cached digests.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

func (c *Cache) get(path string, alg Algorithm, info os.FileInfo) (string, bool) {
	if c == nil {
		return "", false
	}
	e, ok := c.entries.Get(path)
	if !ok {
		return "", false
	}
	if e.alg != alg || e.size != info.Size() || !e.modTime.Equal(info.ModTime()) {
		c.entries.Remove(path)
		return "", false
	}
	return e.sum, true
}

func (c *Cache) put(path string, alg Algorithm, info os.FileInfo, sum string) {
	if c == nil {
		return
	}
	c.entries.Add(path, cacheEntry{
		alg:     alg,
		size:    info.Size(),
		modTime: info.ModTime(),
		sum:     sum,
	})
}

func (c *Cache) remove(path string) {
	if c == nil {
		return
	}
	c.entries.Remove(path)
}
