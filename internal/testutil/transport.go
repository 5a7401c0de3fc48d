// Package testutil provides fakes and fixtures shared by the patcher tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"sync"

	perrors "github.com/printbeast/rngp-patcher/errors"
)

// FakeTransport serves objects from memory. It is safe for concurrent use.
type FakeTransport struct {
	mu      sync.Mutex
	objects map[string][]byte
	errs    map[string]error
	calls   map[string]int

	// BeforeFetch, when set, runs at the start of every Fetch
	BeforeFetch func(ctx context.Context, locator string) error

	// Responses, when set for a locator, are served in order before falling
	// back to the stored object
	Responses map[string][][]byte
}

// NewFakeTransport creates an empty FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		objects:   make(map[string][]byte),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
		Responses: make(map[string][][]byte),
	}
}

// Put stores an object under locator.
func (f *FakeTransport) Put(locator string, data []byte) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[locator] = data
	return f
}

// Fail makes every fetch of locator return err.
func (f *FakeTransport) Fail(locator string, err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[locator] = err
	return f
}

// Calls returns how often locator was fetched.
func (f *FakeTransport) Calls(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[locator]
}

// TotalCalls returns the number of fetches across all locators.
func (f *FakeTransport) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Fetch implements the transport interface.
func (f *FakeTransport) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	if f.BeforeFetch != nil {
		if err := f.BeforeFetch(ctx, locator); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[locator]++

	if err, ok := f.errs[locator]; ok {
		return nil, err
	}
	if queued := f.Responses[locator]; len(queued) > 0 {
		f.Responses[locator] = queued[1:]
		return io.NopCloser(bytes.NewReader(queued[0])), nil
	}
	data, ok := f.objects[locator]
	if !ok {
		return nil, perrors.NewPathError("fetch", locator, perrors.ErrObjectNotFound, nil)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// FailingReader returns data and then err.
type FailingReader struct {
	Data []byte
	Err  error
	read bool
}

// Read implements io.Reader.
func (r *FailingReader) Read(p []byte) (int, error) {
	if !r.read && len(r.Data) > 0 {
		r.read = true
		return copy(p, r.Data), nil
	}
	return 0, r.Err
}

// Close implements io.Closer.
func (r *FailingReader) Close() error { return nil }
