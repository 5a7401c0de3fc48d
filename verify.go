package patcher

import (
	"context"
	"fmt"
	"io"

	"github.com/printbeast/rngp-patcher/digest"
	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

// VerifyConnection checks that storage is reachable with the configured
// credentials: it loads the manifest, then downloads the first listed file
// into memory and verifies its digest. Nothing is written to the install dir.
func (c *Client) VerifyConnection(ctx context.Context) (*patchtypes.ConnectionReport, error) {
	m, err := c.LoadManifest(ctx)
	if err != nil {
		return nil, err
	}

	report := &patchtypes.ConnectionReport{
		Manifest:      m,
		ManifestBytes: m.RawSize(),
	}

	if m.Len() == 0 {
		c.logger.Info("manifest lists no files, skipping file probe")
		return report, nil
	}

	first := m.Files[0]
	report.FirstFile = first.Path

	body, err := c.transport.Fetch(ctx, first.Locator)
	if err != nil {
		return report, perrors.NewPathError("verify", first.Path, perrors.ErrDownloadFailed, err)
	}
	defer func() {
		_ = body.Close()
	}()

	counter := &countingReader{r: body}
	sum, err := digest.Reader(counter, first.Algorithm())
	report.FirstFileBytes = counter.n
	if err != nil {
		return report, perrors.NewPathError("verify", first.Path, perrors.ErrDownloadFailed, err)
	}

	if !first.HasMetadata {
		return report, nil
	}

	report.DigestChecked = true
	report.DigestMatched = digest.Equal(sum, first.Digest)
	if !report.DigestMatched {
		return report, perrors.NewPathError("verify", first.Path, perrors.ErrDigestMismatch,
			fmt.Errorf("expected %s, got %s", first.Digest, sum))
	}

	c.logger.Info("connection verified",
		"manifest_version", m.Version,
		"file", first.Path,
		"bytes", report.FirstFileBytes)

	return report, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
