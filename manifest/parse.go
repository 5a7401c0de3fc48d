package manifest

import (
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/goccy/go-json"

	"github.com/printbeast/rngp-patcher/digest"
	perrors "github.com/printbeast/rngp-patcher/errors"
)

// Date layouts accepted for patch_date.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

type rawManifest struct {
	Version     *string         `json:"version"`
	PatchDate   string          `json:"patch_date"`
	Description string          `json:"description"`
	Files       json.RawMessage `json:"files"`
	Notes       []string        `json:"notes"`
}

type rawFile struct {
	Path        *string         `json:"path"`
	URL         string          `json:"url"`
	Size        json.RawMessage `json:"size"`
	MD5         *string         `json:"md5"`
	Description string          `json:"description"`
}

// Parse decodes and validates a manifest document.
func Parse(raw []byte) (*Manifest, error) {
	var doc rawManifest
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, invalid(fmt.Errorf("decode: %w", err))
	}

	if doc.Version == nil {
		return nil, invalid(fmt.Errorf("missing required field %q", "version"))
	}

	files := bytes.TrimSpace(doc.Files)
	if len(files) == 0 {
		return nil, invalid(fmt.Errorf("missing required field %q", "files"))
	}
	if files[0] != '[' {
		return nil, invalid(fmt.Errorf("field %q must be an array", "files"))
	}

	var entries []rawFile
	if err := json.Unmarshal(files, &entries); err != nil {
		return nil, invalid(fmt.Errorf("decode files: %w", err))
	}

	m := &Manifest{
		Version:     *doc.Version,
		GeneratedAt: parseDate(doc.PatchDate),
		Description: doc.Description,
		Notes:       doc.Notes,
		Files:       make([]FileDescriptor, 0, len(entries)),
		rawSize:     len(raw),
	}

	seen := mapset.NewThreadUnsafeSetWithSize[string](len(entries))
	for i, e := range entries {
		fd, err := parseFile(e)
		if err != nil {
			return nil, invalid(fmt.Errorf("files[%d]: %w", i, err))
		}
		if !seen.Add(fd.Path) {
			return nil, perrors.NewPathError("parse", fd.Path, perrors.ErrManifestInvalid,
				fmt.Errorf("files[%d]: duplicate path", i))
		}
		m.Files = append(m.Files, fd)
	}
	m.buildIndex()

	return m, nil
}

func parseFile(e rawFile) (FileDescriptor, error) {
	if e.Path == nil {
		return FileDescriptor{}, fmt.Errorf("missing required field %q", "path")
	}
	p, err := CleanPath(*e.Path)
	if err != nil {
		return FileDescriptor{}, err
	}

	fd := FileDescriptor{
		Path:        p,
		Locator:     e.URL,
		Description: e.Description,
	}
	if fd.Locator == "" {
		fd.Locator = p
	}

	hasSize := len(e.Size) > 0 && !bytes.Equal(bytes.TrimSpace(e.Size), []byte("null"))
	hasDigest := e.MD5 != nil
	switch {
	case hasSize && hasDigest:
		size, err := parseSize(e.Size)
		if err != nil {
			return FileDescriptor{}, fmt.Errorf("%s: %w", p, err)
		}
		if digest.AlgorithmFor(*e.MD5) == digest.Unknown {
			return FileDescriptor{}, fmt.Errorf("%s: digest %q is not a 32 or 64 character hex string", p, *e.MD5)
		}
		fd.Size = size
		fd.Digest = strings.ToLower(*e.MD5)
		fd.HasMetadata = true
	case hasSize != hasDigest:
		return FileDescriptor{}, fmt.Errorf("%s: size and md5 must be given together", p)
	}

	return fd, nil
}

// parseSize accepts a JSON integer in the uint64 range only.
func parseSize(raw json.RawMessage) (uint64, error) {
	s := string(bytes.TrimSpace(raw))
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %s", s)
	}
	return n, nil
}

// CleanPath validates a manifest path and returns its canonical form.
// Paths must be relative, slash-separated and stay under the install root.
func CleanPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.ContainsRune(p, '\\') {
		return "", fmt.Errorf("path %q contains a backslash", p)
	}
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("path %q is absolute", p)
	}
	if len(p) >= 2 && p[1] == ':' {
		return "", fmt.Errorf("path %q has a drive letter", p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path %q escapes the install root", p)
	}
	return clean, nil
}

// parseDate returns the zero time for an absent or unrecognised date.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func invalid(err error) error {
	return perrors.New("parse", perrors.ErrManifestInvalid, err)
}
