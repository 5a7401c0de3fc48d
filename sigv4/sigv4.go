// Package sigv4 signs S3 object requests with AWS Signature Version 4.
//
// Only what the patcher needs is implemented: header-based signing of
// requests without a query string, against a virtual-hosted bucket
// (bucket.endpoint), with host and x-amz-date as the signed headers.
// SignAt is a pure function of its inputs; Sign reads the injected clock.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/printbeast/rngp-patcher/credentials"
	perrors "github.com/printbeast/rngp-patcher/errors"
)

const (
	// Algorithm is the signing algorithm tag.
	Algorithm = "AWS4-HMAC-SHA256"

	// Service is the signing service name.
	Service = "s3"

	// EmptyPayloadHash is the hex SHA-256 of an empty body.
	EmptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	terminator    = "aws4_request"
	amzDateFormat = "20060102T150405Z"
	dateFormat    = "20060102"
	signedHeaders = "host;x-amz-date"
)

// Headers is the header set attached to a signed request.
type Headers struct {
	Authorization string
	AmzDate       string
	Host          string
}

// Signer signs requests for one set of credentials. It holds no mutable state
// and is safe for concurrent use.
type Signer struct {
	creds credentials.Credentials
	now   func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// New validates creds and returns a Signer. Invalid credentials return an
// error wrapping errors.ErrSigning.
func New(creds credentials.Credentials, opts ...Option) (*Signer, error) {
	creds = creds.Normalize()
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	s := &Signer{creds: creds, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Host returns the host requests must be sent to.
func (s *Signer) Host() string {
	return s.creds.Host()
}

// URL returns the https URL of an object key.
func (s *Signer) URL(key string) string {
	return "https://" + s.Host() + CanonicalURI(key)
}

// Sign signs a bodiless request for key at the current time.
func (s *Signer) Sign(method, key string) (Headers, error) {
	return s.SignAt(method, key, EmptyPayloadHash, s.now())
}

// SignAt signs a request for key at t with the given payload hash.
func (s *Signer) SignAt(method, key, payloadHash string, t time.Time) (Headers, error) {
	if method == "" {
		return Headers{}, perrors.New("sign", perrors.ErrSigning, fmt.Errorf("empty method"))
	}
	if payloadHash == "" {
		payloadHash = EmptyPayloadHash
	}

	t = t.UTC()
	amzDate := t.Format(amzDateFormat)
	dateStamp := t.Format(dateFormat)
	host := s.Host()
	scope := CredentialScope(dateStamp, s.creds.Region)

	creq := CanonicalRequest(method, key, host, amzDate, payloadHash)
	sts := StringToSign(amzDate, scope, creq)
	signingKey := SigningKey(s.creds.SecretKey, dateStamp, s.creds.Region, Service)
	sig := hex.EncodeToString(hmacSHA256(signingKey, sts))

	return Headers{
		Authorization: fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
			Algorithm, s.creds.AccessKey, scope, signedHeaders, sig),
		AmzDate: amzDate,
		Host:    host,
	}, nil
}

// CanonicalURI URI-encodes an object key, keeping the slashes.
func CanonicalURI(key string) string {
	var b strings.Builder
	b.WriteByte('/')
	for i := 0; i < len(key); i++ {
		c := key[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

// CanonicalRequest builds the canonical request string.
func CanonicalRequest(method, key, host, amzDate, payloadHash string) string {
	return strings.Join([]string{
		strings.ToUpper(method),
		CanonicalURI(key),
		"",
		"host:" + host + "\n" + "x-amz-date:" + amzDate + "\n",
		signedHeaders,
		payloadHash,
	}, "\n")
}

// CredentialScope returns date/region/s3/aws4_request.
func CredentialScope(dateStamp, region string) string {
	return strings.Join([]string{dateStamp, region, Service, terminator}, "/")
}

// StringToSign builds the string to sign for a canonical request.
func StringToSign(amzDate, scope, canonicalRequest string) string {
	sum := sha256.Sum256([]byte(canonicalRequest))
	return strings.Join([]string{Algorithm, amzDate, scope, hex.EncodeToString(sum[:])}, "\n")
}

// SigningKey derives the per-day signing key.
func SigningKey(secret, dateStamp, region, service string) []byte {
	k := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	k = hmacSHA256(k, region)
	k = hmacSHA256(k, service)
	return hmacSHA256(k, terminator)
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	_, _ = h.Write([]byte(data))
	return h.Sum(nil)
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}
