package jimeng

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Timestamp layouts used by the signing scheme.
const (
	TimeFormat  = "20060102T150405Z"
	ShortFormat = "20060102"
)

// Header names bound into the signature.
const (
	HeaderDate          = "X-Date"
	HeaderContentSHA256 = "X-Content-Sha256"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderHost          = "Host"
)

// CanonicalRequest is the normalized form of an HTTP request that is fed to
// the signer. It is derived, deterministic and discarded after signing.
type CanonicalRequest struct {
	Method        string
	Path          string
	Query         string
	Headers       string
	SignedHeaders string
	PayloadHash   string
	Timestamp     time.Time
}

// String renders the canonical request in the six-line form hashed into the
// string to sign.
func (c *CanonicalRequest) String() string {
	var b strings.Builder
	b.WriteString(c.Method)
	b.WriteByte('\n')
	b.WriteString(c.Path)
	b.WriteByte('\n')
	b.WriteString(c.Query)
	b.WriteByte('\n')
	b.WriteString(c.Headers)
	b.WriteByte('\n')
	b.WriteString(c.SignedHeaders)
	b.WriteByte('\n')
	b.WriteString(c.PayloadHash)
	return b.String()
}

// Date returns the X-Date header value.
func (c *CanonicalRequest) Date() string {
	return c.Timestamp.UTC().Format(TimeFormat)
}

// BuildCanonical builds the canonical request. headers holds the extra
// signed headers (host, content-type); x-date and x-content-sha256 are
// derived from ts and body here so they cannot drift from the signature.
func BuildCanonical(method, path string, query url.Values, headers map[string]string, body []byte, ts time.Time) *CanonicalRequest {
	ts = ts.UTC()
	payloadHash := sha256Hex(body)

	signed := make(map[string]string, len(headers)+2)
	for k, v := range headers {
		signed[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	signed[strings.ToLower(HeaderDate)] = ts.Format(TimeFormat)
	signed[strings.ToLower(HeaderContentSHA256)] = payloadHash

	names := make([]string, 0, len(signed))
	for k := range signed {
		names = append(names, k)
	}
	sort.Strings(names)

	var canonicalHeaders strings.Builder
	for _, name := range names {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteByte(':')
		canonicalHeaders.WriteString(signed[name])
		canonicalHeaders.WriteByte('\n')
	}

	if path == "" {
		path = "/"
	}

	return &CanonicalRequest{
		Method:        strings.ToUpper(method),
		Path:          path,
		Query:         CanonicalQuery(query),
		Headers:       canonicalHeaders.String(),
		SignedHeaders: strings.Join(names, ";"),
		PayloadHash:   payloadHash,
		Timestamp:     ts,
	}
}

// CanonicalQuery encodes query sorted by key, then by value, with RFC 3986
// escaping (spaces as %20). The request URL must carry the same string.
func CanonicalQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		values := append([]string(nil), query[k]...)
		sort.Strings(values)
		if len(values) == 0 {
			values = []string{""}
		}
		for _, v := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(escape(k))
			b.WriteByte('=')
			b.WriteString(escape(v))
		}
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// sha256Hex calculates SHA256 hash and returns hex string
func sha256Hex(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
