package jimeng

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Algorithm is the signing algorithm tag used in the string to sign and the
// Authorization header.
const Algorithm = "HMAC-SHA256"

// terminator closes the credential scope.
const terminator = "request"

// Signature is the result of signing one CanonicalRequest. It is only
// valid for that request and the timestamp embedded in it.
type Signature struct {
	Value         string
	Scope         string
	SignedHeaders string
	Date          string
}

// Authorization renders the Authorization header for accessKey.
func (s Signature) Authorization(accessKey string) string {
	return fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		Algorithm, accessKey, s.Scope, s.SignedHeaders, s.Value)
}

// Sign derives the signing key from secretKey through the date, region and
// service chain and signs the canonical request. It performs no I/O.
func Sign(c *CanonicalRequest, secretKey, region, service string) (Signature, error) {
	if strings.TrimSpace(secretKey) == "" {
		return Signature{}, &InvalidCredentialError{Reason: "secret key is empty"}
	}
	if c == nil {
		return Signature{}, fmt.Errorf("jimeng: sign: nil canonical request")
	}

	date := c.Date()
	shortDate := c.Timestamp.UTC().Format(ShortFormat)
	scope := CredentialScope(shortDate, region, service)

	key := SigningKey(secretKey, shortDate, region, service)
	signature := hex.EncodeToString(hmacSHA256(key, StringToSign(c, scope)))

	return Signature{
		Value:         signature,
		Scope:         scope,
		SignedHeaders: c.SignedHeaders,
		Date:          date,
	}, nil
}

// CredentialScope returns "{date}/{region}/{service}/request".
func CredentialScope(shortDate, region, service string) string {
	return shortDate + "/" + region + "/" + service + "/" + terminator
}

// StringToSign binds the canonical request to the timestamp and scope via
// its SHA-256 hash.
func StringToSign(c *CanonicalRequest, scope string) string {
	return Algorithm + "\n" + c.Date() + "\n" + scope + "\n" + sha256Hex([]byte(c.String()))
}

// SigningKey runs the four-step derivation:
// date key -> region key -> service key -> signing key.
func SigningKey(secretKey, shortDate, region, service string) []byte {
	kDate := hmacSHA256([]byte(secretKey), shortDate)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, terminator)
}

// hmacSHA256 calculates HMAC-SHA256
func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
