package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"time"
)

// UnsignedPayload is the content-sha256 placeholder for requests whose body
// is not pre-hashed. The signature then covers headers and the canonical
// request structure only.
const UnsignedPayload = "UNSIGNED-PAYLOAD"

const (
	amzDateFormat  = "20060102T150405Z"
	dateStampLayout = "20060102"
	signAlgorithm  = "AWS4-HMAC-SHA256"
	scopeSuffix    = "aws4_request"
)

// Signer produces AWS Signature Version 4 authorization headers. It is the
// only signing path: a canonicalization mismatch means every request is
// rejected by the store, so the rules here (lower-cased, alphabetically
// sorted headers; fixed key-derivation chain) must not drift.
type Signer struct {
	AccessKey string
	SecretKey string
	Region    string
	Service   string
}

// Sign builds the Authorization header value for a request. Headers meant to
// be covered by the signature must already be set, including Host. The path
// must be URI-escaped and the query already in canonical (sorted, encoded)
// form.
func (s *Signer) Sign(method, path, rawQuery string, headers http.Header, payloadHash string, t time.Time) string {
	t = t.UTC()
	amzDate := t.Format(amzDateFormat)
	dateStamp := t.Format(dateStampLayout)

	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, strings.ToLower(k))
	}
	sort.Strings(names)

	var canonHeaders strings.Builder
	for _, name := range names {
		vals := headers.Values(name)
		trimmed := make([]string, len(vals))
		for i, v := range vals {
			trimmed[i] = strings.TrimSpace(v)
		}
		canonHeaders.WriteString(name)
		canonHeaders.WriteString(":")
		canonHeaders.WriteString(strings.Join(trimmed, ","))
		canonHeaders.WriteString("\n")
	}
	signedHeaders := strings.Join(names, ";")

	canonicalRequest := strings.Join([]string{
		method,
		path,
		rawQuery,
		canonHeaders.String(),
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{dateStamp, s.Region, s.Service, scopeSuffix}, "/")
	stringToSign := strings.Join([]string{
		signAlgorithm,
		amzDate,
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signature := hex.EncodeToString(hmacSHA256(s.signingKey(dateStamp), []byte(stringToSign)))

	return signAlgorithm +
		" Credential=" + s.AccessKey + "/" + scope +
		", SignedHeaders=" + signedHeaders +
		", Signature=" + signature
}

// signingKey derives the per-date key: a fixed chain of keyed hashes over
// secret, date, region and service, terminated by the scope suffix.
func (s *Signer) signingKey(dateStamp string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+s.SecretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(s.Region))
	kService := hmacSHA256(kRegion, []byte(s.Service))
	return hmacSHA256(kService, []byte(scopeSuffix))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
