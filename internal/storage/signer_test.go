package storage

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference request from the AWS Signature Version 4 documentation. Any
// canonicalization drift breaks this exact signature.
func TestSignKnownVector(t *testing.T) {
	s := &Signer{
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		Region:    "us-east-1",
		Service:   "iam",
	}

	at, err := time.Parse(amzDateFormat, "20150830T123600Z")
	require.NoError(t, err)

	headers := http.Header{}
	headers.Set("Host", "iam.amazonaws.com")
	headers.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	headers.Set("X-Amz-Date", "20150830T123600Z")

	// sha256 of the empty string
	const emptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	auth := s.Sign(http.MethodGet, "/", "Action=ListUsers&Version=2010-05-08", headers, emptyHash, at)

	want := "AWS4-HMAC-SHA256 " +
		"Credential=AKIDEXAMPLE/20150830/us-east-1/iam/aws4_request, " +
		"SignedHeaders=content-type;host;x-amz-date, " +
		"Signature=5d672d79c15b13162d9279b0855cfba6789a8edb4c82c400e06b5924a6f2b5d7"
	assert.Equal(t, want, auth)
}

func TestSignHeaderOrderIndependent(t *testing.T) {
	s := &Signer{AccessKey: "k", SecretKey: "s", Region: "sa-east-1", Service: "s3"}
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	a := http.Header{}
	a.Set("Host", "store.example.com")
	a.Set("X-Amz-Date", at.Format(amzDateFormat))
	a.Set("X-Amz-Content-Sha256", UnsignedPayload)

	b := http.Header{}
	b.Set("X-Amz-Content-Sha256", UnsignedPayload)
	b.Set("X-Amz-Date", at.Format(amzDateFormat))
	b.Set("Host", "store.example.com")

	sigA := s.Sign(http.MethodPut, "/bucket/key", "", a, UnsignedPayload, at)
	sigB := s.Sign(http.MethodPut, "/bucket/key", "", b, UnsignedPayload, at)
	assert.Equal(t, sigA, sigB)

	assert.Contains(t, sigA, "SignedHeaders=host;x-amz-content-sha256;x-amz-date")
}

func TestSignVariesWithInputs(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	headers := http.Header{}
	headers.Set("Host", "store.example.com")
	headers.Set("X-Amz-Date", at.Format(amzDateFormat))

	base := &Signer{AccessKey: "k", SecretKey: "secret", Region: "sa-east-1", Service: "s3"}
	sig := base.Sign(http.MethodGet, "/bucket/a", "", headers, UnsignedPayload, at)

	otherKey := &Signer{AccessKey: "k", SecretKey: "other", Region: "sa-east-1", Service: "s3"}
	assert.NotEqual(t, sig, otherKey.Sign(http.MethodGet, "/bucket/a", "", headers, UnsignedPayload, at))

	assert.NotEqual(t, sig, base.Sign(http.MethodGet, "/bucket/b", "", headers, UnsignedPayload, at))

	nextDay := at.Add(24 * time.Hour)
	headersNext := http.Header{}
	headersNext.Set("Host", "store.example.com")
	headersNext.Set("X-Amz-Date", nextDay.Format(amzDateFormat))
	assert.NotEqual(t, sig, base.Sign(http.MethodGet, "/bucket/a", "", headersNext, UnsignedPayload, nextDay))
}
