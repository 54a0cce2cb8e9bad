package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRequestTimeout = 60 * time.Second

// S3Client talks to any S3-compatible bucket over plain HTTP with SigV4
// request signing. Path-style addressing: {endpoint}/{bucket}/{key}.
type S3Client struct {
	endpoint string
	bucket   string
	signer   *Signer
	httpc    *http.Client
}

type S3Config struct {
	Endpoint  string // e.g. https://s3.sa-east-1.amazonaws.com
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string

	HTTPClient *http.Client // optional; a 60s-timeout client is used when nil
}

func NewS3Client(cfg S3Config) (*S3Client, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: endpoint and bucket are required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("s3: invalid endpoint: %w", err)
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &S3Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		bucket:   cfg.Bucket,
		signer: &Signer{
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Region:    cfg.Region,
			Service:   "s3",
		},
		httpc: httpc,
	}, nil
}

func (c *S3Client) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, key, nil, "")
	if err != nil {
		return nil, fmt.Errorf("s3 get %q: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrObjectNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("s3 get %q: unexpected status %d", key, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 get %q: read body: %w", key, err)
	}
	return data, nil
}

func (c *S3Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	resp, err := c.do(ctx, http.MethodPut, key, data, contentType)
	if err != nil {
		return fmt.Errorf("s3 put %q: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("s3 put %q: unexpected status %d", key, resp.StatusCode)
	}
	return nil
}

// Head reports whether the key exists. A 404 is a negative answer, never an
// error.
func (c *S3Client) Head(ctx context.Context, key string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, key, nil, "")
	if err != nil {
		return false, fmt.Errorf("s3 head %q: %w", key, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return true, nil
	default:
		return false, fmt.Errorf("s3 head %q: unexpected status %d", key, resp.StatusCode)
	}
}

// Delete is idempotent: an already-absent object satisfies "deleted", so a
// 404 succeeds like a 2xx.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	resp, err := c.do(ctx, http.MethodDelete, key, nil, "")
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("s3 delete %q: unexpected status %d", key, resp.StatusCode)
	}
	return nil
}

func (c *S3Client) do(ctx context.Context, method, key string, body []byte, contentType string) (*http.Response, error) {
	rawURL := c.endpoint + "/" + c.bucket + "/" + key

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.ContentLength = int64(len(body))
	}

	now := time.Now().UTC()
	req.Header.Set("X-Amz-Date", now.Format(amzDateFormat))
	req.Header.Set("X-Amz-Content-Sha256", UnsignedPayload)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	// Host is sent by the transport from the URL, but it must also be part
	// of the signed header set.
	signHeaders := req.Header.Clone()
	signHeaders.Set("Host", req.URL.Host)

	auth := c.signer.Sign(method, req.URL.EscapedPath(), req.URL.RawQuery, signHeaders, UnsignedPayload, now)
	req.Header.Set("Authorization", auth)

	return c.httpc.Do(req)
}
