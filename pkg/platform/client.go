package platform

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// callTimeout bounds a single outbound platform call so a hung remote endpoint
// cannot block a worker slot for the whole job timeout.
const callTimeout = 10 * time.Second

type apiResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *apiResponse) ok() bool {
	return r.Status >= 200 && r.Status < 300
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: callTimeout},
	}
}

// do performs one HTTP call. Any error it returns is transport-level; remote
// status codes are reported through apiResponse for the adapter to normalize.
func (c *apiClient) do(ctx context.Context, method, path string, headers map[string]string, body []byte) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &apiResponse{Status: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

// truncate keeps remote error strings readable in logs and results.
func truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
