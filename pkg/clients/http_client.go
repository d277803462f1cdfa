package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = time.Second * 15

var ErrFailedCloseResponseBody = errors.New("failed close response body")

//go:generate mockgen -source=http_client.go -destination=mock_http_client.go -package=clients
type HTTPClientI interface {
	Get(ctx context.Context, url string, headers http.Header) (statusCode int, respBody []byte, err error)
}

type HTTPClient struct {
	client *http.Client
}

func NewHTTPClient() *HTTPClient {
	return NewHTTPClientWithTimeout(defaultTimeout)
}

func NewHTTPClientWithTimeout(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPClient) Get(ctx context.Context, url string, headers http.Header) (statusCode int, respBody []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return
	}
	if headers != nil {
		req.Header = headers
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return
	}
	defer func() {
		if e := resp.Body.Close(); e != nil {
			err = errors.Join(err, ErrFailedCloseResponseBody)
		}
	}()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	statusCode = resp.StatusCode
	return
}
