// Package management implements the HTTP client for the control-plane
// management API.
package management

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/warden-db/warden/pkg/errors"
)

// Client calls the management API with a bearer access token. Responses
// are decoded as JSON.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewClient creates a management API client.
func NewClient(baseURL, accessToken string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "management-client").Logger(),
	}
}

// Do sends one request and decodes the JSON response. Non-2xx statuses map
// to gateway error codes; the upstream body is preserved as a detail.
func (c *Client) Do(ctx context.Context, method, path string, query map[string]string, body map[string]interface{}) (map[string]interface{}, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		values := url.Values{}
		for k, v := range query {
			values.Set(k, v)
		}
		endpoint += "?" + values.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidRequest, "failed to encode request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidRequest, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "management api request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "failed to read management api response")
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Management api call")

	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, respBody)
	}

	return decodeResponse(respBody)
}

func statusError(status int, body []byte) error {
	msg := fmt.Sprintf("management api returned status %d", status)
	var code string
	switch {
	case status == http.StatusNotFound:
		code = errors.CodeNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = errors.CodeUnauthorized
	case status >= 500:
		code = errors.CodeUnavailable
	default:
		code = errors.CodeExecutionFailed
	}
	err := errors.New(code, msg).WithDetail("status", status)
	if len(body) > 0 {
		err = err.WithDetail("response", string(body))
	}
	return err
}

// decodeResponse tolerates empty bodies and non-object JSON: arrays and
// scalars are wrapped under a "data" key.
func decodeResponse(body []byte) (map[string]interface{}, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, "management api returned invalid json")
	}
	if obj, ok := decoded.(map[string]interface{}); ok {
		return obj, nil
	}
	return map[string]interface{}{"data": decoded}, nil
}
