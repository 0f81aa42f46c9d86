// Package authadmin implements the admin SDK dispatcher over the auth
// service's admin REST endpoints.
package authadmin

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

// route maps a dispatcher method to its REST shape. Placeholders in the
// path are filled from the call parameters.
type route struct {
	verb string
	path string
}

var routes = map[string]route{
	"list_users":           {http.MethodGet, "/admin/users"},
	"get_user_by_id":       {http.MethodGet, "/admin/users/{id}"},
	"create_user":          {http.MethodPost, "/admin/users"},
	"update_user_by_id":    {http.MethodPut, "/admin/users/{id}"},
	"delete_user":          {http.MethodDelete, "/admin/users/{id}"},
	"invite_user_by_email": {http.MethodPost, "/invite"},
	"generate_link":        {http.MethodPost, "/admin/generate_link"},
	"delete_factor":        {http.MethodDelete, "/admin/users/{id}/factors/{factor_id}"},
}

// Dispatcher executes admin SDK calls against the auth admin API using a
// service-role key.
type Dispatcher struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(baseURL, serviceKey string, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "authadmin-dispatcher").Logger(),
	}
}

// Dispatch invokes one method. Path placeholders consume their parameters;
// the rest become the query string for GET calls or the JSON body
// otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error) {
	r, ok := routes[method]
	if !ok {
		return nil, errors.Newf(errors.CodeUnsupportedOperation, "unsupported sdk method: %q", method)
	}

	remaining := make(map[string]interface{}, len(params))
	for k, v := range params {
		remaining[k] = v
	}

	path, err := fillPath(r.path, remaining)
	if err != nil {
		return nil, err
	}

	endpoint := d.baseURL + path
	var reqBody io.Reader

	if r.verb == http.MethodGet {
		if len(remaining) > 0 {
			values := url.Values{}
			for k, v := range remaining {
				values.Set(k, fmt.Sprintf("%v", v))
			}
			endpoint += "?" + values.Encode()
		}
	} else if len(remaining) > 0 {
		encoded, err := json.Marshal(remaining)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidRequest, "failed to encode sdk parameters")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, r.verb, endpoint, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidRequest, "failed to build sdk request")
	}
	req.Header.Set("Authorization", "Bearer "+d.serviceKey)
	req.Header.Set("apikey", d.serviceKey)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "auth admin api request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "failed to read auth admin response")
	}

	d.logger.Debug().
		Str("method", method).
		Int("status", resp.StatusCode).
		Msg("Auth admin call")

	if resp.StatusCode >= 400 {
		code := errors.CodeExecutionFailed
		switch {
		case resp.StatusCode == http.StatusNotFound:
			code = errors.CodeNotFound
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			code = errors.CodeUnauthorized
		case resp.StatusCode >= 500:
			code = errors.CodeUnavailable
		}
		return nil, errors.Newf(code, "auth admin api returned status %d", resp.StatusCode).
			WithDetail("response", string(respBody))
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}
	var decoded interface{}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, "auth admin api returned invalid json")
	}
	if obj, ok := decoded.(map[string]interface{}); ok {
		return obj, nil
	}
	return map[string]interface{}{"data": decoded}, nil
}

// fillPath substitutes {placeholder} segments from params, removing
// consumed keys. Missing parameters are invalid requests.
func fillPath(template string, params map[string]interface{}) (string, error) {
	segments := strings.Split(template, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		name := strings.Trim(seg, "{}")
		value, ok := params[name]
		if !ok {
			return "", errors.Newf(errors.CodeInvalidRequest, "missing required parameter %q", name)
		}
		text := fmt.Sprintf("%v", value)
		if text == "" || strings.ContainsAny(text, "/?#") {
			return "", errors.Newf(errors.CodeInvalidRequest, "invalid value for parameter %q", name)
		}
		segments[i] = url.PathEscape(text)
		delete(params, name)
	}
	return strings.Join(segments, "/"), nil
}
