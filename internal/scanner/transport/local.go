package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
)

// LocalTransport calls the edge server's HTTP API
type LocalTransport struct {
	baseURL string
	client  *http.Client
}

// NewLocalTransport creates a transport for the edge server at baseURL
func NewLocalTransport(baseURL string, client *http.Client) *LocalTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &LocalTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Request implements Transport
func (t *LocalTransport) Request(ctx context.Context, op api.Operation, payload, out interface{}) error {
	req, err := t.newRequest(ctx, op, payload)
	if err != nil {
		return err
	}
	return do(t.client, req, out)
}

func (t *LocalTransport) newRequest(ctx context.Context, op api.Operation, payload interface{}) (*http.Request, error) {
	if op.Method == http.MethodGet {
		target, err := t.target(op, payload)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		return req, nil
	}

	body, err := jsonBody(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, op.Method, t.baseURL+op.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// target fills the path parameters of op from payload; the remaining
// non-empty payload fields become query parameters.
func (t *LocalTransport) target(op api.Operation, payload interface{}) (string, error) {
	params := map[string]string{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request: %w", err)
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return "", fmt.Errorf("request for %s must be an object: %w", op.Name, err)
		}
		for k, v := range fields {
			if v == nil {
				continue
			}
			params[k] = fmt.Sprint(v)
		}
	}

	path := op.Path
	for k, v := range params {
		placeholder := "{" + k + "}"
		if strings.Contains(path, placeholder) && v != "" {
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(v))
			delete(params, k)
		}
	}
	if i := strings.Index(path, "{"); i >= 0 {
		name := strings.TrimSuffix(path[i+1:], "}")
		if j := strings.Index(name, "}"); j >= 0 {
			name = name[:j]
		}
		return "", errors.Invalid(name, "this field is required")
	}

	query := url.Values{}
	for k, v := range params {
		if v != "" {
			query.Set(k, v)
		}
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return t.baseURL + path, nil
}
