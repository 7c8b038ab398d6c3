// Package transport carries scanner operations to a warehouse backend: the
// edge server's HTTP API, the cloud RPC endpoint, or whichever of the two the
// health monitor currently prefers.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/actor"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
)

// Transport performs one operation. payload is encoded as the request and
// the response data is decoded into out when out is non-nil.
//
// Failures to reach the backend (dial errors, timeouts, 5xx responses) are
// returned as errors.ErrNetwork. Error envelopes are decoded into AppErrors
// so callers can match them with errors.Is.
type Transport interface {
	Request(ctx context.Context, op api.Operation, payload, out interface{}) error
}

// do sends req and decodes the response envelope into out
func do(client *http.Client, req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	actor.SetHeaders(req, actor.FromContext(req.Context()))

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil && ctxErr != context.DeadlineExceeded {
			return ctxErr
		}
		return errors.Network(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Network(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Network(fmt.Errorf("backend returned status %d", resp.StatusCode))
	}

	var env api.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return errors.FromWire("", http.StatusText(resp.StatusCode), resp.StatusCode, nil)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		return errors.FromWire(env.Code, env.Error, resp.StatusCode, env.Details)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func jsonBody(payload interface{}) (io.Reader, error) {
	if payload == nil {
		return bytes.NewReader([]byte("{}")), nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(raw), nil
}
