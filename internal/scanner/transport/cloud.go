package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
)

// CloudTransport calls the hosted RPC endpoint
type CloudTransport struct {
	baseURL string
	client  *http.Client
}

// NewCloudTransport creates a transport for the RPC backend at baseURL
func NewCloudTransport(baseURL string, client *http.Client) *CloudTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &CloudTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Request implements Transport. Every procedure is a POST of the payload.
func (t *CloudTransport) Request(ctx context.Context, op api.Operation, payload, out interface{}) error {
	body, err := jsonBody(payload)
	if err != nil {
		return err
	}
	target := t.baseURL + strings.Replace(api.RPCPath, "{procedure}", op.Procedure, 1)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t.client, req, out)
}
