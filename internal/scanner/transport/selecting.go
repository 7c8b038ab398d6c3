package transport

import (
	"context"

	"github.com/craftandculture/Craft-Culture-sub006/internal/scanner/health"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/actor"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
)

// StatusSource reports where calls should go; *health.Monitor implements it.
type StatusSource interface {
	Status() health.Status
}

// LocalFactory builds the local transport for the edge base URL captured by
// the latest health probe.
type LocalFactory func(baseURL string) Transport

// SelectingTransport sends each call to the edge server while it is healthy
// and to the cloud otherwise. A local call that fails to reach the edge
// server is repeated on the cloud once. Errors the edge server answered
// with are returned as they are: repeating a rejected mutation on the other
// backend could apply it twice.
type SelectingTransport struct {
	status StatusSource
	local  LocalFactory
	cloud  Transport
	logger *logger.Logger
}

// NewSelectingTransport creates a selecting transport
func NewSelectingTransport(status StatusSource, local LocalFactory, cloud Transport, log *logger.Logger) *SelectingTransport {
	return &SelectingTransport{
		status: status,
		local:  local,
		cloud:  cloud,
		logger: log.WithComponent("transport"),
	}
}

// Request implements Transport
func (t *SelectingTransport) Request(ctx context.Context, op api.Operation, payload, out interface{}) error {
	status := t.status.Status()
	if status.Mode != health.ModeLocal || status.BaseURL == "" {
		return t.cloud.Request(ctx, op, payload, out)
	}

	err := t.local(status.BaseURL).Request(ctx, op, payload, out)
	if err == nil || !errors.Is(err, errors.ErrNetwork) {
		return err
	}

	t.logger.WithOperator(actor.ID(ctx)).Warn().
		Err(err).
		Str("operation", op.Name).
		Str("edge_url", status.BaseURL).
		Msg("edge server unreachable, retrying on cloud")
	return t.cloud.Request(ctx, op, payload, out)
}
