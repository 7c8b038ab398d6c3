// Package client is the handheld's typed view of the warehouse backend. It
// is unaware of which backend serves a call; that is up to the transport.
package client

import (
	"context"

	"github.com/craftandculture/Craft-Culture-sub006/internal/scanner/transport"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
)

// Client performs warehouse operations over a transport
type Client struct {
	transport transport.Transport
}

// New creates a client
func New(t transport.Transport) *Client {
	return &Client{transport: t}
}

// ScanLocation resolves a location barcode and lists its stock
func (c *Client) ScanLocation(ctx context.Context, barcode string) (*service.LocationContents, error) {
	var out service.LocationContents
	if err := c.transport.Request(ctx, api.ScanLocation, api.ScanRequest{Barcode: barcode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScanCase resolves a case label or LWIN18
func (c *Client) ScanCase(ctx context.Context, barcode string) (*service.CaseInfo, error) {
	var out service.CaseInfo
	if err := c.transport.Request(ctx, api.ScanCase, api.ScanRequest{Barcode: barcode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transfer moves cases between locations
func (c *Client) Transfer(ctx context.Context, req service.TransferRequest) (*service.MoveResult, error) {
	var out service.MoveResult
	if err := c.transport.Request(ctx, api.Transfer, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Putaway moves received cases into storage
func (c *Client) Putaway(ctx context.Context, req service.PutawayRequest) (*service.MoveResult, error) {
	var out service.MoveResult
	if err := c.transport.Request(ctx, api.Putaway, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PickItem confirms one pick instruction
func (c *Client) PickItem(ctx context.Context, req service.PickRequest) (*service.PickResult, error) {
	var out service.PickResult
	if err := c.transport.Request(ctx, api.PickItem, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompletePickList closes a fully picked list
func (c *Client) CompletePickList(ctx context.Context, pickListID string) (*repository.PickList, error) {
	var out repository.PickList
	if err := c.transport.Request(ctx, api.CompletePickList, api.CompleteRequest{PickListID: pickListID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPickList returns a pick list with its items
func (c *Client) GetPickList(ctx context.Context, pickListID string) (*repository.PickList, error) {
	var out repository.PickList
	if err := c.transport.Request(ctx, api.GetPickList, api.PickListRef{ID: pickListID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPickLists lists pick lists, optionally of one status
func (c *Client) ListPickLists(ctx context.Context, status string) ([]*repository.PickList, error) {
	out := []*repository.PickList{}
	if err := c.transport.Request(ctx, api.ListPickLists, api.PickListFilter{Status: status}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Receive books a shipment into a receiving location
func (c *Client) Receive(ctx context.Context, req service.ReceiveRequest) (*service.ReceiveResult, error) {
	var out service.ReceiveResult
	if err := c.transport.Request(ctx, api.Receive, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
