// Package idgen mints human-facing document numbers (lots, movements, pick
// lists) from snowflake ids, so numbers sort by creation time across edge
// and cloud servers running with distinct node ids.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

const (
	LotPrefix      = "LOT"
	MovementPrefix = "MOV"
	PickListPrefix = "PL"
)

// Generator wraps a snowflake node
type Generator struct {
	node *snowflake.Node
}

// New creates a generator for the given node id (0-1023)
func New(node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("failed to init snowflake node %d: %w", node, err)
	}
	return &Generator{node: n}, nil
}

// Next returns the next raw id
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}

// LotNumber mints a lot number for stock received without one
func (g *Generator) LotNumber() string {
	return LotPrefix + "-" + g.node.Generate().String()
}

// MovementNumber mints a stock movement document number
func (g *Generator) MovementNumber() string {
	return MovementPrefix + "-" + g.node.Generate().String()
}

// PickListNumber mints a pick list document number
func (g *Generator) PickListNumber() string {
	return PickListPrefix + "-" + g.node.Generate().String()
}
