// Package idgen generates document serials.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/erp/fulfillment/internal/domain/shared"
)

// SnowflakeSerials produces serials such as "OUT-1790036915627446272". The
// numeric part is a snowflake id, so serials from one node sort by creation
// time and nodes with distinct ids never collide.
type SnowflakeSerials struct {
	node *snowflake.Node
}

// NewSnowflakeSerials creates a generator for node (0-1023)
func NewSnowflakeSerials(node int64) (*SnowflakeSerials, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node %d: %w", node, err)
	}
	return &SnowflakeSerials{node: n}, nil
}

// Next returns a new serial with the given prefix
func (g *SnowflakeSerials) Next(prefix string) string {
	return prefix + "-" + g.node.Generate().String()
}

var _ shared.SerialGenerator = (*SnowflakeSerials)(nil)
