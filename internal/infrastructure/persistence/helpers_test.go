package persistence

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a migrated in-memory sqlite database
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

// sequentialSerials hands out PREFIX-1, PREFIX-2, ...
type sequentialSerials struct {
	n atomic.Int64
}

func (s *sequentialSerials) Next(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, s.n.Add(1))
}
