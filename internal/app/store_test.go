package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/mindmark/internal/config"
	"github.com/MrSnakeDoc/mindmark/internal/domain"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
)

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  config.Config
	}{
		{name: "memory", cfg: config.Config{Store: config.StoreMemory}},
		{name: "sqlite", cfg: config.Config{Store: config.StoreSQLite, SQLitePath: filepath.Join(t.TempDir(), "data", "mindmark.db")}},
		{name: "redis", cfg: config.Config{
			Store:               config.StoreRedis,
			RedisAddr:           mr.Addr(),
			RedisConnectTimeout: time.Second,
			RedisRetryInterval:  10 * time.Millisecond,
			RedisMaxWait:        100 * time.Millisecond,
			RedisPingTimeout:    100 * time.Millisecond,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st, backend, err := OpenStore(&tt.cfg, logger.New("error", false))
			require.NoError(t, err)
			t.Cleanup(func() { _ = backend.Close() })

			require.NoError(t, st.Ping(ctx))
			b, err := st.CreateBookmark(ctx, domain.Bookmark{Title: "t", URL: "https://example.com"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), b.ID)
		})
	}
}

func TestOpenStoreUnknown(t *testing.T) {
	_, _, err := OpenStore(&config.Config{Store: "postgres"}, logger.New("error", false))
	assert.Error(t, err)
}
