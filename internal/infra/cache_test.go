package infra

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/Alturino/storefront/internal/config"
)

func closedPort(t *testing.T) uint16 {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return uint16(port)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	c := context.Background()

	rdb, err := NewRedisClient(c, config.Cache{Host: "127.0.0.1", Port: closedPort(t)})

	assert.Nil(t, rdb)
	assert.ErrorContains(t, err, "failed pinging redis")
}

func TestNewRedisClient(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	c := context.Background()

	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Errorf("failed to terminate container: %s", err)
		}
	})

	host, err := redisContainer.Host(c)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(c, "6379/tcp")
	require.NoError(t, err)

	rdb, err := NewRedisClient(c, config.Cache{Host: host, Port: uint16(port.Int()), Database: 1})
	require.NoError(t, err)
	defer rdb.Close()

	require.NoError(t, rdb.Set(c, "storefront:probe", "ok", 0).Err())
	actual, err := rdb.Get(c, "storefront:probe").Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", actual)
}
