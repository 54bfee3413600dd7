package database

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
	assert.Equal(t, "[::1]:6379", RedisConfig{Host: "::1", Port: 6379}.Addr())
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), RedisConfig{Host: mr.Host(), Port: port}, testLogger())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())
	host := mr.Host()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewRedisClient(ctx, RedisConfig{Host: host, Port: port}, testLogger())
	assert.Error(t, err)
}
