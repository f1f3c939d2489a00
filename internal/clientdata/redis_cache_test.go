package clientdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestRedisCache_GetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, "")

	mock.ExpectGet("holdfast:quote:AAPL").RedisNil()

	_, _, ok, err := cache.Get(context.Background(), "aapl")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_SetThenGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, "test:")
	fetched := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return fetched }

	blob, err := msgpack.Marshal(priceEntry{Price: 99.5, FetchedAt: fetched})
	require.NoError(t, err)

	mock.ExpectSet("test:quote:GGAL.BA", blob, 30*time.Second).SetVal("OK")
	mock.ExpectGet("test:quote:GGAL.BA").SetVal(string(blob))

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "ggal.ba", 99.5, 30*time.Second))

	price, at, ok, err := cache.Get(ctx, "GGAL.BA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 99.5, price)
	assert.Equal(t, fetched.Unix(), at.Unix())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, "")

	mock.ExpectGet("holdfast:quote:AAPL").SetErr(errors.New("connection refused"))

	_, _, ok, err := cache.Get(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Clear(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, "")

	mock.ExpectScan(0, "holdfast:*", scanBatch).SetVal([]string{"holdfast:quote:A", "holdfast:quote:B"}, 7)
	mock.ExpectDel("holdfast:quote:A", "holdfast:quote:B").SetVal(2)
	mock.ExpectScan(7, "holdfast:*", scanBatch).SetVal([]string{"holdfast:bars:A|1y"}, 0)
	mock.ExpectDel("holdfast:bars:A|1y").SetVal(1)

	n, err := cache.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_DeleteExpiredIsNoop(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, "")

	n, err := cache.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
