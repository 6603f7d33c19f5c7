package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	rs := NewRedisStorage(db, "notes-app:")
	ctx := context.Background()

	mock.ExpectGet("notes-app:notes-app-data").RedisNil()
	value, ok, err := rs.GetItem(ctx, "notes-app-data")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, value)

	mock.ExpectSet("notes-app:notes-app-data", `[{"id":"1"}]`, 0).SetVal("OK")
	require.NoError(t, rs.SetItem(ctx, "notes-app-data", []byte(`[{"id":"1"}]`)))

	mock.ExpectGet("notes-app:notes-app-data").SetVal(`[{"id":"1"}]`)
	value, ok, err = rs.GetItem(ctx, "notes-app-data")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, string(value))

	mock.ExpectDel("notes-app:notes-app-data").SetVal(1)
	require.NoError(t, rs.RemoveItem(ctx, "notes-app-data"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStorage_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	rs := NewRedisStorage(db, "")
	ctx := context.Background()
	redisErr := errors.New("connection refused")

	mock.ExpectGet("notes-app-data").SetErr(redisErr)
	_, ok, err := rs.GetItem(ctx, "notes-app-data")
	assert.ErrorIs(t, err, redisErr)
	assert.False(t, ok)

	mock.ExpectSet("notes-app-data", "[]", 0).SetErr(redisErr)
	assert.ErrorIs(t, rs.SetItem(ctx, "notes-app-data", []byte("[]")), redisErr)

	mock.ExpectDel("notes-app-data").SetErr(redisErr)
	assert.ErrorIs(t, rs.RemoveItem(ctx, "notes-app-data"), redisErr)

	assert.ErrorIs(t, rs.SetItem(ctx, "", []byte("[]")), ErrInvalidKey)

	require.NoError(t, mock.ExpectationsWereMet())
}
