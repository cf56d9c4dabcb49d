package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryKV_SetGetDelete(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "table:1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, "table:1", []byte(`{"stage":"flop"}`)))
	v, ok, err := kv.Get(ctx, "table:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"stage":"flop"}`, string(v))

	require.NoError(t, kv.Delete(ctx, "table:1"))
	_, ok, err = kv.Get(ctx, "table:1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryKV_SetCopiesValue(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	buf := []byte("original")
	require.NoError(t, kv.Set(ctx, "k", buf))
	buf[0] = 'X'

	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "original", string(v))
}
