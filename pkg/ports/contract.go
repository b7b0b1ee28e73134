package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/carepath/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStorageContract runs a suite of tests to verify that a Storage implementation
// adheres to the defined interface contract.
func RunStorageContract(t *testing.T, store Storage) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405") + "-"

	t.Run("Set and Get", func(t *testing.T) {
		key := prefix + "data"
		require.NoError(t, store.Set(ctx, key, `{"answers":{}}`, 0))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"answers":{}}`, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := prefix + "overwrite"
		require.NoError(t, store.Set(ctx, key, "one", 0))
		require.NoError(t, store.Set(ctx, key, "two", time.Hour))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "two", got)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"missing")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		a, b := prefix+"del-a", prefix+"del-b"
		require.NoError(t, store.Set(ctx, a, "1", 0))
		require.NoError(t, store.Set(ctx, b, "2", 0))

		require.NoError(t, store.Delete(ctx, a, b, prefix+"never-existed"))

		_, err := store.Get(ctx, a)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
		_, err = store.Get(ctx, b)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})
}

// RunTokenStoreContract verifies the single-use semantics of a TokenStore implementation.
func RunTokenStoreContract(t *testing.T, store TokenStore) {
	ctx := context.Background()
	token := "contract-token-" + time.Now().Format("20060102150405")

	t.Run("Take Once", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, token, []byte(`{"email":"a@b.c"}`), time.Minute))

		payload, err := store.TakeOnce(ctx, token)
		require.NoError(t, err)
		assert.JSONEq(t, `{"email":"a@b.c"}`, string(payload))

		_, err = store.TakeOnce(ctx, token)
		assert.ErrorIs(t, err, domain.ErrTokenNotFound, "second take must fail")
	})

	t.Run("Unknown Token", func(t *testing.T) {
		_, err := store.TakeOnce(ctx, token+"-unknown")
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	})
}
