package autologin_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/carepath/pkg/adapters/memory"
	redisadapter "github.com/aretw0/carepath/pkg/adapters/redis"
	"github.com/aretw0/carepath/pkg/autologin"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_IssueRedeemOnce(t *testing.T) {
	svc := autologin.NewService(memory.NewTokenStore())
	ctx := context.Background()

	token, err := svc.Issue(ctx, json.RawMessage(`{"email":"ana@example.com"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	payload, err := svc.Redeem(ctx, token)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"ana@example.com"}`, string(payload))

	_, err = svc.Redeem(ctx, token)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestService_RejectsBadPayload(t *testing.T) {
	svc := autologin.NewService(memory.NewTokenStore())
	ctx := context.Background()

	_, err := svc.Issue(ctx, nil)
	assert.ErrorIs(t, err, autologin.ErrEmptyPayload)

	_, err = svc.Issue(ctx, json.RawMessage(`{broken`))
	assert.Error(t, err)

	_, err = svc.Redeem(ctx, "")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestService_SharedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newInstance := func() *autologin.Service {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return autologin.NewService(redisadapter.NewTokenStore(client, "test:"), autologin.WithTTL(time.Minute))
	}
	issuer, redeemer := newInstance(), newInstance()
	ctx := context.Background()

	token, err := issuer.Issue(ctx, json.RawMessage(`{"id":1}`))
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := redeemer.Redeem(ctx, token); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load(), "a token is redeemed exactly once")
}

func TestService_Expiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := autologin.NewService(redisadapter.NewTokenStore(client, "test:"),
		autologin.WithTTL(time.Minute),
		autologin.WithTokenGenerator(func() string { return "fixed" }))
	ctx := context.Background()

	token, err := svc.Issue(ctx, json.RawMessage(`"x"`))
	require.NoError(t, err)
	assert.Equal(t, "fixed", token)

	mr.FastForward(2 * time.Minute)
	_, err = svc.Redeem(ctx, token)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}
